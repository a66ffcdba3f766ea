package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergius2002/brsledger/internal/domain"
	"github.com/sergius2002/brsledger/internal/ledger"
)

type stubSource struct {
	trades []domain.TradeRecord
	err    error
}

func (s stubSource) FetchTrades(ctx context.Context, desde, hasta time.Time) ([]domain.TradeRecord, error) {
	return s.trades, s.err
}

func TestSyncer_Sync(t *testing.T) {
	db := newStore(t)
	at := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)
	src := stubSource{trades: []domain.TradeRecord{
		trade("S-1", domain.FiatCLP, domain.TradeBuy, "5", "5000", "0.05", at),
		trade("S-2", domain.FiatVES, domain.TradeSell, "10", "1000", "0.1", at),
	}}

	n, err := ledger.NewSyncer(src, db).Sync(context.Background(), at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f := domain.FechaDe(at)
	desde, hasta := f.Rango()
	got, err := db.TradesBetween(context.Background(), domain.FiatCLP, domain.TradeBuy, desde, hasta)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "S-1", got[0].OrderNumber)
}

func TestSyncer_Sync_FallaDelVenue(t *testing.T) {
	db := newStore(t)
	src := stubSource{err: errors.New("venue caído")}

	_, err := ledger.NewSyncer(src, db).Sync(context.Background(), time.Now().Add(-time.Hour), time.Now())
	assert.Error(t, err)
}
