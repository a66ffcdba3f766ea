package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sergius2002/brsledger/internal/ports"
)

// Syncer trae los trades del venue y los deja en el store. Los trades son
// el único insumo del ledger que no produce el propio negocio.
type Syncer struct {
	source ports.TradeSource
	store  ports.Store
}

// NewSyncer crea el sincronizador de trades.
func NewSyncer(source ports.TradeSource, store ports.Store) *Syncer {
	return &Syncer{source: source, store: store}
}

// Sync descarga los trades de [desde, hasta) y hace upsert por
// order_number, así que repetir un rango ya sincronizado es inocuo.
func (s *Syncer) Sync(ctx context.Context, desde, hasta time.Time) (int, error) {
	trades, err := s.source.FetchTrades(ctx, desde, hasta)
	if err != nil {
		return 0, fmt.Errorf("ledger.Sync: fetch: %w", err)
	}

	n, err := s.store.UpsertTrades(ctx, trades)
	if err != nil {
		return 0, fmt.Errorf("ledger.Sync: persist: %w", err)
	}

	slog.Info("trades sincronizados",
		"desde", desde.Format(time.RFC3339),
		"hasta", hasta.Format(time.RFC3339),
		"filas", n,
	)
	return n, nil
}
