package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergius2002/brsledger/internal/adapters/storage"
	"github.com/sergius2002/brsledger/internal/domain"
	"github.com/sergius2002/brsledger/internal/ledger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// eqDec compara decimales por valor, no por representación.
func eqDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func trade(order, fiat, tipo, amount, total, commission string, at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		OrderNumber: order,
		Fiat:        fiat,
		TradeType:   tipo,
		Amount:      dec(amount),
		TotalPrice:  dec(total),
		UnitPrice:   dec("1"),
		Commission:  dec(commission),
		CreateTime:  at,
	}
}

func TestAggregator_TotalsFor(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	f := domain.NewFecha(2024, time.May, 10)
	mediodia := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)

	_, err := db.UpsertTrades(ctx, []domain.TradeRecord{
		// Adquisición de BRS: venta de USDT contra VES
		trade("V-1", domain.FiatVES, domain.TradeSell, "10", "500000", "0.1", mediodia),
		trade("V-2", domain.FiatVES, domain.TradeSell, "5", "250000", "0.05", mediodia.Add(time.Hour)),
		// Adquisición de USDT contra CLP
		trade("C-1", domain.FiatCLP, domain.TradeBuy, "20", "19000", "0.2", mediodia),
		// Disposición de USDT contra CLP
		trade("C-2", domain.FiatCLP, domain.TradeSell, "3", "2900", "0.03", mediodia),
		// Otro día: no debe entrar
		trade("X-1", domain.FiatVES, domain.TradeSell, "99", "999999", "1", mediodia.Add(24*time.Hour)),
	})
	require.NoError(t, err)

	_, err = db.SaveOrder(ctx, domain.OrderRecord{Cliente: "DETAL", Fecha: f, Brs: dec("100000"), Clp: dec("120000")})
	require.NoError(t, err)
	_, err = db.SaveOrder(ctx, domain.OrderRecord{Cliente: "juan", Fecha: f, Brs: dec("400000"), Clp: dec("430000")})
	require.NoError(t, err)

	totals, warnings, err := ledger.NewAggregator(db).TotalsFor(ctx, f)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	eqDec(t, "750000", totals.BrsAcquired)
	eqDec(t, "15.15", totals.UsdtConsumedForBrs) // (10+0.1)+(5+0.05)
	eqDec(t, "19.8", totals.UsdtAcquired)        // 20-0.2 (costo real)
	eqDec(t, "19000", totals.ClpInvested)
	eqDec(t, "3", totals.UsdtDisposedForClp)
	eqDec(t, "2900", totals.ClpReceivedFromUsdt)

	eqDec(t, "500000", totals.BrsSoldTotal)
	eqDec(t, "550000", totals.ClpReceivedTotal)
	eqDec(t, "100000", totals.BrsSoldRetail)
	eqDec(t, "120000", totals.ClpReceivedRetail)
	eqDec(t, "400000", totals.BrsSoldWholesale())
	eqDec(t, "430000", totals.ClpReceivedWholesale())
}

func TestAggregator_DiaVacio(t *testing.T) {
	db := newStore(t)

	totals, warnings, err := ledger.NewAggregator(db).TotalsFor(context.Background(), domain.NewFecha(2024, time.May, 10))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	eqDec(t, "0", totals.BrsAcquired)
	eqDec(t, "0", totals.UsdtAcquired)
	eqDec(t, "0", totals.BrsSoldTotal)
	eqDec(t, "0", totals.ClpReceivedTotal)
}

func TestAggregator_OrdenEliminadaNoSuma(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	f := domain.NewFecha(2024, time.May, 10)

	id, err := db.SaveOrder(ctx, domain.OrderRecord{Cliente: "DETAL", Fecha: f, Brs: dec("100"), Clp: dec("120")})
	require.NoError(t, err)
	_, err = db.SaveOrder(ctx, domain.OrderRecord{ID: id, Cliente: "DETAL", Fecha: f, Brs: dec("100"), Clp: dec("120"), Eliminado: true})
	require.NoError(t, err)

	totals, _, err := ledger.NewAggregator(db).TotalsFor(ctx, f)
	require.NoError(t, err)
	eqDec(t, "0", totals.BrsSoldTotal)
}

func TestAggregator_StoreRoto_DegradaConWarning(t *testing.T) {
	db := newStore(t)
	require.NoError(t, db.Close()) // todas las consultas fallarán

	totals, warnings, err := ledger.NewAggregator(db).TotalsFor(context.Background(), domain.NewFecha(2024, time.May, 10))
	require.NoError(t, err)

	// Degrada a totales en cero, pero nunca en silencio.
	eqDec(t, "0", totals.BrsAcquired)
	eqDec(t, "0", totals.BrsSoldTotal)
	assert.NotEmpty(t, warnings)
}
