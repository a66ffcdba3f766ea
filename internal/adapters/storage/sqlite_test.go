package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergius2002/brsledger/internal/adapters/storage"
	"github.com/sergius2002/brsledger/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func makeTrade(order, fiat, tipo, amount, total string, at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		OrderNumber: order,
		Fiat:        fiat,
		TradeType:   tipo,
		Amount:      dec(amount),
		TotalPrice:  dec(total),
		UnitPrice:   dec("1"),
		Commission:  dec("0.05"),
		CreateTime:  at,
	}
}

func TestSQLiteStore_TradesBetween(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	dia := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)

	n, err := db.UpsertTrades(ctx, []domain.TradeRecord{
		makeTrade("A-1", domain.FiatVES, domain.TradeSell, "10", "1000", dia),
		makeTrade("A-2", domain.FiatCLP, domain.TradeBuy, "5", "5000", dia.Add(time.Hour)),
		makeTrade("A-3", domain.FiatVES, domain.TradeSell, "20", "2000", dia.Add(25*time.Hour)), // día siguiente
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f := domain.NewFecha(2024, time.May, 10)
	desde, hasta := f.Rango()
	trades, err := db.TradesBetween(ctx, domain.FiatVES, domain.TradeSell, desde, hasta)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "A-1", trades[0].OrderNumber)
	assert.True(t, trades[0].TotalPrice.Equal(dec("1000")))
	assert.True(t, trades[0].Amount.Equal(dec("10")))
}

func TestSQLiteStore_UpsertTrades_Idempotente(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	dia := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)
	trade := makeTrade("B-1", domain.FiatCLP, domain.TradeBuy, "5", "5000", dia)

	_, err = db.UpsertTrades(ctx, []domain.TradeRecord{trade})
	require.NoError(t, err)
	_, err = db.UpsertTrades(ctx, []domain.TradeRecord{trade})
	require.NoError(t, err)

	f := domain.NewFecha(2024, time.May, 10)
	desde, hasta := f.Rango()
	trades, err := db.TradesBetween(ctx, domain.FiatCLP, domain.TradeBuy, desde, hasta)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestSQLiteStore_OrdersByFecha_ExcluyeEliminadas(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	f := domain.NewFecha(2024, time.May, 10)

	_, err = db.SaveOrder(ctx, domain.OrderRecord{Cliente: "DETAL", Fecha: f, Brs: dec("100"), Clp: dec("1200")})
	require.NoError(t, err)
	id, err := db.SaveOrder(ctx, domain.OrderRecord{Cliente: "mayorista1", Fecha: f, Brs: dec("500"), Clp: dec("6000")})
	require.NoError(t, err)

	// Soft-delete de la segunda orden
	_, err = db.SaveOrder(ctx, domain.OrderRecord{ID: id, Cliente: "mayorista1", Fecha: f, Brs: dec("500"), Clp: dec("6000"), Eliminado: true})
	require.NoError(t, err)

	orders, err := db.OrdersByFecha(ctx, f)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "DETAL", orders[0].Cliente)
	assert.True(t, orders[0].EsDetal())
}

func TestSQLiteStore_SaveClose_ReemplazaCapital(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	f := domain.NewFecha(2024, time.May, 10)

	snap := domain.StockSnapshot{Fecha: f, BrsStock: dec("200"), UsdtStock: dec("10"), TasaVesClp: dec("0.1"), UsdtTasa: dec("1000")}
	entry := domain.CapitalLedgerEntry{Fecha: f, CapitalInicial: dec("100"), Ganancias: dec("5"), CostoGastos: dec("0"), GastosManuales: dec("0"), CapitalFinal: dec("105")}
	require.NoError(t, db.SaveClose(ctx, snap, entry))

	// Recierre con otros valores: la fila anterior se reemplaza entera.
	entry.Ganancias = dec("9")
	entry.CapitalFinal = dec("109")
	require.NoError(t, db.SaveClose(ctx, snap, entry))

	got, ok, err := db.LastCapitalBefore(ctx, f.Siguiente())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.CapitalFinal.Equal(dec("109")))
	assert.Equal(t, f, got.Fecha)
}

func TestSQLiteStore_SaveExpenses_NoTocaSnapshot(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	f := domain.NewFecha(2024, time.May, 10)

	snap := domain.StockSnapshot{Fecha: f, BrsStock: dec("200"), UsdtStock: dec("10"), TasaVesClp: dec("0.1"), UsdtTasa: dec("1000")}
	entry := domain.CapitalLedgerEntry{Fecha: f, CapitalInicial: dec("100"), CapitalFinal: dec("100")}
	require.NoError(t, db.SaveClose(ctx, snap, entry))

	// Gastos sobre la misma fila de cierre
	require.NoError(t, db.SaveExpenses(ctx, domain.ExpenseRecord{Fecha: f, Gastos: dec("50"), PagoMovil: dec("30"), EnviosAlDetal: dec("700")}))

	exp, err := db.ExpensesByFecha(ctx, f)
	require.NoError(t, err)
	assert.True(t, exp.Gastos.Equal(dec("50")))

	got, ok, err := db.LastSnapshotBefore(ctx, f.Siguiente())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.BrsStock.Equal(dec("200")), "el upsert de gastos no debe pisar el snapshot")

	// Y al revés: recerrar no pisa los gastos.
	require.NoError(t, db.SaveClose(ctx, snap, entry))
	exp, err = db.ExpensesByFecha(ctx, f)
	require.NoError(t, err)
	assert.True(t, exp.PagoMovil.Equal(dec("30")))
}

func TestSQLiteStore_LastSnapshotBefore_SinDatos(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, ok, err := db.LastSnapshotBefore(context.Background(), domain.NewFecha(2024, time.May, 10))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_LastSnapshotBefore_EsEstrictamenteAnterior(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	f := domain.NewFecha(2024, time.May, 10)
	snap := domain.StockSnapshot{Fecha: f, BrsStock: dec("1"), UsdtStock: dec("1"), TasaVesClp: dec("1"), UsdtTasa: dec("1")}
	entry := domain.CapitalLedgerEntry{Fecha: f, CapitalInicial: dec("0"), CapitalFinal: dec("0")}
	require.NoError(t, db.SaveClose(ctx, snap, entry))

	// La propia fecha no cuenta como "anterior".
	_, ok, err := db.LastSnapshotBefore(ctx, f)
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := db.LastSnapshotBefore(ctx, f.Siguiente())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f, got.Fecha)
}

func TestSQLiteStore_LastSnapshotBefore_IgnoraGastosSinCierre(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	d1 := domain.NewFecha(2024, time.May, 10)
	d2 := d1.Siguiente()

	snap := domain.StockSnapshot{Fecha: d1, BrsStock: dec("200"), UsdtStock: dec("10"), TasaVesClp: dec("0.1"), UsdtTasa: dec("1000")}
	entry := domain.CapitalLedgerEntry{Fecha: d1, CapitalInicial: dec("100"), CapitalFinal: dec("100")}
	require.NoError(t, db.SaveClose(ctx, snap, entry))

	// d2 tiene gastos cargados pero nunca se cerró: su fila en cierres no
	// es un snapshot y no debe pisar el de d1.
	require.NoError(t, db.SaveExpenses(ctx, domain.ExpenseRecord{Fecha: d2, Gastos: dec("50")}))

	got, ok, err := db.LastSnapshotBefore(ctx, d2.Siguiente())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d1, got.Fecha)
	assert.True(t, got.BrsStock.Equal(dec("200")))
	assert.True(t, got.TasaVesClp.Equal(dec("0.1")))
}

func TestSQLiteStore_ExpensesByFecha_SinFila(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	exp, err := db.ExpensesByFecha(context.Background(), domain.NewFecha(2024, time.May, 10))
	require.NoError(t, err)
	assert.True(t, exp.Gastos.IsZero())
	assert.True(t, exp.PagoMovil.IsZero())
	assert.True(t, exp.EnviosAlDetal.IsZero())
}

func TestSQLiteStore_UpsertTrades_Vacio(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	n, err := db.UpsertTrades(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
