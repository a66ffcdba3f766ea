package ports

import (
	"context"
	"time"

	"github.com/sergius2002/brsledger/internal/domain"
)

// Store es el acceso al almacén relacional compartido con el resto del
// negocio. El ledger consume cuatro formas de lectura y produce escrituras
// idempotentes por fecha.
type Store interface {
	// TradesBetween devuelve los trades con (fiat, tradeType) cuyo
	// create_time cae en [desde, hasta).
	TradesBetween(ctx context.Context, fiat, tradeType string, desde, hasta time.Time) ([]domain.TradeRecord, error)

	// OrdersByFecha devuelve las órdenes no eliminadas de la fecha.
	OrdersByFecha(ctx context.Context, f domain.Fecha) ([]domain.OrderRecord, error)

	// ExpensesByFecha devuelve los gastos de la fecha, o un registro en
	// cero si no hay fila.
	ExpensesByFecha(ctx context.Context, f domain.Fecha) (domain.ExpenseRecord, error)

	// LastSnapshotBefore devuelve el cierre de stock más reciente
	// estrictamente anterior a f. ok=false si no existe ninguno.
	LastSnapshotBefore(ctx context.Context, f domain.Fecha) (snap domain.StockSnapshot, ok bool, err error)

	// LastCapitalBefore devuelve la fila de capital más reciente
	// estrictamente anterior a f. ok=false si no existe ninguna.
	LastCapitalBefore(ctx context.Context, f domain.Fecha) (entry domain.CapitalLedgerEntry, ok bool, err error)

	// SaveClose persiste el cierre completo de una fecha en una sola
	// transacción: upsert del snapshot y delete-then-insert de la fila de
	// capital. O queda el par completo, o no queda nada.
	SaveClose(ctx context.Context, snap domain.StockSnapshot, entry domain.CapitalLedgerEntry) error

	// SaveExpenses hace upsert de los gastos de una fecha sin tocar las
	// columnas del snapshot.
	SaveExpenses(ctx context.Context, exp domain.ExpenseRecord) error

	// UpsertTrades inserta o actualiza trades por order_number y devuelve
	// cuántas filas se escribieron.
	UpsertTrades(ctx context.Context, trades []domain.TradeRecord) (int, error)

	// Close cierra la conexión limpiamente.
	Close() error
}

// TradeSource es el feed externo de trades (el venue P2P).
type TradeSource interface {
	// FetchTrades devuelve los trades del rango [desde, hasta), paginando
	// lo que haga falta.
	FetchTrades(ctx context.Context, desde, hasta time.Time) ([]domain.TradeRecord, error)
}
