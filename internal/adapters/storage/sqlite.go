package storage

// sqlite.go: el almacén relacional del ledger.
//
// Disciplina de escritura:
//   - `cierres` (snapshot + gastos, una fila por fecha): UPSERT. El snapshot
//     y los gastos comparten fila pero se escriben por separado, cada upsert
//     toca solo sus columnas.
//   - `capital`: DELETE + INSERT dentro de la misma transacción que el
//     snapshot. Nunca UPDATE parcial: el recálculo reemplaza la fila entera
//     y una fecha queda con el par completo o con nada.
//   - `trades`: UPSERT por order_number, append-only desde el punto de vista
//     del ledger.
//
// Los montos se guardan como TEXT decimal para que recalcular una fecha con
// los mismos insumos produzca filas byte-idénticas.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sergius2002/brsledger/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Trades P2P, inmutables, particionados por create_time
CREATE TABLE IF NOT EXISTS trades (
    order_number TEXT PRIMARY KEY,
    fiat         TEXT NOT NULL,
    trade_type   TEXT NOT NULL,
    amount       TEXT NOT NULL DEFAULT '0',
    total_price  TEXT NOT NULL DEFAULT '0',
    unit_price   TEXT NOT NULL DEFAULT '0',
    commission   TEXT NOT NULL DEFAULT '0',
    create_time  DATETIME NOT NULL
);

-- Ventas de BRS a clientes, soft-delete vía eliminado
CREATE TABLE IF NOT EXISTS pedidos (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    cliente   TEXT NOT NULL,
    fecha     TEXT NOT NULL,
    brs       TEXT NOT NULL DEFAULT '0',
    clp       TEXT NOT NULL DEFAULT '0',
    eliminado INTEGER NOT NULL DEFAULT 0
);

-- Cierre de stock + gastos del día, una fila por fecha. cerrado lo marca
-- únicamente SaveClose: una fila creada solo por gastos no es un cierre y
-- no debe entrar al arrastre.
CREATE TABLE IF NOT EXISTS cierres (
    fecha           TEXT PRIMARY KEY,
    brs_stock       TEXT NOT NULL DEFAULT '0',
    usdt_stock      TEXT NOT NULL DEFAULT '0',
    tasa_ves_clp    TEXT NOT NULL DEFAULT '0',
    usdt_tasa       TEXT NOT NULL DEFAULT '0',
    gastos          TEXT NOT NULL DEFAULT '0',
    pago_movil      TEXT NOT NULL DEFAULT '0',
    envios_al_detal TEXT NOT NULL DEFAULT '0',
    cerrado         INTEGER NOT NULL DEFAULT 0
);

-- Fila de capital del día, una por fecha
CREATE TABLE IF NOT EXISTS capital (
    fecha           TEXT PRIMARY KEY,
    capital_inicial TEXT NOT NULL,
    ganancias       TEXT NOT NULL,
    costo_gastos    TEXT NOT NULL,
    gastos_manuales TEXT NOT NULL,
    capital_final   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_consulta ON trades(fiat, trade_type, create_time);
CREATE INDEX IF NOT EXISTS idx_pedidos_fecha   ON pedidos(fecha, eliminado);
`

// SQLiteStore implementa ports.Store usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// TradesBetween devuelve los trades (fiat, tradeType) con create_time en
// [desde, hasta), en orden cronológico.
func (s *SQLiteStore) TradesBetween(ctx context.Context, fiat, tradeType string, desde, hasta time.Time) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_number, fiat, trade_type, amount, total_price, unit_price, commission, create_time
		FROM trades
		WHERE fiat = ? AND trade_type = ? AND create_time >= ? AND create_time < ?
		ORDER BY create_time
	`, fiat, tradeType, desde.UTC(), hasta.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.TradesBetween: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var amount, total, unit, commission, createTime string
		if err := rows.Scan(&t.OrderNumber, &t.Fiat, &t.TradeType,
			&amount, &total, &unit, &commission, &createTime); err != nil {
			return nil, fmt.Errorf("storage.TradesBetween: scan row: %w", err)
		}
		if err := scanDecimals(
			decCol{amount, &t.Amount}, decCol{total, &t.TotalPrice},
			decCol{unit, &t.UnitPrice}, decCol{commission, &t.Commission},
		); err != nil {
			return nil, fmt.Errorf("storage.TradesBetween: trade %s: %w", t.OrderNumber, err)
		}
		t.CreateTime, _ = time.Parse(time.RFC3339, createTime)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// OrdersByFecha devuelve las órdenes no eliminadas de la fecha.
func (s *SQLiteStore) OrdersByFecha(ctx context.Context, f domain.Fecha) ([]domain.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cliente, fecha, brs, clp
		FROM pedidos
		WHERE fecha = ? AND eliminado = 0
		ORDER BY id
	`, f.String())
	if err != nil {
		return nil, fmt.Errorf("storage.OrdersByFecha: query: %w", err)
	}
	defer rows.Close()

	var orders []domain.OrderRecord
	for rows.Next() {
		var o domain.OrderRecord
		var fecha, brs, clp string
		if err := rows.Scan(&o.ID, &o.Cliente, &fecha, &brs, &clp); err != nil {
			return nil, fmt.Errorf("storage.OrdersByFecha: scan row: %w", err)
		}
		if err := scanDecimals(decCol{brs, &o.Brs}, decCol{clp, &o.Clp}); err != nil {
			return nil, fmt.Errorf("storage.OrdersByFecha: pedido %d: %w", o.ID, err)
		}
		o.Fecha, _ = domain.ParseFecha(fecha)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ExpensesByFecha devuelve los gastos de la fecha, o un registro en cero si
// no hay fila.
func (s *SQLiteStore) ExpensesByFecha(ctx context.Context, f domain.Fecha) (domain.ExpenseRecord, error) {
	exp := domain.ExpenseRecord{Fecha: f}
	var gastos, pagoMovil, envios string
	err := s.db.QueryRowContext(ctx, `
		SELECT gastos, pago_movil, envios_al_detal FROM cierres WHERE fecha = ?
	`, f.String()).Scan(&gastos, &pagoMovil, &envios)
	if err == sql.ErrNoRows {
		return exp, nil
	}
	if err != nil {
		return exp, fmt.Errorf("storage.ExpensesByFecha: query: %w", err)
	}
	if err := scanDecimals(
		decCol{gastos, &exp.Gastos}, decCol{pagoMovil, &exp.PagoMovil},
		decCol{envios, &exp.EnviosAlDetal},
	); err != nil {
		return exp, fmt.Errorf("storage.ExpensesByFecha: fecha %s: %w", f, err)
	}
	return exp, nil
}

// LastSnapshotBefore devuelve el cierre más reciente estrictamente anterior
// a f. Consulta acotada, nunca camina día por día. Solo considera fechas
// cerradas: una fila que existe apenas porque se cargaron gastos no tiene
// snapshot y no debe pisar el arrastre real.
func (s *SQLiteStore) LastSnapshotBefore(ctx context.Context, f domain.Fecha) (domain.StockSnapshot, bool, error) {
	var snap domain.StockSnapshot
	var fecha, brsStock, usdtStock, tasaVes, usdtTasa string
	err := s.db.QueryRowContext(ctx, `
		SELECT fecha, brs_stock, usdt_stock, tasa_ves_clp, usdt_tasa
		FROM cierres
		WHERE fecha < ? AND cerrado = 1
		ORDER BY fecha DESC
		LIMIT 1
	`, f.String()).Scan(&fecha, &brsStock, &usdtStock, &tasaVes, &usdtTasa)
	if err == sql.ErrNoRows {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, fmt.Errorf("storage.LastSnapshotBefore: query: %w", err)
	}
	if err := scanDecimals(
		decCol{brsStock, &snap.BrsStock}, decCol{usdtStock, &snap.UsdtStock},
		decCol{tasaVes, &snap.TasaVesClp}, decCol{usdtTasa, &snap.UsdtTasa},
	); err != nil {
		return snap, false, fmt.Errorf("storage.LastSnapshotBefore: fecha %s: %w", fecha, err)
	}
	snap.Fecha, _ = domain.ParseFecha(fecha)
	return snap, true, nil
}

// LastCapitalBefore devuelve la fila de capital más reciente estrictamente
// anterior a f.
func (s *SQLiteStore) LastCapitalBefore(ctx context.Context, f domain.Fecha) (domain.CapitalLedgerEntry, bool, error) {
	var entry domain.CapitalLedgerEntry
	var fecha, inicial, ganancias, costoGastos, manuales, final string
	err := s.db.QueryRowContext(ctx, `
		SELECT fecha, capital_inicial, ganancias, costo_gastos, gastos_manuales, capital_final
		FROM capital
		WHERE fecha < ?
		ORDER BY fecha DESC
		LIMIT 1
	`, f.String()).Scan(&fecha, &inicial, &ganancias, &costoGastos, &manuales, &final)
	if err == sql.ErrNoRows {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, fmt.Errorf("storage.LastCapitalBefore: query: %w", err)
	}
	if err := scanDecimals(
		decCol{inicial, &entry.CapitalInicial}, decCol{ganancias, &entry.Ganancias},
		decCol{costoGastos, &entry.CostoGastos}, decCol{manuales, &entry.GastosManuales},
		decCol{final, &entry.CapitalFinal},
	); err != nil {
		return entry, false, fmt.Errorf("storage.LastCapitalBefore: fecha %s: %w", fecha, err)
	}
	entry.Fecha, _ = domain.ParseFecha(fecha)
	return entry, true, nil
}

// SaveClose persiste el cierre completo de una fecha: upsert del snapshot
// (sin tocar las columnas de gastos) y delete + insert de la fila de
// capital, todo en una transacción.
func (s *SQLiteStore) SaveClose(ctx context.Context, snap domain.StockSnapshot, entry domain.CapitalLedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveClose: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cierres (fecha, brs_stock, usdt_stock, tasa_ves_clp, usdt_tasa, cerrado)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(fecha) DO UPDATE SET
			brs_stock    = excluded.brs_stock,
			usdt_stock   = excluded.usdt_stock,
			tasa_ves_clp = excluded.tasa_ves_clp,
			usdt_tasa    = excluded.usdt_tasa,
			cerrado      = 1
	`, snap.Fecha.String(), snap.BrsStock.String(), snap.UsdtStock.String(),
		snap.TasaVesClp.String(), snap.UsdtTasa.String()); err != nil {
		return fmt.Errorf("storage.SaveClose: upsert cierre %s: %w", snap.Fecha, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM capital WHERE fecha = ?`, entry.Fecha.String()); err != nil {
		return fmt.Errorf("storage.SaveClose: delete capital %s: %w", entry.Fecha, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO capital (fecha, capital_inicial, ganancias, costo_gastos, gastos_manuales, capital_final)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.Fecha.String(), entry.CapitalInicial.String(), entry.Ganancias.String(),
		entry.CostoGastos.String(), entry.GastosManuales.String(), entry.CapitalFinal.String()); err != nil {
		return fmt.Errorf("storage.SaveClose: insert capital %s: %w", entry.Fecha, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveClose: commit: %w", err)
	}
	return nil
}

// SaveExpenses hace upsert de los gastos de una fecha sin tocar las
// columnas del snapshot ni marcar la fecha como cerrada.
func (s *SQLiteStore) SaveExpenses(ctx context.Context, exp domain.ExpenseRecord) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO cierres (fecha, gastos, pago_movil, envios_al_detal)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fecha) DO UPDATE SET
			gastos          = excluded.gastos,
			pago_movil      = excluded.pago_movil,
			envios_al_detal = excluded.envios_al_detal
	`, exp.Fecha.String(), exp.Gastos.String(), exp.PagoMovil.String(),
		exp.EnviosAlDetal.String()); err != nil {
		return fmt.Errorf("storage.SaveExpenses: upsert %s: %w", exp.Fecha, err)
	}
	return nil
}

// UpsertTrades inserta o actualiza trades por order_number.
func (s *SQLiteStore) UpsertTrades(ctx context.Context, trades []domain.TradeRecord) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage.UpsertTrades: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (order_number, fiat, trade_type, amount, total_price, unit_price, commission, create_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_number) DO UPDATE SET
			fiat        = excluded.fiat,
			trade_type  = excluded.trade_type,
			amount      = excluded.amount,
			total_price = excluded.total_price,
			unit_price  = excluded.unit_price,
			commission  = excluded.commission,
			create_time = excluded.create_time
	`)
	if err != nil {
		return 0, fmt.Errorf("storage.UpsertTrades: prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx,
			t.OrderNumber, t.Fiat, t.TradeType,
			t.Amount.String(), t.TotalPrice.String(), t.UnitPrice.String(),
			t.Commission.String(), t.CreateTime.UTC()); err != nil {
			return 0, fmt.Errorf("storage.UpsertTrades: upsert %s: %w", t.OrderNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage.UpsertTrades: commit: %w", err)
	}
	return len(trades), nil
}

// SaveOrder inserta o actualiza una orden de cliente. Es el camino de
// escritura de la app de ventas; el ledger solo lo usa en tests.
func (s *SQLiteStore) SaveOrder(ctx context.Context, o domain.OrderRecord) (int64, error) {
	eliminado := 0
	if o.Eliminado {
		eliminado = 1
	}
	if o.ID != 0 {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE pedidos SET cliente = ?, fecha = ?, brs = ?, clp = ?, eliminado = ?
			WHERE id = ?
		`, o.Cliente, o.Fecha.String(), o.Brs.String(), o.Clp.String(), eliminado, o.ID); err != nil {
			return 0, fmt.Errorf("storage.SaveOrder: update %d: %w", o.ID, err)
		}
		return o.ID, nil
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pedidos (cliente, fecha, brs, clp, eliminado)
		VALUES (?, ?, ?, ?, ?)
	`, o.Cliente, o.Fecha.String(), o.Brs.String(), o.Clp.String(), eliminado)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveOrder: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage.SaveOrder: last insert id: %w", err)
	}
	return id, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// decCol es un par columna TEXT → destino decimal.
type decCol struct {
	raw string
	dst *decimal.Decimal
}

// scanDecimals parsea cada string TEXT de la DB en su destino decimal.
func scanDecimals(cols ...decCol) error {
	for _, c := range cols {
		d, err := decimal.NewFromString(c.raw)
		if err != nil {
			return fmt.Errorf("valor decimal inválido %q: %w", c.raw, err)
		}
		*c.dst = d
	}
	return nil
}
