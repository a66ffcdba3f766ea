package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/sergius2002/brsledger/internal/domain"
	"github.com/sergius2002/brsledger/internal/ports"
)

// CarryForward resuelve el estado de apertura de un día: el snapshot de
// cierre anterior y el capital inicial.
type CarryForward struct {
	store          ports.Store
	capitalSemilla decimal.Decimal
}

// NewCarryForward crea el resolver con el capital semilla configurado para
// el arranque en frío.
func NewCarryForward(store ports.Store, capitalSemilla decimal.Decimal) *CarryForward {
	return &CarryForward{store: store, capitalSemilla: capitalSemilla}
}

// Resolve devuelve el snapshot anterior a f (o uno en cero si no existe) y
// el capital inicial de f (el capital final previo, o el capital semilla).
//
// Cada uso del capital semilla se loggea a nivel WARN: fuera del primer
// día del negocio, señala filas de capital faltantes. Fallas de lectura
// persistentes degradan al mismo fallback, con la falla como warning.
func (c *CarryForward) Resolve(ctx context.Context, f domain.Fecha) (domain.StockSnapshot, decimal.Decimal, []string, error) {
	var warnings []string

	var snap domain.StockSnapshot
	var okSnap bool
	err := withRetry(ctx, func() error {
		var err error
		snap, okSnap, err = c.store.LastSnapshotBefore(ctx, f)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return snap, decimal.Zero, warnings, ctx.Err()
		}
		warnings = append(warnings, fmt.Sprintf("snapshot previo a %s ilegible, se abre con stock cero: %v", f, err))
		snap = domain.StockSnapshot{}
	} else if !okSnap {
		slog.Info("sin snapshot previo, apertura con stock cero", "fecha", f.String())
	}

	var entry domain.CapitalLedgerEntry
	var okCap bool
	err = withRetry(ctx, func() error {
		var err error
		entry, okCap, err = c.store.LastCapitalBefore(ctx, f)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return snap, decimal.Zero, warnings, ctx.Err()
		}
		warnings = append(warnings, fmt.Sprintf("capital previo a %s ilegible, se usa capital semilla: %v", f, err))
	}
	if err != nil || !okCap {
		slog.Warn("sin fila de capital previa, usando capital semilla",
			"fecha", f.String(),
			"capital_semilla", c.capitalSemilla.String(),
		)
		return snap, c.capitalSemilla, warnings, nil
	}

	return snap, entry.CapitalFinal, warnings, nil
}
