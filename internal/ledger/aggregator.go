package ledger

import (
	"context"
	"fmt"

	"github.com/sergius2002/brsledger/internal/domain"
	"github.com/sergius2002/brsledger/internal/ports"
)

// Aggregator reduce los trades y órdenes de un día a los totales escalares
// que consume el resto del pipeline. Solo lee; nunca escribe.
type Aggregator struct {
	store ports.Store
}

// NewAggregator crea un Aggregator sobre el store dado.
func NewAggregator(store ports.Store) *Aggregator {
	return &Aggregator{store: store}
}

// TotalsFor calcula los totales del día f.
//
// Cada grupo de consulta se reintenta con backoff; si aun así falla, ese
// grupo queda en cero y la falla se devuelve como warning, nunca en
// silencio. Solo la cancelación del contexto corta con error.
func (a *Aggregator) TotalsFor(ctx context.Context, f domain.Fecha) (domain.DayTotals, []string, error) {
	var totals domain.DayTotals
	var warnings []string

	// Adquisiciones de BRS: venta de USDT contra VES.
	if trades, err := a.trades(ctx, domain.FiatVES, domain.TradeSell, f); err != nil {
		if ctx.Err() != nil {
			return totals, warnings, ctx.Err()
		}
		warnings = append(warnings, fmt.Sprintf("trades VES/SELL de %s ilegibles, totales en cero: %v", f, err))
	} else {
		for _, t := range trades {
			totals.BrsAcquired = totals.BrsAcquired.Add(t.TotalPrice)
			totals.UsdtConsumedForBrs = totals.UsdtConsumedForBrs.Add(t.Amount.Add(t.Commission))
		}
	}

	// Adquisiciones de USDT contra CLP.
	if trades, err := a.trades(ctx, domain.FiatCLP, domain.TradeBuy, f); err != nil {
		if ctx.Err() != nil {
			return totals, warnings, ctx.Err()
		}
		warnings = append(warnings, fmt.Sprintf("trades CLP/BUY de %s ilegibles, totales en cero: %v", f, err))
	} else {
		for _, t := range trades {
			totals.UsdtAcquired = totals.UsdtAcquired.Add(t.CostoReal())
			totals.ClpInvested = totals.ClpInvested.Add(t.TotalPrice)
		}
	}

	// Disposiciones de USDT contra CLP.
	if trades, err := a.trades(ctx, domain.FiatCLP, domain.TradeSell, f); err != nil {
		if ctx.Err() != nil {
			return totals, warnings, ctx.Err()
		}
		warnings = append(warnings, fmt.Sprintf("trades CLP/SELL de %s ilegibles, totales en cero: %v", f, err))
	} else {
		for _, t := range trades {
			totals.UsdtDisposedForClp = totals.UsdtDisposedForClp.Add(t.Amount)
			totals.ClpReceivedFromUsdt = totals.ClpReceivedFromUsdt.Add(t.TotalPrice)
		}
	}

	// Ventas de BRS a clientes, repartidas por canal.
	var orders []domain.OrderRecord
	err := withRetry(ctx, func() error {
		var err error
		orders, err = a.store.OrdersByFecha(ctx, f)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return totals, warnings, ctx.Err()
		}
		warnings = append(warnings, fmt.Sprintf("órdenes de %s ilegibles, totales en cero: %v", f, err))
	}
	for _, o := range orders {
		totals.BrsSoldTotal = totals.BrsSoldTotal.Add(o.Brs)
		totals.ClpReceivedTotal = totals.ClpReceivedTotal.Add(o.Clp)
		if o.EsDetal() {
			totals.BrsSoldRetail = totals.BrsSoldRetail.Add(o.Brs)
			totals.ClpReceivedRetail = totals.ClpReceivedRetail.Add(o.Clp)
		}
	}

	return totals, warnings, nil
}

// trades consulta un subconjunto (fiat, tipo) del día con retry.
func (a *Aggregator) trades(ctx context.Context, fiat, tipo string, f domain.Fecha) ([]domain.TradeRecord, error) {
	desde, hasta := f.Rango()
	var out []domain.TradeRecord
	err := withRetry(ctx, func() error {
		var err error
		out, err = a.store.TradesBetween(ctx, fiat, tipo, desde, hasta)
		return err
	})
	return out, err
}
