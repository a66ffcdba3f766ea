package domain

import "github.com/shopspring/decimal"

// CostBases es el resultado del cálculo de costo promedio ponderado de un
// día: el stock total de cada pool antes de las ventas a clientes y la tasa
// blended que lo valoriza.
type CostBases struct {
	UsdtStock decimal.Decimal // stock USDT al cierre
	BrsStock  decimal.Decimal // stock BRS antes de ventas del día
	UsdtCost  decimal.Decimal // CLP por USDT, blended
	BrsCost   decimal.Decimal // BRS por CLP, blended
}

// ComputeCostBases mezcla la base de costo arrastrada del día anterior con
// las adquisiciones del día.
//
// El blend es promedio ponderado puro (no FIFO): al numerador y denominador
// entran solo el stock arrastrado y las adquisiciones de HOY. Las
// disposiciones reducen cantidad pero nunca alteran retroactivamente la tasa.
//
// La tasa de adquisición de BRS se deriva del valor CLP del USDT gastado en
// comprarlo, encadenando las bases de costo de los dos pools: primero se
// blenda USDT, y con esa tasa se valoriza el USDT consumido contra VES.
//
// Degeneraciones: cuando un denominador es cero (pool sin actividad), la
// tasa blended queda en la tasa del día anterior; un pool quieto no cambia
// su base de costo. Si tampoco hay tasa previa, queda en cero.
func ComputeCostBases(prev StockSnapshot, t DayTotals) CostBases {
	out := CostBases{
		UsdtStock: prev.UsdtStock.
			Add(t.UsdtAcquired).
			Sub(t.UsdtDisposedForClp).
			Sub(t.UsdtConsumedForBrs),
		BrsStock: prev.BrsStock.Add(t.BrsAcquired),
		UsdtCost: prev.UsdtTasa,
		BrsCost:  prev.TasaVesClp,
	}

	// Blend USDT: (stock_previo × tasa_previa + clp_invertido) / (stock_previo + comprado).
	// El término clp_invertido ya es comprado × (clp_invertido / comprado).
	blendBase := prev.UsdtStock.Add(t.UsdtAcquired)
	if t.UsdtAcquired.IsPositive() && blendBase.IsPositive() {
		out.UsdtCost = prev.UsdtStock.Mul(prev.UsdtTasa).
			Add(t.ClpInvested).
			Div(blendBase)
	}

	// Blend BRS: la tasa de adquisición es brs_comprado / clp_gastado,
	// donde clp_gastado = usdt_consumido × tasa_usdt_blended.
	clpSpent := t.UsdtConsumedForBrs.Mul(out.UsdtCost)
	if t.BrsAcquired.IsPositive() && clpSpent.IsPositive() && out.BrsStock.IsPositive() {
		acqRate := t.BrsAcquired.Div(clpSpent)
		out.BrsCost = prev.BrsStock.Mul(prev.TasaVesClp).
			Add(t.BrsAcquired.Mul(acqRate)).
			Div(out.BrsStock)
	}

	return out
}
