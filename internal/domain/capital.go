package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CloseCapital construye la fila de capital del día. El capital final
// encadena con el día siguiente: lo que cierra hoy abre mañana.
//
//	capital_final = capital_inicial + ganancias - costo_gastos - gastos_manuales
//
// donde ganancias es el margen total de los dos canales (los gastos se
// restan una sola vez, como filas propias de la entrada).
func CloseCapital(fecha Fecha, capitalInicial decimal.Decimal, m MarginResult) CapitalLedgerEntry {
	entry := CapitalLedgerEntry{
		Fecha:          fecha,
		CapitalInicial: RedondearCantidad(capitalInicial),
		Ganancias:      RedondearCantidad(m.MarginTotal),
		CostoGastos:    RedondearCantidad(m.CostoGastosClp),
		GastosManuales: RedondearCantidad(m.GastosManualesClp),
	}
	entry.CapitalFinal = entry.CapitalInicial.
		Add(entry.Ganancias).
		Sub(entry.CostoGastos).
		Sub(entry.GastosManuales)
	return entry
}

// CloseSnapshot construye la posición de cierre del día: el stock total
// menos el BRS entregado a clientes, valorizado a las tasas blended.
//
// Stocks negativos no son un estado válido del ledger: señalan un problema
// de integridad aguas arriba (ventas sin stock, trades faltantes). Se
// persisten igual y se reportan como warnings.
func CloseSnapshot(fecha Fecha, bases CostBases, t DayTotals) (StockSnapshot, []string) {
	var warnings []string

	if t.BrsSoldTotal.GreaterThan(bases.BrsStock) {
		warnings = append(warnings, fmt.Sprintf(
			"venta de BRS (%s) excede el stock disponible (%s): stock de cierre negativo",
			t.BrsSoldTotal, bases.BrsStock))
	}
	if bases.UsdtStock.IsNegative() {
		warnings = append(warnings, fmt.Sprintf(
			"stock USDT de cierre negativo (%s): faltan adquisiciones o sobran disposiciones",
			bases.UsdtStock))
	}

	snap := StockSnapshot{
		Fecha:      fecha,
		BrsStock:   RedondearCantidad(bases.BrsStock.Sub(t.BrsSoldTotal)),
		UsdtStock:  RedondearCantidad(bases.UsdtStock),
		TasaVesClp: RedondearTasa(bases.BrsCost),
		UsdtTasa:   RedondearTasa(bases.UsdtCost),
	}
	return snap, warnings
}
