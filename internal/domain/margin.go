package domain

import "github.com/shopspring/decimal"

// ConversionFlags controla qué categorías de gasto se convierten de BRS a
// CLP vía la base de costo blended del día. El comportamiento histórico es
// convertir gastos y pago móvil pero tratar envíos al detal como CLP ya
// denominado; los flags existen porque la regla de negocio nunca estuvo
// escrita en un solo lugar.
type ConversionFlags struct {
	Gastos    bool
	PagoMovil bool
	Envios    bool
}

// DefaultConversionFlags reproduce el comportamiento histórico del ledger.
func DefaultConversionFlags() ConversionFlags {
	return ConversionFlags{Gastos: true, PagoMovil: true, Envios: false}
}

// MarginResult es el desglose del margen de un día por canal, con los
// gastos ya convertidos a CLP.
type MarginResult struct {
	MarginDetal       decimal.Decimal
	MarginMayor       decimal.Decimal
	MarginTotal       decimal.Decimal
	CostoGastosClp    decimal.Decimal // gastos BRS llevados a CLP
	GastosManualesClp decimal.Decimal // gastos que ya vienen en CLP
	GananciasNetas    decimal.Decimal // MarginTotal - CostoGastosClp
	Warnings          []string
}

// ComputeMargin reparte el revenue del día en los dos canales de clientes y
// calcula el margen de cada uno contra la base de costo blended de BRS:
// margen = CLP recibido - valor a costo del BRS entregado.
//
// Con base de costo cero o negativa no hay forma de valorizar el BRS: todos
// los márgenes y conversiones quedan en cero y la condición se reporta como
// warning de calidad de datos, nunca como error.
func ComputeMargin(t DayTotals, gastos ExpenseRecord, brsCost decimal.Decimal, flags ConversionFlags) MarginResult {
	var out MarginResult

	if !brsCost.IsPositive() {
		if hayActividad(t, gastos) {
			out.Warnings = append(out.Warnings,
				"base de costo BRS cero o negativa con actividad en el día: márgenes y gastos quedan en cero")
		}
		return out
	}

	out.MarginDetal = t.ClpReceivedRetail.Sub(t.BrsSoldRetail.Div(brsCost))
	out.MarginMayor = t.ClpReceivedWholesale().Sub(t.BrsSoldWholesale().Div(brsCost))
	out.MarginTotal = out.MarginDetal.Add(out.MarginMayor)

	out.CostoGastosClp = convertir(gastos.Gastos, brsCost, flags.Gastos).
		Add(convertir(gastos.PagoMovil, brsCost, flags.PagoMovil))
	out.GastosManualesClp = convertir(gastos.EnviosAlDetal, brsCost, flags.Envios)

	out.GananciasNetas = out.MarginTotal.Sub(out.CostoGastosClp)
	return out
}

// convertir lleva un monto BRS a CLP vía la tasa blended, o lo deja pasar
// tal cual si la categoría ya está denominada en CLP.
func convertir(monto, brsCost decimal.Decimal, aClp bool) decimal.Decimal {
	if !aClp {
		return monto
	}
	return monto.Div(brsCost)
}

func hayActividad(t DayTotals, gastos ExpenseRecord) bool {
	return !t.BrsSoldTotal.IsZero() ||
		!t.ClpReceivedTotal.IsZero() ||
		!gastos.Gastos.IsZero() ||
		!gastos.PagoMovil.IsZero()
}
