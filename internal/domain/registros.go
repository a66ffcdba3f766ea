package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Monedas fiat que atraviesan el ledger.
const (
	FiatCLP = "CLP"
	FiatVES = "VES"
)

// Lados de un trade en el venue P2P.
const (
	TradeBuy  = "BUY"
	TradeSell = "SELL"
)

// CanalDetal es el valor de cliente que marca una venta al detal.
// Cualquier otro cliente cuenta como canal mayorista.
const CanalDetal = "DETAL"

// Escalas de redondeo en el borde de persistencia. Dentro del cálculo de un
// día las operaciones son exactas; solo se redondea (banker's rounding) al
// construir la fila que se escribe, para que recalcular sea byte-idéntico.
const (
	EscalaCantidad = 6  // cantidades y montos CLP/VES
	EscalaTasa     = 10 // tasas blended
)

// RedondearCantidad aplica la política de redondeo a cantidades y montos.
func RedondearCantidad(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(EscalaCantidad)
}

// RedondearTasa aplica la política de redondeo a tasas de costo.
func RedondearTasa(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(EscalaTasa)
}

// TradeRecord es un trade P2P inmutable, tal como lo entrega el venue.
// Amount y Commission están denominados en USDT; TotalPrice y UnitPrice
// en la fiat del trade (CLP o VES).
type TradeRecord struct {
	OrderNumber string
	Fiat        string // CLP | VES
	TradeType   string // BUY | SELL
	Amount      decimal.Decimal
	TotalPrice  decimal.Decimal
	UnitPrice   decimal.Decimal
	Commission  decimal.Decimal
	CreateTime  time.Time
}

// CostoReal es el USDT efectivamente recibido en una compra: el venue
// descuenta su comisión del monto.
func (t TradeRecord) CostoReal() decimal.Decimal {
	return t.Amount.Sub(t.Commission)
}

// OrderRecord es una venta de BRS a un cliente, cobrada en CLP.
// Soft-delete vía Eliminado: una orden eliminada no entra en ningún agregado.
type OrderRecord struct {
	ID        int64
	Cliente   string
	Fecha     Fecha
	Brs       decimal.Decimal
	Clp       decimal.Decimal
	Eliminado bool
}

// EsDetal indica si la orden pertenece al canal retail.
func (o OrderRecord) EsDetal() bool { return o.Cliente == CanalDetal }

// ExpenseRecord son los gastos operativos de un día. Gastos y PagoMovil
// están denominados en BRS; EnviosAlDetal históricamente ya viene en CLP
// (ver ConversionFlags).
type ExpenseRecord struct {
	Fecha         Fecha
	Gastos        decimal.Decimal
	PagoMovil     decimal.Decimal
	EnviosAlDetal decimal.Decimal
}

// StockSnapshot es la posición de cierre de un día: stock de cada pool y
// su tasa de costo promedio ponderado. A lo sumo una fila por fecha.
type StockSnapshot struct {
	Fecha      Fecha
	BrsStock   decimal.Decimal
	UsdtStock  decimal.Decimal
	TasaVesClp decimal.Decimal // BRS por CLP, promedio ponderado
	UsdtTasa   decimal.Decimal // CLP por USDT, promedio ponderado
}

// CapitalLedgerEntry es la fila de capital de un día. El invariante central
// del ledger: CapitalFinal de d == CapitalInicial de d+1.
type CapitalLedgerEntry struct {
	Fecha          Fecha
	CapitalInicial decimal.Decimal
	Ganancias      decimal.Decimal // margen total de los dos canales
	CostoGastos    decimal.Decimal // gastos BRS convertidos a CLP
	GastosManuales decimal.Decimal // gastos ya denominados en CLP
	CapitalFinal   decimal.Decimal
}

// DayTotals son los totales escalares de un día reducidos desde trades y
// órdenes. Un conjunto vacío de registros produce totales en cero.
type DayTotals struct {
	BrsAcquired         decimal.Decimal // Σ totalPrice, trades VES SELL
	UsdtConsumedForBrs  decimal.Decimal // Σ amount+commission, trades VES SELL
	UsdtAcquired        decimal.Decimal // Σ costo_real, trades CLP BUY
	ClpInvested         decimal.Decimal // Σ totalPrice, trades CLP BUY
	UsdtDisposedForClp  decimal.Decimal // Σ amount, trades CLP SELL
	ClpReceivedFromUsdt decimal.Decimal // Σ totalPrice, trades CLP SELL

	BrsSoldTotal      decimal.Decimal
	ClpReceivedTotal  decimal.Decimal
	BrsSoldRetail     decimal.Decimal
	ClpReceivedRetail decimal.Decimal
}

// BrsSoldWholesale es el BRS vendido por el canal mayorista.
func (t DayTotals) BrsSoldWholesale() decimal.Decimal {
	return t.BrsSoldTotal.Sub(t.BrsSoldRetail)
}

// ClpReceivedWholesale es el CLP recibido por el canal mayorista.
func (t DayTotals) ClpReceivedWholesale() decimal.Decimal {
	return t.ClpReceivedTotal.Sub(t.ClpReceivedRetail)
}
