package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/sergius2002/brsledger/internal/domain"
	"github.com/sergius2002/brsledger/internal/ports"
)

// Config contiene los parámetros de negocio del pipeline.
type Config struct {
	CapitalSemilla decimal.Decimal
	Flags          domain.ConversionFlags
}

// DefaultConfig devuelve la parametrización histórica del negocio.
func DefaultConfig() Config {
	return Config{
		CapitalSemilla: decimal.NewFromInt(32_000_000),
		Flags:          domain.DefaultConversionFlags(),
	}
}

// DayResult es el cierre calculado y persistido de una fecha.
type DayResult struct {
	Fecha    domain.Fecha
	Snapshot domain.StockSnapshot
	Entry    domain.CapitalLedgerEntry
	Margin   domain.MarginResult
	Warnings []string
}

// Pipeline calcula y persiste el cierre de un día: agrega los movimientos,
// arrastra el estado del día anterior, blenda las bases de costo, reparte
// el margen por canal y cierra el capital. Los datos fluyen estrictamente
// hacia adelante; el snapshot que se persiste hoy es la apertura de mañana.
type Pipeline struct {
	store ports.Store
	cfg   Config
	agg   *Aggregator
	carry *CarryForward
}

// NewPipeline crea el pipeline con todas las dependencias inyectadas.
func NewPipeline(store ports.Store, cfg Config) *Pipeline {
	return &Pipeline{
		store: store,
		cfg:   cfg,
		agg:   NewAggregator(store),
		carry: NewCarryForward(store, cfg.CapitalSemilla),
	}
}

// CloseDay calcula el cierre de la fecha f y lo persiste, reemplazando
// cualquier cierre anterior de esa fecha. Con los mismos insumos el
// resultado es byte-idéntico, así que recalcular es siempre seguro.
func (p *Pipeline) CloseDay(ctx context.Context, f domain.Fecha) (DayResult, error) {
	res := DayResult{Fecha: f}

	prev, capitalInicial, warns, err := p.carry.Resolve(ctx, f)
	if err != nil {
		return res, fmt.Errorf("ledger.CloseDay %s: carry-forward: %w", f, err)
	}
	res.Warnings = append(res.Warnings, warns...)

	totals, warns, err := p.agg.TotalsFor(ctx, f)
	if err != nil {
		return res, fmt.Errorf("ledger.CloseDay %s: aggregate: %w", f, err)
	}
	res.Warnings = append(res.Warnings, warns...)

	var gastos domain.ExpenseRecord
	err = withRetry(ctx, func() error {
		var err error
		gastos, err = p.store.ExpensesByFecha(ctx, f)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("gastos de %s ilegibles, se asumen cero: %v", f, err))
		gastos = domain.ExpenseRecord{Fecha: f}
	}

	bases := domain.ComputeCostBases(prev, totals)
	res.Margin = domain.ComputeMargin(totals, gastos, bases.BrsCost, p.cfg.Flags)
	res.Warnings = append(res.Warnings, res.Margin.Warnings...)

	snap, warns := domain.CloseSnapshot(f, bases, totals)
	res.Warnings = append(res.Warnings, warns...)
	res.Snapshot = snap
	res.Entry = domain.CloseCapital(f, capitalInicial, res.Margin)

	if err := p.store.SaveClose(ctx, res.Snapshot, res.Entry); err != nil {
		return res, fmt.Errorf("ledger.CloseDay %s: persist: %w", f, err)
	}

	for _, w := range res.Warnings {
		slog.Warn("cierre con advertencia", "fecha", f.String(), "warning", w)
	}
	slog.Info("cierre de día persistido",
		"fecha", f.String(),
		"capital_inicial", res.Entry.CapitalInicial.String(),
		"ganancias", res.Entry.Ganancias.String(),
		"capital_final", res.Entry.CapitalFinal.String(),
		"brs_stock", res.Snapshot.BrsStock.String(),
		"usdt_stock", res.Snapshot.UsdtStock.String(),
	)
	return res, nil
}
