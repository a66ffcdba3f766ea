package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sergius2002/brsledger/internal/domain"
)

// Orchestrator re-ejecuta el pipeline para una fecha o un rango de fechas,
// reemplazando los cierres existentes. Es la única puerta de entrada al
// recálculo: el mutex serializa corridas concurrentes, porque un recálculo
// que solape con otro leería estado de arrastre a medio escribir.
type Orchestrator struct {
	mu       sync.Mutex
	pipeline *Pipeline
}

// NewOrchestrator crea el orquestador sobre el pipeline dado.
func NewOrchestrator(pipeline *Pipeline) *Orchestrator {
	return &Orchestrator{pipeline: pipeline}
}

// DateOutcome es el resultado de una fecha dentro de una corrida.
type DateOutcome struct {
	Fecha        domain.Fecha
	Err          error
	CapitalFinal string
	Warnings     int
}

// RunReport es el resumen completo de una corrida de recálculo.
type RunReport struct {
	RunID    string
	Desde    domain.Fecha
	Hasta    domain.Fecha
	Outcomes []DateOutcome
	OK       int
	Failed   int
	Elapsed  time.Duration
}

// Recompute recalcula el rango inclusivo [desde, hasta] en orden
// estrictamente cronológico: cada fecha depende del capital final y el
// stock de la anterior, así que solo se avanza cuando la persistencia de la
// fecha actual terminó.
//
// Semántica de falla parcial: una fecha que falla se loggea y se sigue con
// la siguiente usando el cierre que exista para la fecha fallida. La
// corrida siempre termina y reporta su saldo de éxitos y fallas. La
// cancelación del contexto corta entre fechas, nunca a mitad de una.
func (o *Orchestrator) Recompute(ctx context.Context, desde, hasta domain.Fecha) (RunReport, error) {
	if hasta.Before(desde) {
		return RunReport{}, fmt.Errorf("ledger.Recompute: rango invertido %s..%s", desde, hasta)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	report := RunReport{
		RunID: uuid.New().String(),
		Desde: desde,
		Hasta: hasta,
	}
	start := time.Now()
	log := slog.With("run_id", report.RunID)

	log.Info("recálculo iniciado", "desde", desde.String(), "hasta", hasta.String())

	for f := desde; !f.After(hasta); f = f.Siguiente() {
		if err := ctx.Err(); err != nil {
			log.Warn("recálculo interrumpido", "en", f.String())
			report.Elapsed = time.Since(start)
			return report, err
		}

		outcome := DateOutcome{Fecha: f}
		res, err := o.pipeline.CloseDay(ctx, f)
		if err != nil {
			outcome.Err = err
			report.Failed++
			log.Error("fecha fallida, se continúa con la siguiente", "fecha", f.String(), "err", err)
		} else {
			outcome.CapitalFinal = res.Entry.CapitalFinal.String()
			outcome.Warnings = len(res.Warnings)
			report.OK++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Elapsed = time.Since(start)
	log.Info("recálculo terminado",
		"ok", report.OK,
		"fallidas", report.Failed,
		"duración", report.Elapsed.Round(time.Millisecond),
	)
	return report, nil
}

// RecomputeOne recalcula una sola fecha.
func (o *Orchestrator) RecomputeOne(ctx context.Context, f domain.Fecha) (RunReport, error) {
	return o.Recompute(ctx, f, f)
}
