package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/sergius2002/brsledger/internal/domain"
)

// Daemon ejecuta el cierre diario en un schedule cron: cada madrugada
// cierra el día anterior. Pasa por el orquestador, así que un cierre
// programado y un recálculo manual comparten el mutex y nunca se pisan.
type Daemon struct {
	cron *cron.Cron
	orch *Orchestrator
}

// NewDaemon registra el cierre diario con el schedule dado (formato cron
// con segundos, ej. "0 5 0 * * *" = 00:05).
func NewDaemon(schedule string, orch *Orchestrator) (*Daemon, error) {
	d := &Daemon{
		cron: cron.New(cron.WithSeconds()),
		orch: orch,
	}

	_, err := d.cron.AddFunc(schedule, func() {
		ayer := domain.Hoy().Anterior()
		slog.Info("cierre diario programado", "fecha", ayer.String())

		report, err := d.orch.RecomputeOne(context.Background(), ayer)
		if err != nil {
			slog.Error("cierre diario falló", "fecha", ayer.String(), "err", err)
			return
		}
		if report.Failed > 0 {
			slog.Error("cierre diario con fechas fallidas", "fecha", ayer.String())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ledger.NewDaemon: schedule %q: %w", schedule, err)
	}

	return d, nil
}

// Start arranca el scheduler en background.
func (d *Daemon) Start() {
	d.cron.Start()
	slog.Info("daemon de cierre diario iniciado")
}

// Stop detiene el scheduler y espera a que termine el job en curso.
func (d *Daemon) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
	slog.Info("daemon de cierre diario detenido")
}
