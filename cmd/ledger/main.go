package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sergius2002/brsledger/config"
	"github.com/sergius2002/brsledger/internal/adapters/binance"
	"github.com/sergius2002/brsledger/internal/adapters/storage"
	"github.com/sergius2002/brsledger/internal/domain"
	"github.com/sergius2002/brsledger/internal/ledger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	daemon := flag.Bool("daemon", false, "run the scheduled daily close and block")
	syncTrades := flag.Bool("sync", false, "sync venue trades for the given date range instead of recomputing")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	gastos, pagoMovil, envios := cfg.Convertir()
	pipeCfg := ledger.Config{
		CapitalSemilla: cfg.CapitalSemilla(),
		Flags:          domain.ConversionFlags{Gastos: gastos, PagoMovil: pagoMovil, Envios: envios},
	}
	orch := ledger.NewOrchestrator(ledger.NewPipeline(store, pipeCfg))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *daemon {
		runDaemon(ctx, cfg.Daemon.CierreSchedule, orch)
		return
	}

	desde, hasta, err := parseFechas(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "uso: ledger [flags] FECHA [FECHA_HASTA]   (fechas ISO YYYY-MM-DD)")
		os.Exit(2)
	}

	if *syncTrades {
		runSync(ctx, cfg, store, desde, hasta)
		return
	}

	report, err := orch.Recompute(ctx, desde, hasta)
	if len(report.Outcomes) > 0 {
		printReport(os.Stdout, report)
	}
	if err != nil {
		slog.Error("recompute aborted", "err", err)
		os.Exit(1)
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}

// parseFechas interpreta los argumentos posicionales: una fecha, o dos
// formando un rango inclusivo.
func parseFechas(args []string) (desde, hasta domain.Fecha, err error) {
	switch len(args) {
	case 1:
		desde, err = domain.ParseFecha(args[0])
		return desde, desde, err
	case 2:
		if desde, err = domain.ParseFecha(args[0]); err != nil {
			return desde, hasta, err
		}
		hasta, err = domain.ParseFecha(args[1])
		return desde, hasta, err
	default:
		return desde, hasta, fmt.Errorf("se esperaba 1 o 2 fechas, llegaron %d argumentos", len(args))
	}
}

func runSync(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore, desde, hasta domain.Fecha) {
	client := binance.NewClient(cfg.Binance.Base, cfg.Binance.APIKey, cfg.Binance.APISecret)
	syncer := ledger.NewSyncer(client, store)

	inicio, _ := desde.Rango()
	_, fin := hasta.Rango()
	n, err := syncer.Sync(ctx, inicio, fin)
	if err != nil {
		slog.Error("sync failed", "err", err)
		os.Exit(1)
	}
	fmt.Printf("%d trades sincronizados para %s..%s\n", n, desde, hasta)
}

func runDaemon(ctx context.Context, schedule string, orch *ledger.Orchestrator) {
	d, err := ledger.NewDaemon(schedule, orch)
	if err != nil {
		slog.Error("failed to start daemon", "err", err)
		os.Exit(1)
	}
	d.Start()
	<-ctx.Done()
	d.Stop()
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
