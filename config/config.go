package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del ledger.
type Config struct {
	Ledger  LedgerConfig  `yaml:"ledger"`
	Storage StorageConfig `yaml:"storage"`
	Binance BinanceConfig `yaml:"binance"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Log     LogConfig     `yaml:"log"`
}

// LedgerConfig contiene los parámetros de negocio del pipeline.
type LedgerConfig struct {
	// CapitalSemilla es el capital inicial en CLP, usado únicamente cuando
	// no existe ninguna fila de capital previa (arranque en frío).
	CapitalSemilla int64 `yaml:"capital_semilla"`

	// Flags de conversión por categoría de gasto: true = el monto está en
	// BRS y se convierte a CLP con la tasa blended del día.
	ConvertirGastos    *bool `yaml:"convertir_gastos"`
	ConvertirPagoMovil *bool `yaml:"convertir_pago_movil"`
	ConvertirEnvios    *bool `yaml:"convertir_envios"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// BinanceConfig contiene las credenciales del venue P2P.
type BinanceConfig struct {
	Base      string `yaml:"base"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// DaemonConfig controla el cierre diario programado.
type DaemonConfig struct {
	CierreSchedule string `yaml:"cierre_schedule"` // cron con segundos
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Las variables de entorno sobreescriben el YAML. Si el archivo de
// configuración no existe, se usan solo defaults + entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// sin archivo: defaults + entorno
	case err != nil:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// CapitalSemilla devuelve el capital semilla como decimal.
func (c *Config) CapitalSemilla() decimal.Decimal {
	return decimal.NewFromInt(c.Ledger.CapitalSemilla)
}

// Convertir devuelve los flags de conversión como tripleta (gastos,
// pago móvil, envíos), con el comportamiento histórico como default.
func (c *Config) Convertir() (gastos, pagoMovil, envios bool) {
	return boolOr(c.Ledger.ConvertirGastos, true),
		boolOr(c.Ledger.ConvertirPagoMovil, true),
		boolOr(c.Ledger.ConvertirEnvios, false)
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están
// presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LEDGER_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Binance.APISecret = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Ledger.CapitalSemilla <= 0 {
		cfg.Ledger.CapitalSemilla = 32_000_000 // capitalización inicial del negocio, CLP
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "brsledger.db"
	}
	if cfg.Daemon.CierreSchedule == "" {
		cfg.Daemon.CierreSchedule = "0 5 0 * * *" // 00:05, cerrar el día anterior
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
