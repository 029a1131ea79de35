package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de castlot.
type Config struct {
	Exchange    ExchangeConfig `yaml:"exchange" toml:"exchange"`
	Server      ServerConfig   `yaml:"server" toml:"server"`
	Storage     StorageConfig  `yaml:"storage" toml:"storage"`
	Log         LogConfig      `yaml:"log" toml:"log"`
	DemoMarkets []DemoMarket   `yaml:"demo_markets" toml:"demo_markets"`
}

// ExchangeConfig controla el market maker y el modelo de trade.
type ExchangeConfig struct {
	LiquidityB     float64  `yaml:"liquidity_b" toml:"liquidity_b" env:"CASTLOT_LIQUIDITY_B"`
	TradeFee       *float64 `yaml:"trade_fee" toml:"trade_fee" env:"CASTLOT_TRADE_FEE"` // nil = default; 0 = trades gratis
	ShareStep      float64  `yaml:"share_step" toml:"share_step" env:"CASTLOT_SHARE_STEP"`
	InitialBalance float64  `yaml:"initial_balance" toml:"initial_balance" env:"CASTLOT_INITIAL_BALANCE"`
	SeedQ          float64  `yaml:"seed_q" toml:"seed_q" env:"CASTLOT_SEED_Q"` // qYes = qNo de un mercado nuevo
	Workers        int      `yaml:"workers" toml:"workers" env:"CASTLOT_WORKERS"`
}

const defaultTradeFee = 50.0

// Fee devuelve la comisión por trade, o el default si no se configuró.
func (e ExchangeConfig) Fee() float64 {
	if e.TradeFee == nil {
		return defaultTradeFee
	}
	return *e.TradeFee
}

// ServerConfig controla la API HTTP.
type ServerConfig struct {
	Addr            string  `yaml:"addr" toml:"addr" env:"CASTLOT_ADDR"`
	RatePerSec      float64 `yaml:"rate_per_sec" toml:"rate_per_sec" env:"CASTLOT_RATE_PER_SEC"`
	Burst           int     `yaml:"burst" toml:"burst" env:"CASTLOT_BURST"`
	ShutdownSeconds int     `yaml:"shutdown_seconds" toml:"shutdown_seconds" env:"CASTLOT_SHUTDOWN_SECONDS"`
}

// StorageConfig controla dónde se guarda el estado.
type StorageConfig struct {
	DSN string `yaml:"dsn" toml:"dsn" env:"CASTLOT_STORAGE_DSN"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" env:"CASTLOT_LOG_LEVEL"`    // debug | info | warn | error
	Format string `yaml:"format" toml:"format" env:"CASTLOT_LOG_FORMAT"` // text | json
}

// DemoMarket es un mercado precargado con cantidades arbitrarias.
type DemoMarket struct {
	ID             string        `yaml:"id" toml:"id"`
	Question       string        `yaml:"question" toml:"question"`
	Summary        string        `yaml:"summary" toml:"summary"`
	Category       string        `yaml:"category" toml:"category"`
	Tags           []string      `yaml:"tags" toml:"tags"`
	QYes           float64       `yaml:"q_yes" toml:"q_yes"`
	QNo            float64       `yaml:"q_no" toml:"q_no"`
	Traders        int           `yaml:"traders" toml:"traders"`
	ResolutionDate string        `yaml:"resolution_date" toml:"resolution_date"` // YYYY-MM-DD
	Comments       []DemoComment `yaml:"comments" toml:"comments"`
}

// DemoComment es un comentario precargado en el hilo de un DemoMarket.
type DemoComment struct {
	User  string `yaml:"user" toml:"user"`
	Text  string `yaml:"text" toml:"text"`
	Score int    `yaml:"score" toml:"score"`
}

// Deadline parsea ResolutionDate; sin fecha, el mercado se resuelve en 30 días.
func (d DemoMarket) Deadline(now time.Time) (time.Time, error) {
	if d.ResolutionDate == "" {
		return now.Add(30 * 24 * time.Hour), nil
	}
	t, err := time.Parse(time.DateOnly, d.ResolutionDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("demo market %s: resolution_date: %w", d.ID, err)
	}
	return t, nil
}

// Load carga .env si existe, el archivo de configuración (YAML, o TOML si la
// extensión es .toml) y luego las variables CASTLOT_*. path vacío = solo
// defaults y entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("config.Load: parse TOML: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config.Load: parse YAML: %w", err)
	}
	return nil
}

// applyEnvOverrides sobreescribe con las variables CASTLOT_* presentes.
func applyEnvOverrides(cfg *Config) error {
	targets := []any{&cfg.Exchange, &cfg.Server, &cfg.Storage, &cfg.Log}
	for _, t := range targets {
		if err := env.Parse(t); err != nil {
			return fmt.Errorf("config.Load: env: %w", err)
		}
	}
	return nil
}

// ShutdownTimeout devuelve el tiempo de gracia del servidor HTTP.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Exchange.LiquidityB <= 0 {
		cfg.Exchange.LiquidityB = 80
	}
	if cfg.Exchange.TradeFee == nil {
		fee := defaultTradeFee
		cfg.Exchange.TradeFee = &fee
	}
	if cfg.Exchange.ShareStep <= 0 {
		cfg.Exchange.ShareStep = 10
	}
	if cfg.Exchange.InitialBalance <= 0 {
		cfg.Exchange.InitialBalance = 1000
	}
	if cfg.Exchange.SeedQ <= 0 {
		cfg.Exchange.SeedQ = 50
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RatePerSec < 0 {
		cfg.Server.RatePerSec = 0
	}
	if cfg.Server.Burst <= 0 {
		cfg.Server.Burst = 20
	}
	if cfg.Server.ShutdownSeconds <= 0 {
		cfg.Server.ShutdownSeconds = 10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = ":memory:"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if fee := c.Exchange.Fee(); fee < 0 {
		return fmt.Errorf("config.Load: negative trade_fee %v", fee)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.Load: invalid log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config.Load: invalid log format %q", c.Log.Format)
	}
	seen := make(map[string]bool, len(c.DemoMarkets))
	for _, m := range c.DemoMarkets {
		if m.ID == "" {
			return fmt.Errorf("config.Load: demo market without id")
		}
		if seen[m.ID] {
			return fmt.Errorf("config.Load: duplicate demo market %q", m.ID)
		}
		seen[m.ID] = true
		if m.QYes < 0 || m.QNo < 0 {
			return fmt.Errorf("config.Load: demo market %q: negative quantities", m.ID)
		}
	}
	return nil
}
