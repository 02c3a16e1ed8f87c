// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/warp/ptrab-engine/allowance"
)

// Ledger backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

type Config struct {
	Port           int             `env:"PORT" envDefault:"8080"`
	DBPath         string          `env:"DB_PATH" envDefault:"ptrab.db"`
	LedgerBackend  string          `env:"LEDGER_BACKEND" envDefault:"sqlite"`
	LedgerFile     string          `env:"LEDGER_FILE" envDefault:"saldo_preparo.json"`
	InitialBalance decimal.Decimal `env:"INITIAL_BALANCE" envDefault:"5000000.00"`
	RatesFile      string          `env:"RATES_FILE"`
	JWTSecret      string          `env:"JWT_SECRET"`
	LogLevel       string          `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv         string          `env:"APP_ENV" envDefault:"production"`
	CORSOrigins    []string        `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// Missing .env is fine; real environment variables win over it.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.LedgerBackend) {
	case BackendSQLite, BackendJSON:
		c.LedgerBackend = strings.ToLower(c.LedgerBackend)
	default:
		return fmt.Errorf("LEDGER_BACKEND must be %q or %q, got %q", BackendSQLite, BackendJSON, c.LedgerBackend)
	}
	if c.InitialBalance.IsNegative() {
		return fmt.Errorf("INITIAL_BALANCE must not be negative, got %s", c.InitialBalance)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	return nil
}

// RequireJWTSecret fails when tokens cannot be signed or verified.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// Rates returns the rate table: defaults, overridden by RATES_FILE if set.
func (c *Config) Rates() (allowance.RateTable, error) {
	if c.RatesFile == "" {
		return allowance.DefaultRates(), nil
	}
	return LoadRates(c.RatesFile)
}
