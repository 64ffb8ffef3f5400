// Package config loads pointqr settings from the environment and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dukerupert/pointqr/internal/ledger"
	"github.com/dukerupert/pointqr/internal/model"
)

// Config holds settings for both the ledger service and the pointqr CLI.
type Config struct {
	// Addr is the ledger service listen address (e.g. :5001).
	Addr string `mapstructure:"POINTQR_ADDR"`
	// DBPath is the SQLite database file; ":memory:" for a throwaway ledger.
	DBPath    string `mapstructure:"POINTQR_DB_PATH"`
	LogLevel  string `mapstructure:"POINTQR_LOG_LEVEL"`
	LogFormat string `mapstructure:"POINTQR_LOG_FORMAT"`
	// GrantTTL is how long an issued code stays redeemable.
	GrantTTL      string `mapstructure:"POINTQR_GRANT_TTL"`
	SweepInterval string `mapstructure:"POINTQR_SWEEP_INTERVAL"`
	// CORSOrigins is a comma-separated allow-list; "*" allows any origin.
	CORSOrigins string `mapstructure:"POINTQR_CORS_ORIGINS"`
	// RateLimit is the number of POST requests allowed per client IP per minute; 0 disables it.
	RateLimit int `mapstructure:"POINTQR_RATE_LIMIT"`

	// LedgerURL is the base URL the CLI talks to.
	LedgerURL     string `mapstructure:"POINTQR_LEDGER_URL"`
	LedgerTimeout string `mapstructure:"POINTQR_LEDGER_TIMEOUT"`
	// ShopID and CustomerID are the CLI's default identities.
	ShopID     int64 `mapstructure:"POINTQR_SHOP_ID"`
	CustomerID int64 `mapstructure:"POINTQR_CUSTOMER_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment.
// Environment variables override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("POINTQR_ADDR", ":5001")
	v.SetDefault("POINTQR_DB_PATH", "pointqr.db")
	v.SetDefault("POINTQR_LOG_LEVEL", "info")
	v.SetDefault("POINTQR_LOG_FORMAT", "text")
	v.SetDefault("POINTQR_GRANT_TTL", "5m")
	v.SetDefault("POINTQR_SWEEP_INTERVAL", "1m")
	v.SetDefault("POINTQR_CORS_ORIGINS", "*")
	v.SetDefault("POINTQR_RATE_LIMIT", 60)
	v.SetDefault("POINTQR_LEDGER_URL", "http://localhost:5001")
	v.SetDefault("POINTQR_LEDGER_TIMEOUT", "10s")
	v.SetDefault("POINTQR_SHOP_ID", 0)
	v.SetDefault("POINTQR_CUSTOMER_ID", 0)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("config: POINTQR_ADDR must be set")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("config: POINTQR_DB_PATH must be set")
	}
	if cfg.RateLimit < 0 {
		return nil, errors.New("config: POINTQR_RATE_LIMIT must not be negative")
	}
	if cfg.ShopID < 0 || cfg.CustomerID < 0 {
		return nil, errors.New("config: POINTQR_SHOP_ID and POINTQR_CUSTOMER_ID must not be negative")
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return nil, errors.New("config: POINTQR_LOG_FORMAT must be text or json")
	}

	return &cfg, nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GrantWindow parses GrantTTL. Returns 5m if unset or invalid.
func (c *Config) GrantWindow() time.Duration {
	return parseDuration(c.GrantTTL, model.GrantTTL)
}

// Sweep parses SweepInterval. Returns 1m if unset or invalid.
func (c *Config) Sweep() time.Duration {
	return parseDuration(c.SweepInterval, time.Minute)
}

// Timeout parses LedgerTimeout. Returns 10s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.LedgerTimeout, ledger.DefaultTimeout)
}

// Origins returns the CORS allow-list from the comma-separated setting.
func (c *Config) Origins() []string {
	if c == nil || c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
