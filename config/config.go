// Package config provides configuration for the tracker.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the tracker configuration.
type Config struct {
	// Server settings
	HTTPPort int `env:"HTTP_PORT" envDefault:"5000"`

	// Database. A postgres:// DSN selects the pgx store, anything else
	// is treated as a SQLite DSN.
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:tracker.db?cache=shared&mode=rwc"`

	// Timezone used for human-readable timestamps
	DisplayTimeZone string `env:"DISPLAY_TIMEZONE" envDefault:"Asia/Kolkata"`

	// Bound on every store round-trip
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP_PORT: %d", cfg.HTTPPort)
	}
	return cfg, nil
}
