package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the planwheel services.
// Environment variables are parsed from the PLANWHEEL_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage: "sqlite" for local/dev, "postgres" for deployment,
	// "auto" derives from which connection settings are present.
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/planwheel.db"`

	// Notification worker
	NotifyWebhookURL string `envconfig:"NOTIFY_WEBHOOK_URL" default:""`
	NotifyWindowLead int    `envconfig:"NOTIFY_WINDOW_LEAD_MINUTES" default:"1"`

	// Health monitoring
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`

	// Backfill of legacy records. The default zone is a data-quality policy
	// for records predating the UTC-instant model, carried over from the
	// original migration script; revisit before running against real data.
	BackfillDefaultTimeZone string `envconfig:"BACKFILL_DEFAULT_TIME_ZONE" default:"America/Los_Angeles"`
	BackfillBatchSize       int    `envconfig:"BACKFILL_BATCH_SIZE" default:"200"`
}

// ResolveDefaults validates DBDriver and derives it when set to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}

	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Variables are prefixed with PLANWHEEL_, e.g. PLANWHEEL_HTTP_PORT.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("PLANWHEEL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("db_driver", cfg.DBDriver).
		Str("postgres_dsn_present", func() string {
			if cfg.PostgresDSN != "" {
				return "true"
			}
			return "false"
		}()).
		Str("backfill_default_time_zone", cfg.BackfillDefaultTimeZone).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		Environment:               EnvTesting,
		HTTPPort:                  8080,
		DBDriver:                  "sqlite",
		SQLitePath:                ":memory:",
		NotifyWindowLead:          1,
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
		BackfillDefaultTimeZone:   "America/Los_Angeles",
		BackfillBatchSize:         50,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
