package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/eldtechnologies/batepapo/internal/store"
	"github.com/eldtechnologies/batepapo/internal/sweeper"
)

// Config holds all configuration for the application.
type Config struct {
	Port     string `envconfig:"PORT" default:"4000"`
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Store selection
	StoreDriver   string `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURL      string `envconfig:"MONGO_URL" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"batePapoUol"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"./data/batepapo.db"`
	RedisURL      string `envconfig:"REDIS_URL"`
	BadgerPath    string `envconfig:"BADGER_PATH" default:"./data/badger"`

	// Inactivity sweep
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"15s"`
	StaleAfter    time.Duration `envconfig:"STALE_AFTER" default:"10s"`
	SweepTimeout  time.Duration `envconfig:"SWEEP_TIMEOUT" default:"10s"`

	// HTTP limits
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
	MaxBodyBytes   int64         `envconfig:"MAX_BODY_BYTES" default:"8192"`
}

// Load reads configuration from environment variables.
// It loads a .env file first if one is present.
func Load() (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case store.DriverMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("MONGO_URL is required for the mongo driver")
		}
	case store.DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case store.DriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis driver")
		}
	case store.DriverSQLite, store.DriverBadger:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	durations := map[string]time.Duration{
		"SWEEP_INTERVAL":  c.SweepInterval,
		"STALE_AFTER":     c.StaleAfter,
		"SWEEP_TIMEOUT":   c.SweepTimeout,
		"REQUEST_TIMEOUT": c.RequestTimeout,
		"CONNECT_TIMEOUT": c.ConnectTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// StoreOptions returns the backend selection for store.Open.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:        c.StoreDriver,
		MongoURL:      c.MongoURL,
		MongoDatabase: c.MongoDatabase,
		PostgresURL:   c.DatabaseURL,
		SQLitePath:    c.SQLitePath,
		RedisURL:      c.RedisURL,
		BadgerPath:    c.BadgerPath,
	}
}

// Sweeper returns the inactivity sweep timings.
func (c *Config) Sweeper() sweeper.Config {
	return sweeper.Config{
		Interval:   c.SweepInterval,
		StaleAfter: c.StaleAfter,
		Timeout:    c.SweepTimeout,
	}
}
