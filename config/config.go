// Package config loads service configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	// HTTPAddr is the listen address for the API server.
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// UploadsDir is where submitted drawing files are stored.
	UploadsDir string `env:"UPLOADS_DIR" envDefault:"drawings"`

	// Workers is the number of concurrent extraction workers.
	Workers int `env:"WORKERS" envDefault:"4"`

	// QueueBackend selects the work queue: "memory" or "redis".
	QueueBackend string `env:"QUEUE_BACKEND" envDefault:"memory"`
	// QueueMaxDepth bounds pending submissions; past it uploads are
	// rejected with a try-again-later error. <= 0 disables the bound for
	// the redis backend.
	QueueMaxDepth int `env:"QUEUE_MAX_DEPTH" envDefault:"1024"`
	// QueueKey is the Redis list key used by the redis backend.
	QueueKey string `env:"QUEUE_KEY" envDefault:"boq:jobs"`

	// RedisAddr and RedisDB configure the redis queue backend.
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// StoreBackend selects the job store: "memory" or "postgres".
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	// DatabaseURL configures the postgres store backend.
	DatabaseURL string `env:"DATABASE_URL"`

	// MockExtractDelay is how long the placeholder DWG extractor sleeps.
	MockExtractDelay time.Duration `env:"MOCK_EXTRACT_DELAY" envDefault:"2s"`
	// ExtractTimeout bounds a single extraction; 0 means unlimited.
	ExtractTimeout time.Duration `env:"EXTRACT_TIMEOUT" envDefault:"0"`

	// JobRetention keeps terminal jobs for this long before the reaper
	// purges them; 0 disables the reaper.
	JobRetention time.Duration `env:"JOB_RETENTION" envDefault:"0"`
	// ReapInterval is how often the reaper sweeps.
	ReapInterval time.Duration `env:"REAP_INTERVAL" envDefault:"1m"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment. A .env file is applied
// first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	switch c.QueueBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend)
	}
	switch c.StoreBackend {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.QueueBackend == "memory" && c.QueueMaxDepth < 1 {
		return fmt.Errorf("QUEUE_MAX_DEPTH must be at least 1 for the memory queue, got %d", c.QueueMaxDepth)
	}
	return nil
}
