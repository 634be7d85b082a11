package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/KirkDiggler/gridbus/internal/events"
)

// Config holds all configuration for the application
type Config struct {
	Log   LogConfig
	Redis RedisConfig
	Stats StatsConfig
	Demo  DemoConfig
}

// LogConfig controls the bus and descriptor reporters
type LogConfig struct {
	Level  string `env:"GRIDBUS_LOG_LEVEL"  envDefault:"info"`
	Prefix string `env:"GRIDBUS_LOG_PREFIX" envDefault:"EventBus: "`
}

// Severity returns the configured minimum reporter severity
func (c LogConfig) Severity() events.Severity {
	return events.ParseSeverity(c.Level)
}

// RedisConfig holds Redis-specific configuration.
// An empty URL keeps dispatch statistics in memory.
type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

// StatsConfig controls how often collected statistics are flushed
type StatsConfig struct {
	FlushInterval time.Duration `env:"GRIDBUS_STATS_FLUSH_INTERVAL" envDefault:"5s"`
}

// DemoConfig drives the demo simulation loop
type DemoConfig struct {
	Ticks        int           `env:"GRIDBUS_TICKS"         envDefault:"20"`
	TickInterval time.Duration `env:"GRIDBUS_TICK_INTERVAL" envDefault:"100ms"`
}

// Load loads configuration from a .env file, if present, and environment variables
func Load() (*Config, error) {
	// Missing .env is fine, the environment is used as is
	_ = godotenv.Load()

	return FromEnv()
}

// FromEnv parses configuration from the current environment only
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Validate
	if cfg.Stats.FlushInterval <= 0 {
		return nil, fmt.Errorf("GRIDBUS_STATS_FLUSH_INTERVAL must be positive")
	}
	if cfg.Demo.Ticks < 0 {
		return nil, fmt.Errorf("GRIDBUS_TICKS cannot be negative")
	}
	if cfg.Demo.TickInterval <= 0 {
		return nil, fmt.Errorf("GRIDBUS_TICK_INTERVAL must be positive")
	}

	return cfg, nil
}
