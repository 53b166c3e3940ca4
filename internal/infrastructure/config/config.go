package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/membrane/internal/realm"
	"github.com/GriffinCanCode/membrane/internal/scenario"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Realm     RealmConfig
	Scenarios ScenarioConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// RealmConfig holds script realm limits.
type RealmConfig struct {
	Timeout          time.Duration `envconfig:"REALM_TIMEOUT" default:"5s"`
	MaxCallStackSize int           `envconfig:"REALM_MAX_CALL_STACK" default:"1024"`
	EnableConsole    bool          `envconfig:"REALM_CONSOLE" default:"true"`
}

// ScenarioConfig holds scenario catalog and run table settings.
type ScenarioConfig struct {
	Dir             string        `envconfig:"SCENARIO_DIR" default:""`
	MaxRuns         int           `envconfig:"SCENARIO_MAX_RUNS" default:"32"`
	QuarantineAfter uint32        `envconfig:"SCENARIO_QUARANTINE_AFTER" default:"3"`
	QuarantineFor   time.Duration `envconfig:"SCENARIO_QUARANTINE_FOR" default:"30s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Realm: RealmConfig{
			Timeout:          5 * time.Second,
			MaxCallStackSize: 1024,
			EnableConsole:    true,
		},
		Scenarios: ScenarioConfig{
			MaxRuns:         32,
			QuarantineAfter: 3,
			QuarantineFor:   30 * time.Second,
		},
	}
}

// RealmConfig converts the realm section for the realm package.
func (c *Config) RealmConfig() realm.Config {
	return realm.Config{
		Timeout:          c.Realm.Timeout,
		MaxCallStackSize: c.Realm.MaxCallStackSize,
		EnableConsole:    c.Realm.EnableConsole,
	}
}

// RunnerConfig converts the realm and scenario sections for the runner.
func (c *Config) RunnerConfig() scenario.Config {
	return scenario.Config{
		Realm:           c.RealmConfig(),
		MaxRuns:         c.Scenarios.MaxRuns,
		QuarantineAfter: c.Scenarios.QuarantineAfter,
		QuarantineFor:   c.Scenarios.QuarantineFor,
	}
}
