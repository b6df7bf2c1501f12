// Package config loads usergrid configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kittclouds/usergrid/internal/store"
	"github.com/kittclouds/usergrid/pkg/coordinator"
	"github.com/kittclouds/usergrid/pkg/logging"
)

// EnvBackendURL overrides backend.url when set.
const EnvBackendURL = "USERGRID_BACKEND_URL"

// Config is the root of a usergrid.yaml file.
type Config struct {
	Backend     BackendConfig     `yaml:"backend"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// BackendConfig describes where records live.
// An empty URL means the CLI works against the local SQL store.
type BackendConfig struct {
	URL          string        `yaml:"url"`
	Driver       string        `yaml:"driver"`
	DSN          string        `yaml:"dsn"`
	BulkEndpoint bool          `yaml:"bulkEndpoint"`
	Listen       string        `yaml:"listen"`
	Timeout      time.Duration `yaml:"timeout"`
}

// CoordinatorConfig tunes the save coordinator.
type CoordinatorConfig struct {
	LockScope    string        `yaml:"lockScope"`
	BulkFallback bool          `yaml:"bulkFallback"`
	Timeout      time.Duration `yaml:"timeout"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Driver:  store.DriverSQLite,
			DSN:     ":memory:",
			Listen:  ":3000",
			Timeout: 10 * time.Second,
		},
		Coordinator: CoordinatorConfig{
			LockScope:    string(coordinator.ScopeKind),
			BulkFallback: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(logging.FormatText),
		},
	}
}

// Load reads path over the defaults. An empty path skips the file.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if url := strings.TrimSpace(os.Getenv(EnvBackendURL)); url != "" {
		cfg.Backend.URL = url
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values and durations.
func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("config: backend.driver %q: want %s or %s",
			c.Backend.Driver, store.DriverSQLite, store.DriverPostgres)
	}
	if c.Backend.DSN == "" {
		return fmt.Errorf("config: backend.dsn is empty")
	}
	if c.Backend.Timeout < 0 || c.Coordinator.Timeout < 0 {
		return fmt.Errorf("config: timeouts must not be negative")
	}
	if _, err := coordinator.ParseLockScope(c.Coordinator.LockScope); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: logging.level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", string(logging.FormatText), string(logging.FormatJSON):
	default:
		return fmt.Errorf("config: logging.format %q", c.Logging.Format)
	}
	return nil
}

// Remote reports whether the CLI should talk to an HTTP backend.
func (c *Config) Remote() bool {
	return c.Backend.URL != ""
}

// CoordinatorOptions turns the coordinator section into options.
// It assumes Validate has passed.
func (c *Config) CoordinatorOptions() []coordinator.Option {
	scope, _ := coordinator.ParseLockScope(c.Coordinator.LockScope)
	opts := []coordinator.Option{
		coordinator.WithLockScope(scope),
		coordinator.WithBulkFallback(c.Coordinator.BulkFallback),
	}
	if c.Coordinator.Timeout > 0 {
		opts = append(opts, coordinator.WithTimeout(c.Coordinator.Timeout))
	}
	return opts
}

// LoggerConfig returns the logging.Config for the logging section.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.Logging.Level)
	cfg.Format = logging.ParseFormat(c.Logging.Format)
	return cfg
}
