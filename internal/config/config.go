// Package config manages TaskDeck configuration. One canonical source:
// ~/.taskdeck/config.toml plus a small set of environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all client configuration.
type Config struct {
	Backend   BackendConfig   `toml:"backend"`
	Retry     RetryConfig     `toml:"retry"`
	Cache     CacheConfig     `toml:"cache"`
	Health    HealthConfig    `toml:"health"`
	Dashboard DashboardConfig `toml:"dashboard"`
}

// BackendConfig locates the task-execution backend.
//
// The canonical convention: BaseURL is scheme://host:port with no path;
// task routes live under APIPrefix; the health endpoint is /health at the
// root, outside the prefix.
type BackendConfig struct {
	BaseURL        string `toml:"base_url"`
	APIPrefix      string `toml:"api_prefix"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the per-call timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// RetryConfig controls the retry executor.
type RetryConfig struct {
	MaxRetries    int     `toml:"max_retries"`
	BaseDelayMS   int     `toml:"base_delay_ms"`
	MaxDelayMS    int     `toml:"max_delay_ms"`
	BackoffFactor float64 `toml:"backoff_factor"`
}

// CacheConfig controls the GET response cache.
type CacheConfig struct {
	Enabled             bool `toml:"enabled"`
	DefaultTTLSeconds   int  `toml:"default_ttl_seconds"`
	AnalyticsTTLSeconds int  `toml:"analytics_ttl_seconds"`
}

// DefaultTTL returns the TTL for cached list/detail responses.
func (c CacheConfig) DefaultTTL() time.Duration {
	if c.DefaultTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

// AnalyticsTTL returns the TTL for cached analytics responses.
func (c CacheConfig) AnalyticsTTL() time.Duration {
	if c.AnalyticsTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.AnalyticsTTLSeconds) * time.Second
}

// HealthConfig controls the health polling loop.
type HealthConfig struct {
	IntervalSeconds int  `toml:"interval_seconds"`
	MaxRetries      int  `toml:"max_retries"`
	RetryOnError    bool `toml:"retry_on_error"`
}

// Interval returns the polling interval.
func (h HealthConfig) Interval() time.Duration {
	if h.IntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(h.IntervalSeconds) * time.Second
}

// DashboardConfig controls the local dashboard sidecar server.
type DashboardConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DefaultConfig returns sensible defaults for a local backend.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8888",
			APIPrefix:      "/api/v1",
			TimeoutSeconds: 30,
		},
		Retry: RetryConfig{
			MaxRetries:    3,
			BaseDelayMS:   1000,
			MaxDelayMS:    30000,
			BackoffFactor: 2.0,
		},
		Cache: CacheConfig{
			Enabled:             true,
			DefaultTTLSeconds:   30,
			AnalyticsTTLSeconds: 60,
		},
		Health: HealthConfig{
			IntervalSeconds: 30,
			MaxRetries:      5,
			RetryOnError:    true,
		},
		Dashboard: DashboardConfig{
			Host: "127.0.0.1",
			Port: 8877,
		},
	}
}

// Load reads config from ~/.taskdeck/config.toml, falling back to
// defaults, then applies environment overrides.
func Load() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(taskdeckHome(), "config.toml")

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if env := os.Getenv("TASKDECK_BASE_URL"); env != "" {
		cfg.Backend.BaseURL = env
	}
	if env := os.Getenv("TASKDECK_API_PREFIX"); env != "" {
		cfg.Backend.APIPrefix = env
	}

	return cfg, nil
}

// Save writes the config to ~/.taskdeck/config.toml.
func Save(cfg Config) error {
	path := filepath.Join(taskdeckHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// taskdeckHome returns the TaskDeck data directory.
func taskdeckHome() string {
	if env := os.Getenv("TASKDECK_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".taskdeck")
}

// Home is exported for use by other packages.
func Home() string {
	return taskdeckHome()
}
