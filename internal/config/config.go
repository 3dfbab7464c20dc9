// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	// DatabasePath is the SQLite database file shared with the upload
	// subsystem (pages are read from it, symbols and jobs written to it).
	DatabasePath string `yaml:"database_path"`

	// ImageRoot is the directory page image paths are resolved against.
	ImageRoot string `yaml:"image_root"`

	HTTP HTTPConfig `yaml:"http"`
	Log  LogConfig  `yaml:"log"`

	// MaxConcurrentJobs bounds how many extraction jobs run at once.
	MaxConcurrentJobs int64 `yaml:"max_concurrent_jobs"`

	// DemoMode replaces the real detector with a deterministic simulator
	// that produces plausible-looking regions without reading ink. Off by
	// default; intended for demo installations without manuscript scans.
	DemoMode bool `yaml:"demo_mode"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Per-client rate limiting.
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateBurst       int     `yaml:"rate_burst"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DatabasePath: "manuscript.db",
		ImageRoot:    "pages",
		HTTP: HTTPConfig{
			Addr:            ":8085",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitPerSec: 20,
			RateBurst:       40,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		MaxConcurrentJobs: 2,
	}
}

// Load reads configuration from path (optional, "" skips the file) and then
// applies environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SYMBOLS_DB_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("SYMBOLS_IMAGE_ROOT"); v != "" {
		c.ImageRoot = v
	}
	if v := os.Getenv("SYMBOLS_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("SYMBOLS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SYMBOLS_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("SYMBOLS_MAX_CONCURRENT_JOBS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxConcurrentJobs = n
		}
	}
	if v := os.Getenv("SYMBOLS_DEMO_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DemoMode = b
		}
	}
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must be set")
	}
	if c.ImageRoot == "" {
		return fmt.Errorf("image_root must be set")
	}
	if c.MaxConcurrentJobs < 1 {
		return fmt.Errorf("max_concurrent_jobs must be at least 1, got %d", c.MaxConcurrentJobs)
	}
	if c.HTTP.RateLimitPerSec <= 0 {
		return fmt.Errorf("rate_limit_per_sec must be positive")
	}
	return nil
}
