// Package config loads the cache configuration from an optional TOML
// file and the environment. Environment variables override file values
// so deployments can patch single settings without editing the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Sternrassler/hybrid-kv-cache/pkg/local"
	"github.com/Sternrassler/hybrid-kv-cache/pkg/logging"
)

// Environment variables recognized by Load.
const (
	EnvRemoteURL      = "CACHE_REMOTE_URL"
	EnvLocalCapacity  = "CACHE_LOCAL_CAPACITY"
	EnvSweepInterval  = "CACHE_SWEEP_INTERVAL"
	EnvConnectTimeout = "CACHE_CONNECT_TIMEOUT"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogPretty      = "LOG_PRETTY"
	EnvPort           = "PORT"
)

// Config holds the full process configuration.
type Config struct {
	// RemoteURL is the address of the shared cache service.
	// Empty disables the remote backend.
	RemoteURL string

	// LocalCapacity is the maximum number of entries in the local store.
	LocalCapacity int

	// SweepInterval is the pause between expiry sweeps.
	SweepInterval time.Duration

	// ConnectTimeout bounds a single remote connect attempt.
	ConnectTimeout time.Duration

	// LogLevel is the minimum log level.
	LogLevel logging.LogLevel

	// LogPretty enables human-readable console output.
	LogPretty bool

	// Port is the HTTP listen port of the cache server.
	Port string
}

// fileConfig mirrors Config for TOML decoding. Durations are strings
// so the file can say "30s" instead of nanosecond counts.
type fileConfig struct {
	RemoteURL      string `toml:"remote_url"`
	LocalCapacity  int    `toml:"local_capacity"`
	SweepInterval  string `toml:"sweep_interval"`
	ConnectTimeout string `toml:"connect_timeout"`
	LogLevel       string `toml:"log_level"`
	LogPretty      bool   `toml:"log_pretty"`
	Port           string `toml:"port"`
}

// Default returns the built-in defaults: no remote, a 2000-entry local
// store swept every 30 seconds.
func Default() Config {
	return Config{
		LocalCapacity:  local.DefaultCapacity,
		SweepInterval:  30 * time.Second,
		ConnectTimeout: 5 * time.Second,
		LogLevel:       logging.LevelInfo,
		Port:           "8080",
	}
}

// Load builds the configuration from defaults, the optional TOML file
// at path (empty path skips the file), and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.LocalCapacity <= 0 {
		return Config{}, fmt.Errorf("local_capacity must be positive (got %d)", cfg.LocalCapacity)
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("sweep_interval must be positive (got %s)", cfg.SweepInterval)
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.RemoteURL != "" {
		cfg.RemoteURL = fc.RemoteURL
	}
	if fc.LocalCapacity != 0 {
		cfg.LocalCapacity = fc.LocalCapacity
	}
	if fc.SweepInterval != "" {
		d, err := time.ParseDuration(fc.SweepInterval)
		if err != nil {
			return fmt.Errorf("parse sweep_interval: %w", err)
		}
		cfg.SweepInterval = d
	}
	if fc.ConnectTimeout != "" {
		d, err := time.ParseDuration(fc.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("parse connect_timeout: %w", err)
		}
		cfg.ConnectTimeout = d
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = logging.LogLevel(fc.LogLevel)
	}
	if fc.LogPretty {
		cfg.LogPretty = true
	}
	if fc.Port != "" {
		cfg.Port = fc.Port
	}

	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvRemoteURL); v != "" {
		cfg.RemoteURL = v
	}
	if v := os.Getenv(EnvLocalCapacity); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvLocalCapacity, err)
		}
		cfg.LocalCapacity = n
	}
	if v := os.Getenv(EnvSweepInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvSweepInterval, err)
		}
		cfg.SweepInterval = d
	}
	if v := os.Getenv(EnvConnectTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvConnectTimeout, err)
		}
		cfg.ConnectTimeout = d
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = logging.LogLevel(v)
	}
	if v := os.Getenv(EnvLogPretty); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvLogPretty, err)
		}
		cfg.LogPretty = b
	}
	if v := os.Getenv(EnvPort); v != "" {
		cfg.Port = v
	}

	return nil
}
