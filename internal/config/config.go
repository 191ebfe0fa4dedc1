// Package config provides configuration management for the storage engine.
// It loads settings from an optional YAML file and environment variables,
// layered over built-in defaults, with thread-safe singleton access.
package config

import (
	"log/slog"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultConfigFile is the conventional name for an engine config file,
// looked up relative to the current working directory.
const DefaultConfigFile = "bitlog.yml"

// defaultCompactionThreshold is 1 MiB, the value spec.md §4.6 suggests:
// large enough that a single plausible frame never triggers pathological
// recompaction.
const defaultCompactionThreshold = 1 << 20

// Config holds all tunables for the storage engine.
type Config struct {
	// CompactionThreshold is the garbage-byte level, in bytes, at which a
	// write boundary triggers compaction.
	CompactionThreshold int64 `yaml:"compaction_threshold"`
	// LogLevel controls the slog.Level used by the default logger.
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		CompactionThreshold: defaultCompactionThreshold,
		LogLevel:            "info",
	}
}

var (
	appConfig *Config
	once      sync.Once
	initErr   error
)

// LoadConfig builds the engine configuration by layering, lowest priority
// first: built-in defaults, an optional bitlog.yml in the current working
// directory, and environment variables (expanded into the YAML the way the
// teacher's config loader does, via os.ExpandEnv). It uses a sync.Once so
// concurrent callers all observe the same, single load. A missing config
// file is not an error: defaults apply.
func LoadConfig() (*Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			slog.Debug("config: no .env file found or error loading it", "error", err)
		} else {
			slog.Debug("config: .env file loaded successfully")
		}

		cfg := Default()

		raw, err := os.ReadFile(DefaultConfigFile)
		switch {
		case err == nil:
			expanded := os.ExpandEnv(string(raw))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				initErr = err
				return
			}
		case os.IsNotExist(err):
			slog.Debug("config: no bitlog.yml found, using defaults")
		default:
			initErr = err
			return
		}

		if cfg.CompactionThreshold <= 0 {
			cfg.CompactionThreshold = defaultCompactionThreshold
		}
		if cfg.LogLevel == "" {
			cfg.LogLevel = "info"
		}

		appConfig = cfg
	})
	if initErr != nil {
		return nil, initErr
	}
	return appConfig, nil
}

// SlogLevel maps the configured LogLevel string to a slog.Level, defaulting
// to Info for unrecognized values.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
