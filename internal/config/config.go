// Package config provides configuration loading for sessionlearn.
//
// Configuration is read from a YAML file, overridden by SESSIONLEARN_*
// environment variables, and completed with defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/sessionlearn/internal/logging"
)

// Config holds the complete sessionlearn configuration.
type Config struct {
	Store      StoreConfig      `koanf:"store"`
	Dedup      DedupConfig      `koanf:"dedup"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Secrets    SecretsConfig    `koanf:"secrets"`
	Logging    LoggingConfig    `koanf:"logging"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Watch      WatchConfig      `koanf:"watch"`
}

// StoreConfig locates the memory store.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// DedupConfig tunes duplicate suppression.
type DedupConfig struct {
	Threshold float64 `koanf:"threshold"` // Inclusive similarity threshold in (0, 1]
}

// ExtractionConfig holds signal extraction settings.
type ExtractionConfig struct {
	RulesFile      string `koanf:"rules_file"`      // Project-scoped TOML rules
	UserRulesFile  string `koanf:"user_rules_file"` // User-scoped TOML rules
	MaxTitleLength int    `koanf:"max_title_length"`
}

// SecretsConfig controls secret scrubbing of new entries.
type SecretsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AllowlistPath string `koanf:"allowlist_path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

// MetricsConfig controls the Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"` // Empty disables the export
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce Duration `koanf:"debounce"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Store:      StoreConfig{Path: "~/.config/sessionlearn/learnings.md"},
		Dedup:      DedupConfig{Threshold: 0.6},
		Extraction: ExtractionConfig{MaxTitleLength: 80},
		Secrets:    SecretsConfig{Enabled: true},
		Logging:    LoggingConfig{Level: "warn", Format: "console"},
		Watch:      WatchConfig{Debounce: Duration(2 * time.Second)},
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - The store path is empty
//   - The dedup threshold is outside (0, 1]
//   - The maximum title length is not positive
//   - The log level or format is unknown
//   - The watch debounce is not positive
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("store path is required")
	}
	if c.Dedup.Threshold <= 0 || c.Dedup.Threshold > 1 {
		return fmt.Errorf("invalid dedup threshold: %v (must be in (0, 1])", c.Dedup.Threshold)
	}
	if c.Extraction.MaxTitleLength <= 0 {
		return fmt.Errorf("invalid max title length: %d (must be positive)", c.Extraction.MaxTitleLength)
	}
	if _, err := logging.LevelFromString(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format %q (must be json or console)", c.Logging.Format)
	}
	if c.Watch.Debounce.Duration() <= 0 {
		return errors.New("watch debounce must be positive")
	}
	return nil
}

// LoggerConfig converts the logging section into a logger configuration.
func (c *Config) LoggerConfig() (*logging.Config, error) {
	level, err := logging.LevelFromString(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	cfg := logging.NewDefaultConfig()
	cfg.Level = level
	cfg.Format = c.Logging.Format
	return cfg, nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
