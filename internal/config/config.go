// Package config loads typenav settings from .typenav/config.yaml, a .env
// file and TYPENAV_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/skelly-dev/typenav/internal/fileutil"
)

const (
	ContextDir = ".typenav"
	FileName   = "config.yaml"
	EnvFile    = ".env"
)

const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

// Config holds every tunable setting.
type Config struct {
	LogLevel        string        `yaml:"log_level"`
	Editor          string        `yaml:"editor,omitempty"`
	QueryTimeout    time.Duration `yaml:"query_timeout,omitempty"`
	ParallelQueries int           `yaml:"parallel_queries"`
	Languages       []string      `yaml:"languages,omitempty"`
	TraceExporter   string        `yaml:"trace_exporter"`
	MetricsFile     string        `yaml:"metrics_file,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:        "warn",
		ParallelQueries: 4,
		TraceExporter:   TraceExporterNone,
	}
}

// Path returns the config file location for a workspace root.
func Path(root string) string {
	return filepath.Join(root, ContextDir, FileName)
}

// Load reads the workspace config. A missing config file or .env file is
// not an error; malformed content is.
func Load(root string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(filepath.Join(root, EnvFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load %s: %w", EnvFile, err)
	}

	data, err := os.ReadFile(Path(root))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", Path(root), err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("failed to read %s: %w", Path(root), err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if value, ok := get("TYPENAV_LOG_LEVEL"); ok {
		c.LogLevel = value
	}
	if c.Editor == "" {
		for _, key := range []string{"VISUAL", "EDITOR"} {
			if value, ok := get(key); ok {
				c.Editor = value
				break
			}
		}
	}
	if value, ok := get("TYPENAV_EDITOR"); ok {
		c.Editor = value
	}
	if value, ok := get("TYPENAV_QUERY_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid TYPENAV_QUERY_TIMEOUT %q: %w", value, err)
		}
		c.QueryTimeout = timeout
	}
	if value, ok := get("TYPENAV_PARALLEL_QUERIES"); ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TYPENAV_PARALLEL_QUERIES %q: %w", value, err)
		}
		c.ParallelQueries = n
	}
	if value, ok := get("TYPENAV_TRACE_EXPORTER"); ok {
		c.TraceExporter = value
	}
	if value, ok := get("TYPENAV_METRICS_FILE"); ok {
		c.MetricsFile = value
	}
	return nil
}

// Validate rejects values no command could act on.
func (c Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.TraceExporter {
	case "", TraceExporterNone, TraceExporterStdout:
	default:
		return fmt.Errorf("unknown trace_exporter %q (expected none or stdout)", c.TraceExporter)
	}
	if c.ParallelQueries < 0 {
		return fmt.Errorf("parallel_queries must be >= 0, got %d", c.ParallelQueries)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("query_timeout must be >= 0, got %s", c.QueryTimeout)
	}
	return nil
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log_level %q (expected debug, info, warn or error)", value)
	}
}

// WriteDefault creates the config file with default values unless one
// already exists, and reports whether it wrote the file.
func WriteDefault(root string) (bool, error) {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return false, err
	}
	return fileutil.WriteIfMissing(Path(root), data, 0644)
}
