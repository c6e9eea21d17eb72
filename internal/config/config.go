// Package config loads reel settings from a YAML file and REEL_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable, e.g. REEL_BACKEND.
const EnvPrefix = "reel"

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config holds the settings shared by every CLI command.
type Config struct {
	// Backend selects the record store: "sqlite" or "badger".
	Backend string `yaml:"backend"`
	// DatabasePath is the SQLite file or Badger directory. Required for both
	// backends, since each CLI command is a separate process.
	DatabasePath string `yaml:"databasePath" split_words:"true"`

	LogLevel  string `yaml:"logLevel"  split_words:"true"`
	LogFormat string `yaml:"logFormat" split_words:"true"`

	// RedisAddr enables the Redis stream sink when set.
	RedisAddr         string `yaml:"redisAddr"         split_words:"true"`
	RedisStream       string `yaml:"redisStream"       split_words:"true"`
	RedisStreamMaxLen int64  `yaml:"redisStreamMaxLen" split_words:"true"`

	// MetricsFile, when set, receives the Prometheus text exposition of the
	// run's metrics on exit.
	MetricsFile string `yaml:"metricsFile" split_words:"true"`

	// Tracing prints OpenTelemetry spans to stderr.
	Tracing bool `yaml:"tracing"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Backend:      BackendSQLite,
		DatabasePath: "reel.db",
		LogLevel:     "info",
		LogFormat:    "text",
		RedisStream:  "reel:events",
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := decodeYAML(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML overlays buf onto cfg, rejecting unknown keys.
func decodeYAML(buf []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendBadger:
	default:
		return fmt.Errorf("invalid backend %q: must be %s or %s", c.Backend, BackendSQLite, BackendBadger)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("databasePath is required for the %s backend", c.Backend)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}
	if c.RedisAddr != "" && c.RedisStream == "" {
		return errors.New("redisStream is required when redisAddr is set")
	}
	if c.RedisStreamMaxLen < 0 {
		return fmt.Errorf("invalid redisStreamMaxLen %d", c.RedisStreamMaxLen)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// NewLogger builds the process logger writing to w.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
