// Package config handles process-level aquasim configuration: logging,
// data directory, and history-sink settings. Scenario content itself
// (components, topology, agents) is handled by the scenario package;
// this package covers only what governs the process running it.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds process-level aquasim configuration.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	DataDir  string        `yaml:"data_dir"`
	History  HistoryConfig `yaml:"history"`
}

// HistoryConfig controls how tick history is retained during a run.
type HistoryConfig struct {
	// SinkPath is the sqlite database path for the streaming history
	// sink. Empty disables streaming and keeps history in memory only.
	SinkPath string `yaml:"sink_path"`
	// FlushInterval is the number of ticks buffered before the sink
	// flushes to disk.
	FlushInterval int `yaml:"flush_interval"`
	// RetainTicks bounds in-memory retention when a sink is active: once
	// exceeded, the oldest flushed ticks are pruned from memory (they
	// remain durable in the sink). Zero means unbounded.
	RetainTicks int `yaml:"retain_ticks"`
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates the
// result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Called automatically by Load. After this, callers can read any field
// without checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.History.FlushInterval == 0 {
		c.History.FlushInterval = 100
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.History.FlushInterval < 1 {
		return fmt.Errorf("history.flush_interval %d must be positive", c.History.FlushInterval)
	}
	if c.History.RetainTicks < 0 {
		return fmt.Errorf("history.retain_ticks %d must not be negative", c.History.RetainTicks)
	}
	return nil
}

// Default returns a default configuration suitable for running a
// scenario with in-memory-only history. All defaults are already
// applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LevelTrace is a custom log level below Debug for wire-level forensics.
const LevelTrace = slog.Level(-8)

// ParseLogLevel converts a string to a slog.Level.
// Supported values: trace, debug, info, warn, error (case-insensitive).
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: trace, debug, info, warn, error)", s)
	}
}

// ReplaceLogLevelNames customizes the level name for Trace in log output.
func ReplaceLogLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}
