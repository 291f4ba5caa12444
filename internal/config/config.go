package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where `nudamu config init` writes and the CLI reads.
const DefaultPath = ".nudamu/config.yaml"

// Config holds all nudamu configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Task batch execution
	Solver SolverConfig `yaml:"solver"`

	// Run history database
	Store StoreConfig `yaml:"store"`

	// Datalog evidence trace
	Mangle MangleConfig `yaml:"mangle"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Watch mode
	Watch WatchConfig `yaml:"watch"`
}

// StoreConfig configures the SQLite run history.
type StoreConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// MangleConfig configures the evidence trace kernel.
type MangleConfig struct {
	Enabled bool `yaml:"enabled"`
	// Cap on derived facts per evaluation.
	DerivedFactLimit int `yaml:"derived_fact_limit"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "nudamu",
		Version: "0.3.0",

		Solver: SolverConfig{
			Concurrency:    4,
			TaskTimeout:    "30s",
			FitScore:       true,
			SynthesisDepth: 2,
		},

		Store: StoreConfig{
			Enabled:      true,
			DatabasePath: ".nudamu/history.db",
		},

		Mangle: MangleConfig{
			Enabled:          true,
			DerivedFactLimit: 100000,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},

		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("NUDAMU_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if level := os.Getenv("NUDAMU_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if raw := os.Getenv("NUDAMU_CONCURRENCY"); raw != "" {
		// Unparseable values are left for Validate to report.
		if n, err := strconv.Atoi(raw); err == nil {
			c.Solver.Concurrency = n
		} else {
			c.Solver.Concurrency = -1
		}
	}
}

// GetTaskTimeout returns the per-task timeout; zero disables it.
func (c *Config) GetTaskTimeout() time.Duration {
	return parseDuration(c.Solver.TaskTimeout, 0)
}

// GetWatchDebounce returns the watch debounce interval.
func (c *Config) GetWatchDebounce() time.Duration {
	return parseDuration(c.Watch.Debounce, 500*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// ValidFormats lists the accepted log formats.
var ValidFormats = []string{"json", "console"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.ValidateSolverLimits(); err != nil {
		return err
	}
	if c.Store.Enabled && c.Store.DatabasePath == "" {
		return fmt.Errorf("store enabled but database_path is empty (set NUDAMU_DB)")
	}
	if !contains(ValidLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	if !contains(ValidFormats, c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s (valid: %v)", c.Logging.Format, ValidFormats)
	}
	for name, raw := range map[string]string{
		"solver.task_timeout": c.Solver.TaskTimeout,
		"watch.debounce":      c.Watch.Debounce,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
