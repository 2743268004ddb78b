package beans

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds container settings that are usually loaded from a file.
type Config struct {
	// EagerInitSingletons builds every singleton on Start, not just the eager ones.
	EagerInitSingletons bool `yaml:"eager_init_singletons"`

	// ParallelWorkers bounds how many parallel beans are built at once.
	ParallelWorkers int `yaml:"parallel_workers"`

	// ShutdownOnParallelFailure stops the container when a parallel bean fails.
	ShutdownOnParallelFailure bool `yaml:"shutdown_on_parallel_failure"`

	// LogLevel builds a production logger at this level when no logger is given.
	// Empty disables logging.
	LogLevel string `yaml:"log_level"`

	// MetricsNamespace prefixes the Prometheus metric names.
	MetricsNamespace string `yaml:"metrics_namespace"`

	// CustomScopes names caching scopes to register at construction.
	CustomScopes []string `yaml:"custom_scopes"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		ParallelWorkers: runtime.GOMAXPROCS(0),
	}
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ConfigError describes an invalid configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ParallelWorkers < 1 {
		return &ConfigError{Field: "parallel_workers", Reason: fmt.Sprintf("must be at least 1, got %d", c.ParallelWorkers)}
	}

	if c.LogLevel != "" {
		if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
			return &ConfigError{Field: "log_level", Reason: err.Error()}
		}
	}

	seen := make(map[string]struct{}, len(c.CustomScopes))
	for _, name := range c.CustomScopes {
		switch strings.TrimSpace(name) {
		case "", ScopeSingleton, ScopePrototype:
			return &ConfigError{Field: "custom_scopes", Reason: fmt.Sprintf("scope name %q is reserved", name)}
		}
		if _, dup := seen[name]; dup {
			return &ConfigError{Field: "custom_scopes", Reason: fmt.Sprintf("scope %q listed twice", name)}
		}
		seen[name] = struct{}{}
	}

	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, &ConfigError{Field: "log_level", Reason: err.Error()}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
