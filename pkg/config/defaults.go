package config

import (
	"strings"

	"github.com/marmos91/mirrord/pkg/space"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Watcher-specific defaults are handled by the watcher implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applySyncDefaults(&cfg.Sync)
	applyLifecycleDefaults(&cfg.Lifecycle)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applySyncDefaults sets sync engine defaults.
func applySyncDefaults(cfg *SyncConfig) {
	if cfg.SpaceMarginBytes == 0 {
		cfg.SpaceMarginBytes = space.DefaultMargin
	}
}

// applyLifecycleDefaults sets lifecycle watcher defaults.
func applyLifecycleDefaults(cfg *LifecycleConfig) {
	if cfg.Type == "" {
		cfg.Type = "poll"
	}

	if cfg.Poll == nil {
		cfg.Poll = make(map[string]any)
	}
	if cfg.Device == nil {
		cfg.Device = make(map[string]any)
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false

	if cfg.Listen == "" {
		cfg.Listen = ":9090"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Source: SourceConfig{
			Path: "/srv/mirrord/source",
		},
		Mirrors: []string{"/mnt/mirror"},
	}

	ApplyDefaults(cfg)
	return cfg
}
