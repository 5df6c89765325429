package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete mirrord configuration.
//
// This structure captures all configurable aspects of the mirror daemon:
//   - Logging configuration
//   - Source directory to mirror from
//   - Mirror volume mountpoints
//   - Sync engine tuning (free-space margin)
//   - Volume lifecycle watcher selection and type-specific configuration
//   - Metrics exposure
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (MIRRORD_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Lifecycle Watcher Pattern:
// Each watcher implementation defines its own option map. The Lifecycle
// section contains type-specific subsections (lifecycle.poll, lifecycle.device)
// and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Source is the directory whose content is mirrored
	Source SourceConfig `mapstructure:"source"`

	// Mirrors lists the mountpoints kept as mirrors of the source
	Mirrors []string `mapstructure:"mirrors" validate:"dive,startswith=/"`

	// Sync tunes the reconciliation engine
	Sync SyncConfig `mapstructure:"sync"`

	// Lifecycle selects and configures the volume attach/detach watcher
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`

	// Metrics controls the Prometheus metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// SourceConfig identifies the directory to mirror from.
type SourceConfig struct {
	// Path is the absolute path of the source directory
	Path string `mapstructure:"path" validate:"required,startswith=/"`
}

// SyncConfig tunes the reconciliation engine.
type SyncConfig struct {
	// SpaceMarginBytes is the free space to leave untouched on each mirror.
	// Copies that would eat into this margin are skipped.
	SpaceMarginBytes uint64 `mapstructure:"space_margin_bytes"`
}

// LifecycleConfig specifies volume lifecycle watcher configuration.
//
// The Type field determines which watcher implementation is used.
// Only the corresponding type-specific configuration section is used.
type LifecycleConfig struct {
	// Type specifies which lifecycle watcher implementation to use
	// Valid values: poll, device
	Type string `mapstructure:"type" validate:"required,oneof=poll device"`

	// Poll contains poll-watcher configuration
	// Only used when Type = "poll"
	Poll map[string]any `mapstructure:"poll"`

	// Device contains device-watcher configuration
	// Only used when Type = "device"
	Device map[string]any `mapstructure:"device"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns metrics collection and the HTTP endpoint on
	Enabled bool `mapstructure:"enabled"`

	// Listen is the address the metrics server binds to, e.g. ":9090"
	Listen string `mapstructure:"listen"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (MIRRORD_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use MIRRORD_ prefix and underscores
	// Example: MIRRORD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("MIRRORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/mirrord/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file is acceptable - defaults apply
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "mirrord")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "mirrord")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}
