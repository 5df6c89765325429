package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/mirrord/pkg/space"
)

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func TestLoad_MinimalConfig(t *testing.T) {
	configPath := writeConfig(t, `
source:
  path: "/data/photos"

mirrors:
  - "/mnt/ssd-a"
  - "/mnt/ssd-b"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Source.Path != "/data/photos" {
		t.Errorf("Expected source path '/data/photos', got %q", cfg.Source.Path)
	}
	if len(cfg.Mirrors) != 2 {
		t.Fatalf("Expected 2 mirrors, got %d", len(cfg.Mirrors))
	}

	// Verify defaults were applied
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Sync.SpaceMarginBytes != space.DefaultMargin {
		t.Errorf("Expected default space margin %d, got %d", space.DefaultMargin, cfg.Sync.SpaceMarginBytes)
	}
	if cfg.Lifecycle.Type != "poll" {
		t.Errorf("Expected default lifecycle type 'poll', got %q", cfg.Lifecycle.Type)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
	if cfg.Metrics.Listen != ":9090" {
		t.Errorf("Expected default metrics listen ':9090', got %q", cfg.Metrics.Listen)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "debug"
  format: "json"
  output: "stderr"

source:
  path: "/data/photos"

mirrors:
  - "/mnt/ssd-a"

sync:
  space_margin_bytes: 20971520

lifecycle:
  type: "device"
  device:
    dir: "/dev"
    prefixes: ["sd", "mmcblk"]

metrics:
  enabled: true
  listen: "127.0.0.1:9100"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Level is normalized to uppercase
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Sync.SpaceMarginBytes != 20971520 {
		t.Errorf("Expected space margin 20971520, got %d", cfg.Sync.SpaceMarginBytes)
	}
	if cfg.Lifecycle.Type != "device" {
		t.Errorf("Expected lifecycle type 'device', got %q", cfg.Lifecycle.Type)
	}
	if cfg.Metrics.Listen != "127.0.0.1:9100" {
		t.Errorf("Expected metrics listen '127.0.0.1:9100', got %q", cfg.Metrics.Listen)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "INFO"

source:
  path: "/data/photos"

mirrors:
  - "/mnt/ssd-a"
`)

	t.Setenv("MIRRORD_LOGGING_LEVEL", "DEBUG")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected env override level 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `
source:
  path: /data
  invalid yaml here [[[
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_MissingSourceFailsValidation(t *testing.T) {
	configPath := writeConfig(t, `
mirrors:
  - "/mnt/ssd-a"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected validation error for missing source path")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	path := GetDefaultConfigPath()
	expected := filepath.Join("/custom/config", "mirrord", "config.yaml")
	if path != expected {
		t.Errorf("Expected %q, got %q", expected, path)
	}
}
