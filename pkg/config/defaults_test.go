package config

import (
	"testing"

	"github.com/marmos91/mirrord/pkg/space"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

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
	if cfg.Lifecycle.Poll == nil || cfg.Lifecycle.Device == nil {
		t.Error("Expected lifecycle option maps to be initialized")
	}
	if cfg.Metrics.Listen != ":9090" {
		t.Errorf("Expected default metrics listen ':9090', got %q", cfg.Metrics.Listen)
	}
}

func TestApplyDefaults_NormalizesLogLevel(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Format = "json"
	cfg.Sync.SpaceMarginBytes = 1
	cfg.Lifecycle.Type = "device"
	cfg.Metrics.Listen = ":9100"
	ApplyDefaults(cfg)

	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json' preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Sync.SpaceMarginBytes != 1 {
		t.Errorf("Expected space margin 1 preserved, got %d", cfg.Sync.SpaceMarginBytes)
	}
	if cfg.Lifecycle.Type != "device" {
		t.Errorf("Expected lifecycle type 'device' preserved, got %q", cfg.Lifecycle.Type)
	}
	if cfg.Metrics.Listen != ":9100" {
		t.Errorf("Expected metrics listen ':9100' preserved, got %q", cfg.Metrics.Listen)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected default config to pass validation, got error: %v", err)
	}
}
