package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_MissingSourcePath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Source.Path = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for missing source path")
	}
}

func TestValidate_RelativeSourcePath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Source.Path = "data/photos"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for relative source path")
	}
}

func TestValidate_NoMirrors(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Mirrors = nil

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for empty mirror list")
	}
	if !strings.Contains(err.Error(), "at least one mirror") {
		t.Errorf("Expected 'at least one mirror' error, got: %v", err)
	}
}

func TestValidate_RelativeMirror(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Mirrors = []string{"mnt/ssd-a"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for relative mirror mountpoint")
	}
}

func TestValidate_DuplicateMirrors(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Mirrors = []string{"/mnt/ssd-a", "/mnt/ssd-a"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for duplicate mirrors")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Expected 'duplicate' error, got: %v", err)
	}
}

func TestValidate_MirrorInsideSource(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Source.Path = "/data"
	cfg.Mirrors = []string{"/data/mirror"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for mirror nested under source")
	}
	if !strings.Contains(err.Error(), "overlaps") {
		t.Errorf("Expected 'overlaps' error, got: %v", err)
	}
}

func TestValidate_SourceInsideMirror(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Source.Path = "/mnt/ssd-a/data"
	cfg.Mirrors = []string{"/mnt/ssd-a"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for source nested under mirror")
	}
}

func TestValidate_InvalidLifecycleType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Lifecycle.Type = "udev"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown lifecycle type")
	}
}
