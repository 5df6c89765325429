package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// At least one mirror must be configured
	if len(cfg.Mirrors) == 0 {
		return fmt.Errorf("mirrors: at least one mirror mountpoint must be configured")
	}

	// Mirror mountpoints must be unique
	seen := make(map[string]bool)
	for i, mirror := range cfg.Mirrors {
		clean := filepath.Clean(mirror)
		if seen[clean] {
			return fmt.Errorf("mirrors[%d]: duplicate mirror mountpoint %q", i, mirror)
		}
		seen[clean] = true
	}

	// A mirror nested under the source (or vice versa) would sync into itself
	source := filepath.Clean(cfg.Source.Path)
	for i, mirror := range cfg.Mirrors {
		clean := filepath.Clean(mirror)
		if clean == source || isUnder(clean, source) {
			return fmt.Errorf("mirrors[%d]: mountpoint %q overlaps the source directory %q", i, mirror, cfg.Source.Path)
		}
		if isUnder(source, clean) {
			return fmt.Errorf("mirrors[%d]: source directory %q lies under mountpoint %q", i, cfg.Source.Path, mirror)
		}
	}

	return nil
}

// isUnder reports whether path lies strictly below root.
func isUnder(path, root string) bool {
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
