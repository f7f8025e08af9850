package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Struct tags cover per-field rules via go-playground/validator; rules that
// relate several fields are checked afterwards.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
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
	names := make(map[string]bool)
	for i, dev := range cfg.Devices {
		if names[dev.Name] {
			return fmt.Errorf("devices[%d]: duplicate device name %q", i, dev.Name)
		}
		names[dev.Name] = true

		switch dev.Type {
		case "ramdisk":
			if dev.BlockCount <= 0 {
				return fmt.Errorf("devices[%d]: ramdisk %q needs block_count > 0", i, dev.Name)
			}
		case "image":
			if dev.Path == "" {
				return fmt.Errorf("devices[%d]: image %q needs a path", i, dev.Name)
			}
		}
	}

	if cfg.Process.RateLimit.Burst > 0 && cfg.Process.RateLimit.RequestsPerSecond == 0 {
		return fmt.Errorf("process.rate_limit: burst is set but requests_per_second is 0 (unlimited)")
	}

	return nil
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
