package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateExport() error {
	switch c.Export.Delimiter {
	case "comma", "tab":
	default:
		return fmt.Errorf("export.delimiter must be %q or %q, got %q", "comma", "tab", c.Export.Delimiter)
	}
	return nil
}

func (c *Config) validateValidation() error {
	t := c.Validation.NearlyEmptyThreshold
	if t < 0 || t > 1 {
		return errors.New("validation.nearly_empty_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", "console", "json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}
