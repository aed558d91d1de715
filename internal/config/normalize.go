package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.Template != "" {
		if c.Paths.Template, err = expandPath(c.Paths.Template); err != nil {
			return fmt.Errorf("paths.template: %w", err)
		}
	}
	if c.Paths.Rules != "" {
		if c.Paths.Rules, err = expandPath(c.Paths.Rules); err != nil {
			return fmt.Errorf("paths.rules: %w", err)
		}
	}
	if c.Paths.Entries != "" {
		if c.Paths.Entries, err = expandPath(c.Paths.Entries); err != nil {
			return fmt.Errorf("paths.entries: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeExport() {
	c.Export.Delimiter = strings.ToLower(strings.TrimSpace(c.Export.Delimiter))
	if c.Export.Delimiter == "" {
		c.Export.Delimiter = defaultDelimiter
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
