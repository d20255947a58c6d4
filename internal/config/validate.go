package config

import (
	"errors"
	"fmt"
)

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.Limits.SizeLimitBytes <= 0 {
		return fmt.Errorf("limits.size_limit_bytes must be positive, got %d", c.Limits.SizeLimitBytes)
	}
	if c.Limits.DocumentLimit < 1 {
		return fmt.Errorf("limits.document_limit must be at least 1, got %d", c.Limits.DocumentLimit)
	}
	if c.Split.Workers < 1 {
		return fmt.Errorf("split.workers must be at least 1, got %d", c.Split.Workers)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must not be empty")
	}
	return nil
}
