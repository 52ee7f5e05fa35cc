package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.VideoRoot) == "" {
		return errors.New("paths.video_root must be set")
	}
	if strings.TrimSpace(c.Paths.PhotoRoot) == "" {
		return errors.New("paths.photo_root must be set")
	}
	if c.Paths.AlternativePhotoRoot != "" && c.Paths.AlternativePhotoRoot == c.Paths.PhotoRoot {
		return errors.New("paths.alternative_photo_root must differ from paths.photo_root")
	}
	return nil
}

func (c *Config) validateCapture() error {
	switch c.Capture.Backend {
	case "avfoundation", "dshow", "v4l2":
	default:
		return fmt.Errorf("capture.backend: unsupported value %q (want avfoundation, dshow, or v4l2)", c.Capture.Backend)
	}
	if c.Capture.GracePeriodMs < 0 {
		return errors.New("capture.grace_period_ms must be positive")
	}
	if c.Capture.ListTimeoutSeconds < 0 {
		return errors.New("capture.list_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
