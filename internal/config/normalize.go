package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCapture(); err != nil {
		return err
	}
	c.normalizeLibrary()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.VideoRoot, err = expandPath(c.Paths.VideoRoot); err != nil {
		return fmt.Errorf("paths.video_root: %w", err)
	}
	if c.Paths.PhotoRoot, err = expandPath(c.Paths.PhotoRoot); err != nil {
		return fmt.Errorf("paths.photo_root: %w", err)
	}
	if c.Paths.AlternativePhotoRoot, err = expandPath(c.Paths.AlternativePhotoRoot); err != nil {
		return fmt.Errorf("paths.alternative_photo_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() error {
	c.Capture.Backend = strings.ToLower(strings.TrimSpace(c.Capture.Backend))
	if c.Capture.Backend == "" {
		c.Capture.Backend = DefaultBackend(goos)
	}
	if c.Capture.FFmpegDir == "" {
		if value, ok := os.LookupEnv("CAPDECK_FFMPEG_DIR"); ok {
			c.Capture.FFmpegDir = value
		}
	}
	if dir := strings.TrimSpace(c.Capture.FFmpegDir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("capture.ffmpeg_dir: %w", err)
		}
		c.Capture.FFmpegDir = expanded
	}
	if c.Capture.GracePeriodMs == 0 {
		c.Capture.GracePeriodMs = defaultGracePeriodMs
	}
	if c.Capture.ListTimeoutSeconds == 0 {
		c.Capture.ListTimeoutSeconds = defaultListTimeoutSeconds
	}
	c.Capture.Language = strings.TrimSpace(c.Capture.Language)
	if c.Capture.Language == "" {
		c.Capture.Language = defaultLanguage
	}
	return nil
}

func (c *Config) normalizeLibrary() {
	trim := func(value, fallback string) string {
		value = strings.Trim(strings.TrimSpace(value), `/\`)
		if value == "" {
			return fallback
		}
		return value
	}
	c.Library.TargetsDirName = trim(c.Library.TargetsDirName, defaultTargetsDirName)
	c.Library.VideoDirName = trim(c.Library.VideoDirName, defaultVideoDirName)
	c.Library.PhotoDirName = trim(c.Library.PhotoDirName, defaultPhotoDirName)
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
