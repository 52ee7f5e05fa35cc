package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir             string `toml:"state_dir"`
	LogDir               string `toml:"log_dir"`
	VideoRoot            string `toml:"video_root"`
	PhotoRoot            string `toml:"photo_root"`
	AlternativePhotoRoot string `toml:"alternative_photo_root"`
}

// Capture contains configuration for the ffmpeg capture pipeline.
type Capture struct {
	// Backend selects the device backend: avfoundation, dshow, or v4l2.
	// Empty selects the platform default.
	Backend string `toml:"backend"`
	// FFmpegDir is the directory holding the ffmpeg executable. Empty uses PATH.
	FFmpegDir     string `toml:"ffmpeg_dir"`
	GracePeriodMs int    `toml:"grace_period_ms"`
	// ListTimeoutSeconds bounds the device listing command.
	ListTimeoutSeconds int    `toml:"list_timeout_seconds"`
	Language           string `toml:"language"`
}

// Library contains configuration for the media library layout.
type Library struct {
	TargetsDirName string `toml:"targets_dir_name"`
	VideoDirName   string `toml:"video_dir_name"`
	PhotoDirName   string `toml:"photo_dir_name"`
}

// Devices contains configuration for device hot-plug monitoring.
type Devices struct {
	WatchHotplug bool `toml:"watch_hotplug"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for capdeck.
//
// Configuration sections by subsystem:
//   - Paths: state, log, and media directories
//   - Capture: backend selection and ffmpeg process handling
//   - Library: folder names below the media roots
//   - Devices: hot-plug monitoring
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Capture Capture `toml:"capture"`
	Library Library `toml:"library"`
	Devices Devices `toml:"devices"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/capdeck/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("capdeck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// Media roots are created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dir := range []string{c.Paths.VideoRoot, c.Paths.PhotoRoot} {
		if strings.TrimSpace(dir) != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
	}
	return nil
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "capdeck.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "capdeck.lock")
}

// SettingsPath returns the persisted capture settings document.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Paths.StateDir, "settings.toml")
}

// CatalogPath returns the media catalog database location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.StateDir, "catalog.db")
}

// GracePeriod returns how long a stopping process may take before it is killed.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Capture.GracePeriodMs) * time.Millisecond
}

// ListTimeout bounds the device listing command.
func (c *Config) ListTimeout() time.Duration {
	return time.Duration(c.Capture.ListTimeoutSeconds) * time.Second
}

// FFmpegBinary returns the ffmpeg executable, honouring capture.ffmpeg_dir.
func (c *Config) FFmpegBinary() string {
	return FFmpegExecutable(c.Capture.FFmpegDir, goos)
}

// FFmpegExecutable resolves the ffmpeg executable name for dir on the given
// operating system. An empty dir yields the bare name for PATH lookup.
func FFmpegExecutable(dir, osName string) string {
	name := "ffmpeg"
	if osName == "windows" {
		name = "ffmpeg.exe"
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
