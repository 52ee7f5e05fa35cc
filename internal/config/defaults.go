package config

import "runtime"

const (
	defaultStateDir             = "~/.local/share/capdeck"
	defaultLogDir               = "~/.local/share/capdeck/logs"
	defaultVideoRoot            = "~/Videos/capdeck"
	defaultPhotoRoot            = "~/Pictures/capdeck"
	defaultAlternativePhotoRoot = "~/.local/share/capdeck/photos"
	defaultGracePeriodMs        = 3000
	defaultListTimeoutSeconds   = 10
	defaultLanguage             = "en"
	defaultTargetsDirName       = "targets"
	defaultVideoDirName         = "video"
	defaultPhotoDirName         = "photos"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

var goos = runtime.GOOS

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:             defaultStateDir,
			LogDir:               defaultLogDir,
			VideoRoot:            defaultVideoRoot,
			PhotoRoot:            defaultPhotoRoot,
			AlternativePhotoRoot: defaultAlternativePhotoRoot,
		},
		Capture: Capture{
			Backend:            DefaultBackend(goos),
			GracePeriodMs:      defaultGracePeriodMs,
			ListTimeoutSeconds: defaultListTimeoutSeconds,
			Language:           defaultLanguage,
		},
		Library: Library{
			TargetsDirName: defaultTargetsDirName,
			VideoDirName:   defaultVideoDirName,
			PhotoDirName:   defaultPhotoDirName,
		},
		Devices: Devices{
			WatchHotplug: goos == "linux",
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DefaultBackend returns the capture backend native to the operating system.
func DefaultBackend(osName string) string {
	switch osName {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "v4l2"
	}
}
