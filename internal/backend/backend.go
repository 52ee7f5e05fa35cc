package backend

import (
	"context"
	"fmt"
	"strings"

	"capdeck/internal/facade"
	"capdeck/internal/services"
	"capdeck/internal/settings"
)

// Default encoder knobs applied when a device is first resolved.
const (
	DefaultPreset = "veryfast"
	DefaultCRF    = "23"
)

// Device is one entry from a device listing.
type Device struct {
	ID      string
	Name    string
	Default bool
}

// Backend describes one ffmpeg input device layer.
type Backend interface {
	Name() string
	// ListDevicesArgs returns the arguments (without executable) that print
	// the device listing.
	ListDevicesArgs() []string
	ParseDevices(listing string) []Device
	// Choose picks the device to capture from and its initial parameters.
	Choose(devices []Device) (settings.Capture, error)
	DefaultTemplates(c settings.Capture) settings.Templates
	ClassifyPreviewError(stderr string) facade.Classification
	ClassifyRecordError(stderr string) facade.Classification
}

// ForName returns the backend registered under name.
func ForName(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "avfoundation":
		return AVFoundation{}, nil
	case "dshow":
		return DirectShow{}, nil
	case "v4l2":
		return V4L2{}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "backend", "select", fmt.Sprintf("unsupported backend %q", name), nil)
	}
}

// Runner executes a short command and returns its combined output.
type Runner interface {
	Output(ctx context.Context, argv []string) (string, error)
}

// Discover lists devices with executable and lets b choose one. The returned
// settings carry default templates, preset and CRF.
func Discover(ctx context.Context, runner Runner, b Backend, executable string) (settings.Capture, []Device, error) {
	argv := append([]string{executable}, b.ListDevicesArgs()...)
	listing, err := runner.Output(ctx, argv)
	if err != nil {
		return settings.Capture{}, nil, fmt.Errorf("list %s devices: %w", b.Name(), err)
	}
	devices := b.ParseDevices(listing)
	chosen, err := b.Choose(devices)
	if err != nil {
		return settings.Capture{}, devices, err
	}
	if chosen.Preset == "" {
		chosen.Preset = DefaultPreset
	}
	if chosen.CRF == "" {
		chosen.CRF = DefaultCRF
	}
	return chosen.WithDefaults(b.DefaultTemplates(chosen)), devices, nil
}

func noDevice(backend string) error {
	return fmt.Errorf("%w: %s listing contained no video devices", facade.ErrNoMediaDevice, backend)
}

// classifyRecord reports every recording failure as a generic recording
// exception. ffmpeg's write errors do not reliably distinguish a full disk
// from lost file access.
func classifyRecord(string) facade.Classification {
	return facade.Classification{Kind: facade.FailureRecording}
}

func quietArgs() []string {
	return []string{"-hide_banner", "-loglevel", "error"}
}

func relayTemplate() []string {
	return append(quietArgs(),
		"-f", "rawvideo",
		"-pixel_format", settings.PlaceholderPixelFormat,
		"-video_size", settings.PlaceholderVideoSize,
		"-framerate", settings.PlaceholderFrameRate,
		"-i", "-",
		"-f", "rawvideo",
		"-pix_fmt", settings.DisplayPixelFormat,
		"-",
	)
}

func recordTemplate() []string {
	return append(quietArgs(),
		"-y",
		"-f", "rawvideo",
		"-pixel_format", settings.PlaceholderPixelFormat,
		"-video_size", settings.PlaceholderVideoSize,
		"-framerate", settings.PlaceholderFrameRate,
		"-i", "-",
		"-c:v", "libx264",
		"-preset", settings.PlaceholderPreset,
		"-crf", settings.PlaceholderCRF,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		settings.PlaceholderFile,
	)
}

func rawOutput() []string {
	return []string{"-f", "rawvideo", "-pix_fmt", settings.PlaceholderPixelFormat, "-"}
}

func splitLines(listing string) []string {
	return strings.Split(strings.ReplaceAll(listing, "\r\n", "\n"), "\n")
}
