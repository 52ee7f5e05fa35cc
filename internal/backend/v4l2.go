package backend

import (
	"regexp"

	"capdeck/internal/facade"
	"capdeck/internal/settings"
)

// V4L2 captures from Linux Video4Linux2 devices.
type V4L2 struct{}

var (
	v4l2SourceLine = regexp.MustCompile(`^\s*(\*)?\s*(/dev/\S+)\s+\[(.*)]\s*$`)
	v4l2Missing    = regexp.MustCompile(`(/dev/\S+): No such file or directory`)
	v4l2Lost       = regexp.MustCompile(`(?i)(no such device|input/output error)`)
)

func (V4L2) Name() string { return "v4l2" }

func (V4L2) ListDevicesArgs() []string {
	return []string{"-hide_banner", "-sources", "v4l2"}
}

func (V4L2) ParseDevices(listing string) []Device {
	var devices []Device
	for _, line := range splitLines(listing) {
		if m := v4l2SourceLine.FindStringSubmatch(line); m != nil {
			devices = append(devices, Device{ID: m[2], Name: m[3], Default: m[1] == "*"})
		}
	}
	return devices
}

// Choose prefers the device ffmpeg marks as default, else the first listed.
func (v V4L2) Choose(devices []Device) (settings.Capture, error) {
	if len(devices) == 0 {
		return settings.Capture{}, noDevice(v.Name())
	}
	chosen := devices[0]
	for _, device := range devices {
		if device.Default {
			chosen = device
			break
		}
	}
	return settings.Capture{
		Device:      chosen.ID,
		Width:       640,
		Height:      480,
		FrameRate:   "30",
		PixelFormat: "yuyv422",
	}, nil
}

func (V4L2) DefaultTemplates(settings.Capture) settings.Templates {
	capture := append(quietArgs(),
		"-f", "v4l2",
		"-framerate", settings.PlaceholderFrameRate,
		"-video_size", settings.PlaceholderVideoSize,
		"-input_format", settings.PlaceholderPixelFormat,
		"-i", settings.PlaceholderDevice,
	)
	return settings.Templates{
		Capture: append(capture, rawOutput()...),
		Record:  recordTemplate(),
		Encode:  relayTemplate(),
	}
}

func (V4L2) ClassifyPreviewError(stderr string) facade.Classification {
	if m := v4l2Missing.FindStringSubmatch(stderr); m != nil {
		return facade.Classification{Kind: facade.FailureDeviceNotFound, Device: m[1]}
	}
	if v4l2Lost.MatchString(stderr) {
		return facade.Classification{Kind: facade.FailureDeviceConnectionLost}
	}
	return facade.Classification{Kind: facade.FailurePreviewing}
}

func (V4L2) ClassifyRecordError(stderr string) facade.Classification {
	return classifyRecord(stderr)
}
