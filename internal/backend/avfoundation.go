package backend

import (
	"regexp"
	"strings"

	"capdeck/internal/facade"
	"capdeck/internal/settings"
)

// AVFoundation captures from macOS video devices.
type AVFoundation struct{}

var (
	avfDeviceLine = regexp.MustCompile(`^\[AVFoundation input device @ [^\]]+\] \[([0-9]+)\] ([^\]]+)$`)
	avfIOError    = regexp.MustCompile(`([0-9]+)(:.+: Input/output error)`)
)

func (AVFoundation) Name() string { return "avfoundation" }

func (AVFoundation) ListDevicesArgs() []string {
	return []string{"-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", ""}
}

// ParseDevices reads the video section of the listing and stops at the audio
// section.
func (AVFoundation) ParseDevices(listing string) []Device {
	var devices []Device
	inVideo := false
	for _, line := range splitLines(listing) {
		line = strings.TrimSpace(line)
		switch {
		case strings.Contains(line, "AVFoundation audio devices:"):
			return devices
		case strings.Contains(line, "AVFoundation video devices:"):
			inVideo = true
		case inVideo:
			if m := avfDeviceLine.FindStringSubmatch(line); m != nil {
				devices = append(devices, Device{ID: m[1], Name: m[2]})
			}
		}
	}
	return devices
}

// Choose always selects device index 0; AVFoundation lists the built-in
// camera first.
func (a AVFoundation) Choose(devices []Device) (settings.Capture, error) {
	if len(devices) == 0 {
		return settings.Capture{}, noDevice(a.Name())
	}
	return settings.Capture{
		Device:      "0",
		Width:       1280,
		Height:      720,
		FrameRate:   "30",
		PixelFormat: "yuyv422",
	}, nil
}

func (AVFoundation) DefaultTemplates(settings.Capture) settings.Templates {
	capture := append(quietArgs(),
		"-f", "avfoundation",
		"-framerate", settings.PlaceholderFrameRate,
		"-video_size", settings.PlaceholderVideoSize,
		"-pixel_format", settings.PlaceholderPixelFormat,
		"-i", settings.PlaceholderDevice+":none",
	)
	return settings.Templates{
		Capture: append(capture, rawOutput()...),
		Record:  recordTemplate(),
		Encode:  relayTemplate(),
	}
}

func (AVFoundation) ClassifyPreviewError(stderr string) facade.Classification {
	if m := avfIOError.FindStringSubmatch(stderr); m != nil && strings.Contains(stderr, "Invalid device index") {
		return facade.Classification{Kind: facade.FailureDeviceNotFound, Device: m[1]}
	}
	return facade.Classification{Kind: facade.FailurePreviewing}
}

func (AVFoundation) ClassifyRecordError(stderr string) facade.Classification {
	return classifyRecord(stderr)
}
