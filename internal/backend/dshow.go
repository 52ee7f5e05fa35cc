package backend

import (
	"regexp"
	"strings"

	"capdeck/internal/facade"
	"capdeck/internal/settings"
)

// DirectShow captures from Windows video devices.
type DirectShow struct{}

var (
	dshowDeviceLine      = regexp.MustCompile(`^\[dshow @ [^"]+][^"]+"([^"]+)"`)
	dshowAlternativeLine = regexp.MustCompile(`^\[dshow @ [^"]+][^"]+Alternative name[^"]+"([^"]+)"`)
)

// dshowPriority orders preferred capture cards; the empty entry matches anything.
var dshowPriority = []string{"Conexant Polaris Video Capture", "AVerMedia HD Capture", ""}

func (DirectShow) Name() string { return "dshow" }

func (DirectShow) ListDevicesArgs() []string {
	return []string{"-hide_banner", "-f", "dshow", "-list_devices", "true", "-i", "dummy"}
}

// ParseDevices pairs each video device line with the "Alternative name" line
// that follows it. The alternative name is the stable device path used as ID.
// Listings either group devices under a "DirectShow video devices" header or
// tag each line with "(video)".
func (DirectShow) ParseDevices(listing string) []Device {
	var devices []Device
	inVideo := false
	pending := ""
	for _, line := range splitLines(listing) {
		line = strings.TrimSpace(line)
		switch {
		case strings.Contains(line, "DirectShow audio devices"):
			return devices
		case strings.Contains(line, "DirectShow video devices"):
			inVideo = true
		case !inVideo && pending == "" && !strings.HasSuffix(line, "(video)"):
		case strings.HasSuffix(line, "(audio)"):
			pending = ""
		case pending == "":
			if strings.Contains(line, "Alternative name") {
				continue
			}
			if m := dshowDeviceLine.FindStringSubmatch(line); m != nil {
				pending = m[1]
			}
		default:
			if m := dshowAlternativeLine.FindStringSubmatch(line); m != nil {
				devices = append(devices, Device{ID: m[1], Name: pending})
				pending = ""
			}
		}
	}
	return devices
}

func (d DirectShow) Choose(devices []Device) (settings.Capture, error) {
	if len(devices) == 0 {
		return settings.Capture{}, noDevice(d.Name())
	}
	chosen := devices[0]
	for _, preferred := range dshowPriority {
		if idx := indexContaining(devices, preferred); idx >= 0 {
			chosen = devices[idx]
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

func indexContaining(devices []Device, fragment string) int {
	for i, device := range devices {
		if strings.Contains(device.Name, fragment) {
			return i
		}
	}
	return -1
}

// DefaultTemplates adds the crossbar pin selection only when a pin is set.
func (DirectShow) DefaultTemplates(c settings.Capture) settings.Templates {
	capture := append(quietArgs(),
		"-f", "dshow",
		"-framerate", settings.PlaceholderFrameRate,
		"-video_size", settings.PlaceholderVideoSize,
		"-pixel_format", settings.PlaceholderPixelFormat,
	)
	if strings.TrimSpace(c.PinNumber) != "" {
		capture = append(capture, "-crossbar_video_input_pin_number", settings.PlaceholderPinNumber)
	}
	capture = append(capture, "-i", `video=`+settings.PlaceholderDevice)
	return settings.Templates{
		Capture: append(capture, rawOutput()...),
		Record:  recordTemplate(),
		Encode:  relayTemplate(),
	}
}

// ClassifyPreviewError reports every DirectShow failure as a generic
// previewing exception; its messages do not identify missing devices reliably.
func (DirectShow) ClassifyPreviewError(string) facade.Classification {
	return facade.Classification{Kind: facade.FailurePreviewing}
}

func (DirectShow) ClassifyRecordError(stderr string) facade.Classification {
	return classifyRecord(stderr)
}
