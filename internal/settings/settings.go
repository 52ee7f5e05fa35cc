package settings

import (
	"fmt"
	"runtime"
	"strings"

	"capdeck/internal/config"
)

// Template placeholders understood by Expand.
const (
	PlaceholderCRF         = "{crf}"
	PlaceholderFile        = "{fileToRecord}"
	PlaceholderFrameRate   = "{frameRate}"
	PlaceholderPinNumber   = "{pinNumber}"
	PlaceholderPixelFormat = "{pixelFormat}"
	PlaceholderPreset      = "{preset}"
	PlaceholderDevice      = "{videoDevice}"
	PlaceholderVideoSize   = "{videoSize}"
)

// Capture is the resolved configuration of one capture device. A session
// treats it as immutable once previewing starts.
type Capture struct {
	Device      string `toml:"device"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	FrameRate   string `toml:"frame_rate"`
	PixelFormat string `toml:"pixel_format"`
	Preset      string `toml:"preset"`
	CRF         string `toml:"crf"`
	PinNumber   string `toml:"pin_number"`

	ExecutableDir string `toml:"executable_dir"`

	CaptureCommand []string `toml:"capture_command"`
	RecordCommand  []string `toml:"record_command"`
	EncodeCommand  []string `toml:"encode_command"`
}

// Templates groups the ffmpeg argument templates a backend ships with.
type Templates struct {
	Capture []string
	Record  []string
	Encode  []string
}

// HasDevice reports whether a device has been resolved.
func (c Capture) HasDevice() bool {
	return strings.TrimSpace(c.Device) != ""
}

// BytesPerFrame returns the raw frame size produced by the capture command.
func (c Capture) BytesPerFrame() (int, error) {
	return FrameSize(c.Width, c.Height, c.PixelFormat)
}

// DisplayBytesPerFrame returns the frame size after conversion to DisplayPixelFormat.
func (c Capture) DisplayBytesPerFrame() int {
	size, _ := FrameSize(c.Width, c.Height, DisplayPixelFormat)
	return size
}

// NeedsRelay reports whether frames must be converted before display.
func (c Capture) NeedsRelay() bool {
	return !strings.EqualFold(strings.TrimSpace(c.PixelFormat), DisplayPixelFormat)
}

// VideoSize renders the WIDTHxHEIGHT form, or "" when geometry is unset.
func (c Capture) VideoSize() string {
	if c.Width <= 0 || c.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// Executable returns the ffmpeg path for the configured executable directory.
func (c Capture) Executable() string {
	return config.FFmpegExecutable(c.ExecutableDir, runtime.GOOS)
}

// WithDefaults fills empty templates from t.
func (c Capture) WithDefaults(t Templates) Capture {
	if len(c.CaptureCommand) == 0 {
		c.CaptureCommand = append([]string(nil), t.Capture...)
	}
	if len(c.RecordCommand) == 0 {
		c.RecordCommand = append([]string(nil), t.Record...)
	}
	if len(c.EncodeCommand) == 0 {
		c.EncodeCommand = append([]string(nil), t.Encode...)
	}
	return c
}

// CaptureArgv returns the full capture command line.
func (c Capture) CaptureArgv() []string {
	return c.Expand(c.CaptureCommand, "")
}

// RecordArgv returns the full record command line writing to path.
func (c Capture) RecordArgv(path string) []string {
	return c.Expand(c.RecordCommand, path)
}

// EncodeArgv returns the full pixel-format relay command line.
func (c Capture) EncodeArgv() []string {
	return c.Expand(c.EncodeCommand, "")
}

// Expand substitutes placeholders in template and prepends the executable.
// Placeholders whose value is empty are left untouched.
func (c Capture) Expand(template []string, file string) []string {
	values := []replacement{
		{PlaceholderCRF, c.CRF},
		{PlaceholderFile, file},
		{PlaceholderFrameRate, c.FrameRate},
		{PlaceholderPinNumber, c.PinNumber},
		{PlaceholderPixelFormat, c.PixelFormat},
		{PlaceholderPreset, c.Preset},
		{PlaceholderDevice, c.Device},
		{PlaceholderVideoSize, c.VideoSize()},
	}
	argv := make([]string, 0, len(template)+1)
	argv = append(argv, c.Executable())
	for _, arg := range template {
		argv = append(argv, substitute(arg, values))
	}
	return argv
}

type replacement struct {
	placeholder string
	value       string
}

func substitute(arg string, values []replacement) string {
	if !strings.Contains(arg, "{") {
		return arg
	}
	for _, r := range values {
		if r.value == "" {
			continue
		}
		arg = strings.ReplaceAll(arg, r.placeholder, r.value)
	}
	return arg
}
