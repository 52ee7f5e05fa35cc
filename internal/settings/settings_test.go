package settings_test

import (
	"errors"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"capdeck/internal/config"
	"capdeck/internal/settings"
)

func TestFrameSize(t *testing.T) {
	tests := []struct {
		format string
		width  int
		height int
		want   int
	}{
		{"bgr0", 1280, 720, 3686400},
		{"yuyv422", 640, 480, 614400},
		{"uyvy422", 1920, 1080, 4147200},
		{"yuv420p", 640, 480, 460800},
		{"nv12", 1280, 720, 1382400},
		{"rgb24", 2, 2, 12},
		{"gray", 10, 10, 100},
		{"BGRA", 1, 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := settings.FrameSize(tt.width, tt.height, tt.format)
			if err != nil {
				t.Fatalf("FrameSize returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("FrameSize(%d, %d, %q) = %d, want %d", tt.width, tt.height, tt.format, got, tt.want)
			}
		})
	}
}

func TestFrameSizeRejectsUnknownFormats(t *testing.T) {
	for _, format := range []string{"yuv999", "", "mjpeg"} {
		_, err := settings.FrameSize(1280, 720, format)
		if !errors.Is(err, settings.ErrInvalidPixelFormat) {
			t.Fatalf("FrameSize(%q) error = %v, want ErrInvalidPixelFormat", format, err)
		}
		var typed *settings.InvalidPixelFormatError
		if !errors.As(err, &typed) || typed.Format != format {
			t.Fatalf("expected typed error carrying %q, got %v", format, err)
		}
	}
}

func TestBytesPerFrameUsesCaptureGeometry(t *testing.T) {
	capture := settings.Capture{Device: "0", Width: 1280, Height: 720, FrameRate: "30", PixelFormat: "bgr0"}
	got, err := capture.BytesPerFrame()
	if err != nil {
		t.Fatalf("BytesPerFrame: %v", err)
	}
	if got != 3686400 {
		t.Fatalf("BytesPerFrame = %d, want 3686400", got)
	}
	if capture.NeedsRelay() {
		t.Fatal("bgr0 capture should not need a relay")
	}

	capture.PixelFormat = "yuyv422"
	if !capture.NeedsRelay() {
		t.Fatal("yuyv422 capture should need a relay")
	}
	if capture.DisplayBytesPerFrame() != 3686400 {
		t.Fatalf("unexpected display frame size %d", capture.DisplayBytesPerFrame())
	}
}

func TestExpandSubstitutesPlaceholders(t *testing.T) {
	capture := settings.Capture{
		Device:        "0",
		Width:         1280,
		Height:        720,
		FrameRate:     "30",
		PixelFormat:   "yuyv422",
		Preset:        "ultrafast",
		CRF:           "23",
		ExecutableDir: "/opt/ffmpeg",
		RecordCommand: []string{"-f", "rawvideo", "-pixel_format", "{pixelFormat}", "-video_size", "{videoSize}", "-framerate", "{frameRate}", "-i", "-", "-preset", "{preset}", "-crf", "{crf}", "{fileToRecord}"},
	}

	got := capture.RecordArgv("/videos/a.mp4")
	want := []string{
		config.FFmpegExecutable("/opt/ffmpeg", runtime.GOOS),
		"-f", "rawvideo", "-pixel_format", "yuyv422", "-video_size", "1280x720", "-framerate", "30",
		"-i", "-", "-preset", "ultrafast", "-crf", "23", "/videos/a.mp4",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("RecordArgv mismatch\n got %q\nwant %q", got, want)
	}
}

func TestExpandLeavesUnresolvedPlaceholders(t *testing.T) {
	capture := settings.Capture{Device: "Cam", CaptureCommand: []string{"-i", `video="{videoDevice}"`, "-crossbar_video_input_pin_number", "{pinNumber}", "{fileToRecord}"}}
	got := capture.CaptureArgv()
	want := []string{"ffmpeg", "-i", `video="Cam"`, "-crossbar_video_input_pin_number", "{pinNumber}", "{fileToRecord}"}
	if runtime.GOOS == "windows" {
		want[0] = "ffmpeg.exe"
	}
	if !slices.Equal(got, want) {
		t.Fatalf("CaptureArgv mismatch\n got %q\nwant %q", got, want)
	}
}

func TestWithDefaultsKeepsExistingTemplates(t *testing.T) {
	capture := settings.Capture{CaptureCommand: []string{"custom"}}
	merged := capture.WithDefaults(settings.Templates{Capture: []string{"default"}, Record: []string{"rec"}, Encode: []string{"enc"}})
	if !slices.Equal(merged.CaptureCommand, []string{"custom"}) {
		t.Fatalf("expected custom capture template kept, got %q", merged.CaptureCommand)
	}
	if !slices.Equal(merged.RecordCommand, []string{"rec"}) || !slices.Equal(merged.EncodeCommand, []string{"enc"}) {
		t.Fatalf("expected defaults filled, got %+v", merged)
	}
}

func TestStoreRoundTripKeepsSections(t *testing.T) {
	store := settings.NewStore(filepath.Join(t.TempDir(), "state", "settings.toml"))

	capture, prefs, err := store.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if capture.HasDevice() || prefs.Enabled {
		t.Fatalf("expected zero values, got %+v %+v", capture, prefs)
	}

	want := settings.Capture{Device: "/dev/video0", Width: 640, Height: 480, FrameRate: "30", PixelFormat: "yuyv422", CaptureCommand: []string{"-f", "v4l2"}}
	if err := store.SaveCapture(want); err != nil {
		t.Fatalf("SaveCapture: %v", err)
	}
	if err := store.SetEnabled(true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	capture, prefs, err = store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if capture.Device != want.Device || capture.Width != 640 || !slices.Equal(capture.CaptureCommand, want.CaptureCommand) {
		t.Fatalf("capture not preserved: %+v", capture)
	}
	if !prefs.Enabled || !store.Enabled() {
		t.Fatal("expected enabled preference to persist")
	}

	if err := store.SavePreferences(settings.Preferences{Enabled: false}); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	capture, _, err = store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if capture.Device != want.Device {
		t.Fatal("saving preferences must keep capture settings")
	}
}
