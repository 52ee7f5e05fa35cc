package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStatusSummary(t *testing.T) {
	ok := Status{Name: "FFmpeg", Command: "/usr/bin/ffmpeg", Available: true}
	if got := ok.Summary(); got != "/usr/bin/ffmpeg" {
		t.Fatalf("available summary: got %q want %q", got, "/usr/bin/ffmpeg")
	}
	missing := Status{Name: "FFmpeg", Command: "ffmpeg", Detail: `binary "ffmpeg" not found`}
	if got := missing.Summary(); got != missing.Detail {
		t.Fatalf("missing summary: got %q want %q", got, missing.Detail)
	}
	bare := Status{Name: "FFmpeg"}
	if got := bare.Summary(); got != "FFmpeg unavailable" {
		t.Fatalf("bare summary: got %q want %q", got, "FFmpeg unavailable")
	}
}

func TestCheckFFmpegConfiguredDir(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, "ffmpeg")

	if status := CheckFFmpeg(ffmpeg); status.Available {
		t.Fatalf("expected missing configured ffmpeg, got %#v", status)
	}

	if err := os.WriteFile(ffmpeg, []byte("data"), 0o644); err != nil {
		t.Fatalf("write ffmpeg: %v", err)
	}
	if status := CheckFFmpeg(ffmpeg); status.Available || !strings.Contains(status.Detail, "not executable") {
		t.Fatalf("expected non-executable ffmpeg to be rejected, got %#v", status)
	}

	if err := os.Chmod(ffmpeg, 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	status := CheckFFmpeg(ffmpeg)
	if !status.Available || status.Command != ffmpeg {
		t.Fatalf("expected configured ffmpeg, got %#v", status)
	}
}

func TestCheckFFmpegPathLookup(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	status := CheckFFmpeg("")
	if !status.Available || status.Command != ffmpeg {
		t.Fatalf("expected ffmpeg from PATH, got %#v", status)
	}

	t.Setenv("PATH", t.TempDir())
	if status := CheckFFmpeg("ffmpeg"); status.Available {
		t.Fatalf("expected ffmpeg to be missing, got %#v", status)
	}
}
