//go:build unix

package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"capdeck/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 0); !result.Passed {
		t.Fatalf("expected pass with zero minimum, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, ^uint64(0)); result.Passed {
		t.Fatalf("expected failure with impossible minimum, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "nope"), 0); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "ffmpeg"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Capture.FFmpegDir = binDir
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.VideoRoot = filepath.Join(base, "videos")
	cfg.Paths.PhotoRoot = filepath.Join(base, "photos")
	cfg.Paths.AlternativePhotoRoot = ""
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.VideoRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	results := RunAll(context.Background(), &cfg)
	var failed []Result
	for _, r := range Failed(results) {
		// Free space depends on the machine running the tests.
		if !strings.HasSuffix(r.Name, "free space") {
			failed = append(failed, r)
		}
	}
	if len(failed) != 1 || failed[0].Name != "Photo root" {
		t.Fatalf("expected only the photo root to fail, got %#v", failed)
	}
	if results[0].Name != "FFmpeg" || !results[0].Passed {
		t.Fatalf("expected ffmpeg check first and passing, got %#v", results[0])
	}
	for _, r := range results {
		if r.Name == "Alternative photo root" {
			t.Fatal("blank alternative root should be skipped")
		}
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %#v", results)
	}
}
