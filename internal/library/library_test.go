package library_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"capdeck/internal/catalog"
	"capdeck/internal/config"
	"capdeck/internal/library"
	"capdeck/internal/messages"
	"capdeck/internal/preview"
	"capdeck/internal/services"
	"capdeck/internal/testsupport"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

type recordingCourier struct {
	mu   sync.Mutex
	keys []messages.Key
}

func (c *recordingCourier) Show(_ messages.Severity, key messages.Key, _ ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
}

func newManager(t *testing.T) (*library.Manager, *catalog.Store, *recordingCourier, string) {
	t.Helper()
	return newManagerWith(t, nil)
}

func newManagerWith(t *testing.T, adjust func(cfg *config.Config, base string)) (*library.Manager, *catalog.Store, *recordingCourier, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if adjust != nil {
		adjust(cfg, testsupport.BaseDir(cfg))
	}
	store := testsupport.MustOpenCatalog(t, cfg)
	courier := &recordingCourier{}
	mgr := library.New(library.Options{
		Paths:   cfg.Paths,
		Layout:  cfg.Library,
		Catalog: store,
		Courier: courier,
		Now:     func() time.Time { return fixedNow },
	})
	return mgr, store, courier, testsupport.BaseDir(cfg)
}

// blockedRoot returns a root below a regular file, so no directory can ever
// be created there.
func blockedRoot(t *testing.T, base, name string) string {
	t.Helper()
	blocker := filepath.Join(base, name+"-blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	return filepath.Join(blocker, name)
}

func photoFrame() preview.Frame {
	return preview.Frame{
		Width:    2,
		Height:   1,
		Pix:      []byte{0, 0, 255, 0, 255, 0, 0, 0},
		Captured: fixedNow,
	}
}

func TestSelection(t *testing.T) {
	mgr, _, _, _ := newManager(t)
	if mgr.HasSelection() {
		t.Fatal("expected no selection initially")
	}
	if _, err := mgr.SuggestVideoPath(); !errors.Is(err, library.ErrNoSelection) {
		t.Fatalf("SuggestVideoPath err got %v want ErrNoSelection", err)
	}
	for _, bad := range []string{"", "  ", "..", "a/b", `a\b`} {
		if err := mgr.Select(bad); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Select(%q) err got %v want validation", bad, err)
		}
	}
	if err := mgr.Select(" 42 "); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if id, ok := mgr.Selected(); !ok || id != "42" {
		t.Fatalf("Selected got %q %v", id, ok)
	}
	mgr.Deselect()
	if mgr.HasSelection() {
		t.Fatal("expected selection cleared")
	}
}

func TestSuggestVideoPathAvoidsCollisions(t *testing.T) {
	mgr, _, _, base := newManager(t)
	if err := mgr.Select("42"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	dir := filepath.Join(base, "videos", "targets", "42", "video")

	path, err := mgr.SuggestVideoPath()
	if err != nil {
		t.Fatalf("SuggestVideoPath: %v", err)
	}
	if want := filepath.Join(dir, "20260304-050607.mp4"); path != want {
		t.Fatalf("path got %q want %q", path, want)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	touch := func(name string) {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	touch("20260304-050607.mp4")
	touch("20260304-050607-1.mp4")
	path, err = mgr.SuggestVideoPath()
	if err != nil {
		t.Fatalf("SuggestVideoPath: %v", err)
	}
	if want := filepath.Join(dir, "20260304-050607-2.mp4"); path != want {
		t.Fatalf("path got %q want %q", path, want)
	}

	for i := 2; i <= 7; i++ {
		touch("20260304-050607-" + string(rune('0'+i)) + ".mp4")
	}
	if _, err := mgr.SuggestVideoPath(); err == nil {
		t.Fatal("expected error once every suffix is taken")
	}
}

func TestVideoAddedIsCataloged(t *testing.T) {
	mgr, store, _, _ := newManager(t)
	if err := mgr.Select("42"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	mgr.VideoAdded("/v/targets/42/videos/a.mp4")

	items, err := store.List(context.Background(), "42")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Kind != catalog.KindVideo {
		t.Fatalf("unexpected items %#v", items)
	}
}

func TestPhotoCapturedWritesPNG(t *testing.T) {
	mgr, store, courier, base := newManager(t)
	if err := mgr.Select("42"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	mgr.PhotoCaptured(photoFrame())
	mgr.Flush()

	want := filepath.Join(base, "photos", "targets", "42", "photos", "20260304-050607.png")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read photo: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Fatalf("photo is not a PNG: % x", data[:min(8, len(data))])
	}
	items, _ := store.List(context.Background(), "42")
	if len(items) != 1 || items[0].Kind != catalog.KindPhoto || items[0].Alternative {
		t.Fatalf("unexpected items %#v", items)
	}
	if len(courier.keys) != 0 {
		t.Fatalf("unexpected notices %v", courier.keys)
	}
}

func TestPhotoFallsBackToAlternativeRoot(t *testing.T) {
	mgr, store, courier, base := newManagerWith(t, func(cfg *config.Config, base string) {
		cfg.Paths.PhotoRoot = blockedRoot(t, base, "photos")
	})
	if err := mgr.Select("42"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	mgr.PhotoCaptured(photoFrame())
	mgr.Flush()

	want := filepath.Join(base, "photos-alt", "targets", "42", "photos", "20260304-050607.png")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected photo at alternative root: %v", err)
	}
	items, _ := store.List(context.Background(), "42")
	if len(items) != 1 || !items[0].Alternative {
		t.Fatalf("unexpected items %#v", items)
	}
	if len(courier.keys) != 0 {
		t.Fatalf("unexpected notices %v", courier.keys)
	}
}

func TestPhotoNotSavedNotifies(t *testing.T) {
	mgr, store, courier, _ := newManagerWith(t, func(cfg *config.Config, base string) {
		cfg.Paths.PhotoRoot = blockedRoot(t, base, "photos")
		cfg.Paths.AlternativePhotoRoot = blockedRoot(t, base, "photos-alt")
	})
	if err := mgr.Select("42"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	mgr.PhotoCaptured(photoFrame())
	mgr.Flush()

	if len(courier.keys) != 1 || courier.keys[0] != messages.PhotoNotSaved {
		t.Fatalf("notices got %v want [%s]", courier.keys, messages.PhotoNotSaved)
	}
	items, _ := store.List(context.Background(), "")
	if len(items) != 0 {
		t.Fatalf("expected nothing cataloged, got %#v", items)
	}
}
