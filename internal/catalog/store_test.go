package catalog_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"capdeck/internal/catalog"
	"capdeck/internal/testsupport"
)

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := testsupport.MustOpenCatalog(t, cfg)
	if _, err := first.Add(context.Background(), catalog.Item{Kind: catalog.KindVideo, Target: "7", Path: "/v/a.mp4"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := testsupport.MustOpenCatalog(t, cfg)
	items, err := second.List(context.Background(), "7")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "/v/a.mp4" {
		t.Fatalf("unexpected items after reopen: %#v", items)
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.CatalogPath())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	reopened, err := catalog.Open(cfg)
	if err == nil {
		_ = reopened.Close()
		t.Fatalf("expected newer schema to be rejected")
	}
	if !strings.Contains(err.Error(), "schema version 99") {
		t.Fatalf("unexpected error: got %v want mention of schema version 99", err)
	}
}

func TestAddAndList(t *testing.T) {
	store := testsupport.MustOpenCatalog(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	entries := []catalog.Item{
		{Kind: catalog.KindVideo, Target: "7", Path: "/v/7/a.mp4", SessionID: "s-1", CreatedAt: base},
		{Kind: catalog.KindPhoto, Target: "7", Path: "/p/7/a.png", Alternative: true, CreatedAt: base.Add(time.Minute)},
		{Kind: catalog.KindPhoto, Target: "9", Path: "/p/9/a.png", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		item, err := store.Add(ctx, e)
		if err != nil {
			t.Fatalf("Add(%s): %v", e.Path, err)
		}
		if item.ID == 0 || !item.CreatedAt.Equal(e.CreatedAt) {
			t.Fatalf("stored item %#v", item)
		}
	}

	items, err := store.List(ctx, "7")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0].Kind != catalog.KindVideo || items[0].SessionID != "s-1" || !items[1].Alternative {
		t.Fatalf("unexpected items %#v", items)
	}

	all, err := store.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("List all got %d items, err %v", len(all), err)
	}

	targets, err := store.Targets(ctx)
	if err != nil {
		t.Fatalf("Targets: %v", err)
	}
	if len(targets) != 2 || targets[0].Target != "7" || targets[0].Videos != 1 || targets[0].Photos != 1 {
		t.Fatalf("unexpected summaries %#v", targets)
	}
	if !targets[1].LastAdded.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("last added got %v", targets[1].LastAdded)
	}
}

func TestAddSamePathUpdates(t *testing.T) {
	store := testsupport.MustOpenCatalog(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.Add(ctx, catalog.Item{Kind: catalog.KindPhoto, Target: "7", Path: "/p/a.png", Alternative: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	item, err := store.Add(ctx, catalog.Item{Kind: catalog.KindPhoto, Target: "7", Path: "/p/a.png"})
	if err != nil {
		t.Fatalf("Add again: %v", err)
	}
	if item.Alternative {
		t.Fatal("second add did not update the row")
	}
	items, _ := store.List(ctx, "")
	if len(items) != 1 {
		t.Fatalf("expected one row, got %d", len(items))
	}
}

func TestAddValidates(t *testing.T) {
	store := testsupport.MustOpenCatalog(t, testsupport.NewConfig(t))
	ctx := context.Background()
	bad := []catalog.Item{
		{Kind: catalog.KindVideo, Path: "/v/a.mp4"},
		{Kind: catalog.KindVideo, Target: "7"},
		{Kind: "audio", Target: "7", Path: "/a/a.mp3"},
	}
	for _, item := range bad {
		if _, err := store.Add(ctx, item); err == nil {
			t.Fatalf("expected error for %#v", item)
		}
	}
	missing, err := store.GetByPath(ctx, "/nowhere")
	if err != nil || missing != nil {
		t.Fatalf("GetByPath missing got %#v, %v", missing, err)
	}
}

func TestPruneMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	existing := filepath.Join(testsupport.BaseDir(cfg), "kept.mp4")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, path := range []string{existing, filepath.Join(testsupport.BaseDir(cfg), "gone.mp4")} {
		if _, err := store.Add(ctx, catalog.Item{Kind: catalog.KindVideo, Target: "7", Path: path}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	removed, err := store.PruneMissing(ctx)
	if err != nil {
		t.Fatalf("PruneMissing: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d want 1", removed)
	}
	items, _ := store.List(ctx, "")
	if len(items) != 1 || items[0].Path != existing {
		t.Fatalf("unexpected items %#v", items)
	}
}
