package preflight

import (
	"context"
	"strings"

	"capdeck/internal/config"
	"capdeck/internal/deps"
)

// minFreeBytes is the free space below which a media root is reported.
const minFreeBytes = 1 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: status.Summary()})
	}

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	for _, dir := range []struct {
		name string
		path string
	}{
		{"Video root", cfg.Paths.VideoRoot},
		{"Photo root", cfg.Paths.PhotoRoot},
		{"Alternative photo root", cfg.Paths.AlternativePhotoRoot},
	} {
		if strings.TrimSpace(dir.path) == "" {
			continue
		}
		access := CheckDirectoryAccess(dir.name, dir.path)
		results = append(results, access)
		if access.Passed {
			results = append(results, CheckFreeSpace(dir.name+" free space", dir.path, minFreeBytes))
		}
	}
	return results
}

// CheckSystemDeps evaluates the external binaries capture depends on.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	return []deps.Status{deps.CheckFFmpeg(cfg.FFmpegBinary())}
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
