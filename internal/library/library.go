// Package library lays out captured media on disk for the selected target
// and records what was written in the catalog.
//
// Videos go to <video_root>/<targets>/<id>/<videos>/YYYYMMDD-HHMMSS.mp4 and
// photos to the same layout under photo_root as PNG files. Photos are
// written in the background; when the photo root cannot be written the
// alternative photo root is tried before the user is told the photo was
// lost.
package library

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"capdeck/internal/catalog"
	"capdeck/internal/config"
	"capdeck/internal/logging"
	"capdeck/internal/messages"
	"capdeck/internal/preview"
	"capdeck/internal/services"
)

const (
	timestampLayout = "20060102-150405"
	videoExt        = ".mp4"
	photoExt        = ".png"
	// maxCollisions bounds the -N suffixes tried when a name is taken.
	maxCollisions = 7
)

// ErrNoSelection is returned when a path is requested with nothing selected.
var ErrNoSelection = errors.New("no target selected")

// Catalog records written media.
type Catalog interface {
	Add(ctx context.Context, item catalog.Item) (*catalog.Item, error)
}

// Options configures a Manager.
type Options struct {
	Logger  *slog.Logger
	Paths   config.Paths
	Layout  config.Library
	Catalog Catalog
	Courier messages.Courier
	Now     func() time.Time
}

// Manager tracks the selected target.
type Manager struct {
	logger  *slog.Logger
	paths   config.Paths
	layout  config.Library
	catalog Catalog
	courier messages.Courier
	now     func() time.Time

	mu       sync.Mutex
	selected string

	pending sync.WaitGroup
}

// New builds a Manager.
func New(opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		logger:  logging.NewComponentLogger(logger, "library"),
		paths:   opts.Paths,
		layout:  opts.Layout,
		catalog: opts.Catalog,
		courier: opts.Courier,
		now:     now,
	}
}

// Select makes id the active target.
func (m *Manager) Select(id string) error {
	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return services.Wrap(services.ErrValidation, "library", "select", fmt.Sprintf("invalid target id %q", id), nil)
	}
	m.mu.Lock()
	m.selected = id
	m.mu.Unlock()
	m.logger.Info("target selected", logging.String("target", id))
	return nil
}

// Deselect clears the active target.
func (m *Manager) Deselect() {
	m.mu.Lock()
	m.selected = ""
	m.mu.Unlock()
}

// Selected returns the active target id.
func (m *Manager) Selected() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected, m.selected != ""
}

func (m *Manager) HasSelection() bool {
	_, ok := m.Selected()
	return ok
}

// SuggestVideoPath returns a free file name for the next recording.
func (m *Manager) SuggestVideoPath() (string, error) {
	target, ok := m.Selected()
	if !ok {
		return "", ErrNoSelection
	}
	dir := m.targetDir(m.paths.VideoRoot, target, m.layout.VideoDirName)
	return freeName(dir, m.now().Format(timestampLayout), videoExt)
}

// VideoAdded records a finished recording for the active target.
func (m *Manager) VideoAdded(path string) {
	target, ok := m.Selected()
	if !ok {
		target = targetFromPath(path)
	}
	m.record(catalog.Item{Kind: catalog.KindVideo, Target: target, Path: path})
}

// PhotoCaptured saves frame for the active target in the background.
func (m *Manager) PhotoCaptured(frame preview.Frame) {
	target, ok := m.Selected()
	if !ok {
		m.logger.Warn("photo dropped; no target selected")
		return
	}
	img := frame.Image()
	stamp := frame.Captured
	if stamp.IsZero() {
		stamp = m.now()
	}

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		m.savePhoto(target, stamp, img)
	}()
}

// Flush waits for photos still being written.
func (m *Manager) Flush() {
	m.pending.Wait()
}

func (m *Manager) savePhoto(target string, stamp time.Time, img image.Image) {
	path, err := m.writePhoto(m.paths.PhotoRoot, target, stamp, img)
	alternative := false
	if err != nil && m.paths.AlternativePhotoRoot != "" {
		logging.WarnWithContext(m.logger, "photo root not writable; trying alternative root", "photo_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions and free space under photo_root"),
			logging.String(logging.FieldImpact, "photo stored under the alternative root"),
		)
		path, err = m.writePhoto(m.paths.AlternativePhotoRoot, target, stamp, img)
		alternative = true
	}
	if err != nil {
		logging.ErrorWithContext(m.logger, "photo not saved", "photo_save_failed",
			logging.Error(err),
			logging.String("target", target),
			logging.String(logging.FieldErrorHint, "check permissions and free space under the photo roots"),
			logging.String(logging.FieldImpact, "the photo is lost"),
		)
		if m.courier != nil {
			m.courier.Show(messages.Error, messages.PhotoNotSaved)
		}
		return
	}
	m.logger.Info("photo saved", logging.String("path", path), logging.Bool("alternative", alternative))
	m.record(catalog.Item{Kind: catalog.KindPhoto, Target: target, Path: path, Alternative: alternative})
}

func (m *Manager) writePhoto(root, target string, stamp time.Time, img image.Image) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", errors.New("photo root not configured")
	}
	dir := m.targetDir(root, target, m.layout.PhotoDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create photo dir: %w", err)
	}
	path, err := freeName(dir, stamp.Format(timestampLayout), photoExt)
	if err != nil {
		return "", err
	}
	if err := imaging.Save(img, path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("encode photo: %w", err)
	}
	return path, nil
}

func (m *Manager) record(item catalog.Item) {
	if m.catalog == nil {
		return
	}
	if _, err := m.catalog.Add(context.Background(), item); err != nil {
		logging.WarnWithContext(m.logger, "catalog update failed", "catalog_add_failed",
			logging.Error(err),
			logging.String("path", item.Path),
			logging.String(logging.FieldErrorHint, "run capdeck doctor to check the state directory"),
			logging.String(logging.FieldImpact, "file exists on disk but is missing from media list"),
		)
	}
}

func (m *Manager) targetDir(root, target, leaf string) string {
	return filepath.Join(root, m.layout.TargetsDirName, target, leaf)
}

// freeName returns dir/base+ext, or the first of dir/base-1+ext ..
// dir/base-7+ext that does not exist yet.
func freeName(dir, base, ext string) (string, error) {
	candidate := filepath.Join(dir, base+ext)
	for i := 1; ; i++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		if i > maxCollisions {
			return "", services.Wrap(services.ErrValidation, "library", "name file", fmt.Sprintf("no free name for %s%s in %s", base, ext, dir), nil)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, i, ext))
	}
}

// targetFromPath recovers <id> from .../<targets>/<id>/<leaf>/<file>.
func targetFromPath(path string) string {
	return filepath.Base(filepath.Dir(filepath.Dir(path)))
}
