package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
)

// Preferences holds user choices that outlive a session.
type Preferences struct {
	Enabled bool `toml:"enabled"`
}

type document struct {
	Preferences Preferences `toml:"preferences"`
	Capture     Capture     `toml:"capture"`
}

// Store persists Capture and Preferences in one TOML document. Writers in
// other processes are serialized through a sibling lock file.
type Store struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewStore returns a store backed by path. The file is created on first save.
func NewStore(path string) *Store {
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the backing document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing file yields zero values.
func (s *Store) Load() (Capture, Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockFile(); err != nil {
		return Capture{}, Preferences{}, err
	}
	defer s.lock.Unlock() //nolint:errcheck

	doc, err := s.read()
	if err != nil {
		return Capture{}, Preferences{}, err
	}
	return doc.Capture, doc.Preferences, nil
}

// SaveCapture replaces the stored capture settings, keeping preferences.
func (s *Store) SaveCapture(c Capture) error {
	return s.update(func(doc *document) { doc.Capture = c })
}

// SavePreferences replaces the stored preferences, keeping capture settings.
func (s *Store) SavePreferences(p Preferences) error {
	return s.update(func(doc *document) { doc.Preferences = p })
}

// Enabled reports the persisted preview preference. Read failures count as disabled.
func (s *Store) Enabled() bool {
	_, prefs, err := s.Load()
	return err == nil && prefs.Enabled
}

// SetEnabled persists the preview preference.
func (s *Store) SetEnabled(enabled bool) error {
	return s.update(func(doc *document) { doc.Preferences.Enabled = enabled })
}

func (s *Store) update(mutate func(*document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockFile(); err != nil {
		return err
	}
	defer s.lock.Unlock() //nolint:errcheck

	doc, err := s.read()
	if err != nil {
		return err
	}
	mutate(&doc)
	return s.write(doc)
}

func (s *Store) lockFile() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure settings directory: %w", err)
		}
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock settings: %w", err)
	}
	return nil
}

func (s *Store) read() (document, error) {
	var doc document
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("read settings: %w", err)
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *Store) write(doc document) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("create settings temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
