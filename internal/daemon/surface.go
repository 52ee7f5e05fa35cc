package daemon

import (
	"sync"
	"time"

	"capdeck/internal/preview"
	"capdeck/internal/settings"
)

// frameMeter is the headless preview surface: it counts presented frames.
type frameMeter struct {
	mu        sync.Mutex
	presented uint64
	last      time.Time
	width     int
	height    int
}

func (m *frameMeter) Present(frame preview.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presented++
	m.last = frame.Captured
	m.width = frame.Width
	m.height = frame.Height
}

func (m *frameMeter) snapshot() (uint64, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presented, m.last
}

// settingsView keeps the capture settings most recently shown.
type settingsView struct {
	mu      sync.Mutex
	current settings.Capture
	shows   int
}

func (v *settingsView) ShowSettings(current settings.Capture) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = current
	v.shows++
}

func (v *settingsView) last() (settings.Capture, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.shows
}

func (v *settingsView) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shows
}
