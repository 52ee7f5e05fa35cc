package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is one retained log line.
type Entry struct {
	Time      time.Time `json:"ts"`
	Level     string    `json:"level"`
	Message   string    `json:"msg"`
	Component string    `json:"component,omitempty"`
	EventType string    `json:"event_type,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// History retains the most recent log entries at or above a minimum level.
type History struct {
	mu       sync.Mutex
	capacity int
	minLevel slog.Level
	entries  []Entry
}

// NewHistory constructs a bounded history. Capacity <= 0 defaults to 64.
func NewHistory(capacity int, minLevel slog.Level) *History {
	if capacity <= 0 {
		capacity = 64
	}
	return &History{capacity: capacity, minLevel: minLevel}
}

// Handler returns a slog handler feeding the history.
func (h *History) Handler() slog.Handler {
	return &historyHandler{history: h}
}

// Entries returns retained entries, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}

func (h *History) append(entry Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, entry)
}

type historyHandler struct {
	history *History
	attrs   []slog.Attr
}

func (h *historyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.history.minLevel
}

func (h *historyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.history.minLevel {
		return nil
	}
	entry := Entry{
		Time:    record.Time,
		Level:   strings.ToLower(record.Level.String()),
		Message: record.Message,
	}
	visit := func(attr slog.Attr) bool {
		switch attr.Key {
		case FieldComponent:
			entry.Component = attrString(attr.Value)
		case FieldEventType:
			entry.EventType = attrString(attr.Value)
		case "error":
			entry.Error = attrString(attr.Value)
		}
		return true
	}
	for _, attr := range h.attrs {
		visit(attr)
	}
	record.Attrs(visit)
	h.history.append(entry)
	return nil
}

func (h *historyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &historyHandler{history: h.history, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

// Groups are flattened away; only top-level keys feed entries.
func (h *historyHandler) WithGroup(string) slog.Handler {
	return h
}
