package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler hands each record to every wrapped handler that accepts its
// level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = fn(h)
	}
	return next
}

// TeeLogger returns a logger writing to base and every extra handler. The
// daemon uses it to feed the status history alongside the regular output.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	var all teeHandler
	if base != nil {
		all = append(all, base.Handler())
	}
	for _, h := range handlers {
		if h != nil {
			all = append(all, h)
		}
	}
	switch len(all) {
	case 0:
		return NewNop()
	case 1:
		return slog.New(all[0])
	default:
		return slog.New(all)
	}
}
