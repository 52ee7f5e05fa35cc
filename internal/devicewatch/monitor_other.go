//go:build !linux

package devicewatch

import (
	"context"
	"log/slog"
)

// Monitor is inert on this platform.
type Monitor struct{}

func New(*slog.Logger, Handler) *Monitor { return &Monitor{} }

func (m *Monitor) Start(context.Context) error { return nil }

func (m *Monitor) Stop() {}

func (m *Monitor) Running() bool { return false }
