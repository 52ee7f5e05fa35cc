// Package logging assembles structured slog loggers and formatting helpers used
// across capdeck components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with session IDs and process names. A bounded in-memory history keeps
// recent warnings for the daemon status view, and a no-op logger serves tests
// and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape and routing as the rest of the system.
package logging
