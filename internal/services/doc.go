// Package services defines shared utilities consumed by the capture pipeline
// and the controller that drives it.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, process names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (device, external tool, configuration) with errors.Is.
//
// Use these helpers when wiring new pipeline code so error handling and
// observability stay uniform across components.
package services
