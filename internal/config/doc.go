// Package config loads, normalizes, and validates capdeck configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CAPDECK_FFMPEG_DIR. The Config type centralizes every knob the daemon and
// CLI need, so state, log, and media directories plus the capture backend are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
