// Package preflight provides readiness checks for the ffmpeg binary and the
// directories capdeck writes to.
//
// The doctor command runs every check; the daemon runs them once at startup
// and logs failures without refusing to start, since media roots on
// removable storage may appear later.
package preflight
