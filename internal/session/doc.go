// Package session implements facade.Media on top of ffmpeg.
//
// A session is created by StartPreviewing and lives until StopPreviewing or a
// fatal preview failure. It resolves the capture device (running discovery
// and persisting the result when no device is stored), launches the capture
// process, optionally a pixel-format relay, and on request a recorder. Every
// session carries a UUID that is attached to its log records.
package session
