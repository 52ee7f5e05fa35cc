// Package backend adapts the capture pipeline to ffmpeg's platform device
// layers: AVFoundation on macOS, DirectShow on Windows, and Video4Linux2 on
// Linux.
//
// Each backend knows how to list devices, pick the one to capture from along
// with its initial geometry and pixel format, which argument templates drive
// capture, relay and recording, and how to read a failed process's stderr
// into a classified failure.
package backend
