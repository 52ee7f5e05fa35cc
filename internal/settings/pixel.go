package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DisplayPixelFormat is the layout the preview surface consumes directly
// (4 bytes per pixel, blue-green-red-padding).
const DisplayPixelFormat = "bgr0"

// ErrInvalidPixelFormat reports a pixel format outside the supported set.
var ErrInvalidPixelFormat = errors.New("invalid pixel format")

// InvalidPixelFormatError carries the rejected format name.
type InvalidPixelFormatError struct {
	Format string
}

func (e *InvalidPixelFormatError) Error() string {
	if e.Format == "" {
		return "invalid pixel format: unset"
	}
	return fmt.Sprintf("invalid pixel format: %q", e.Format)
}

func (e *InvalidPixelFormatError) Is(target error) bool {
	return target == ErrInvalidPixelFormat
}

var bitsPerPixel = map[string]int{
	"yuyv422": 16,
	"uyvy422": 16,
	"yuv420p": 12,
	"nv12":    12,
	"rgb24":   24,
	"bgr24":   24,
	"0rgb":    32,
	"bgr0":    32,
	"bgra":    32,
	"rgb0":    32,
	"rgba":    32,
	"gray":    8,
}

// BitsPerPixel returns the storage cost of one pixel in the given format.
func BitsPerPixel(format string) (int, error) {
	bits, ok := bitsPerPixel[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return 0, &InvalidPixelFormatError{Format: format}
	}
	return bits, nil
}

// FrameSize returns the byte length of one raw frame.
func FrameSize(width, height int, format string) (int, error) {
	bits, err := BitsPerPixel(format)
	if err != nil {
		return 0, err
	}
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("frame size: invalid geometry %dx%d", width, height)
	}
	return width * height * bits / 8, nil
}

// PixelFormats lists the supported formats in sorted order.
func PixelFormats() []string {
	out := make([]string, 0, len(bitsPerPixel))
	for name := range bitsPerPixel {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
