// Package preview holds the display end of the capture pipeline: a sink that
// assembles frames in the display pixel layout and publishes finished frames
// to a surface, plus snapshot access for still photos.
package preview

import (
	"fmt"
	"image"
	"sync"
	"time"
)

// BytesPerPixel of the display layout (bgr0).
const BytesPerPixel = 4

// Frame is one published display frame. Pix is laid out as rows of
// blue, green, red, padding bytes and is owned by the receiver.
type Frame struct {
	Width    int
	Height   int
	Pix      []byte
	Sequence uint64
	Captured time.Time
}

// Image converts the frame to an opaque NRGBA image.
func (f Frame) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	n := f.Width * f.Height
	for i := 0; i < n && i*4+3 < len(f.Pix); i++ {
		src := f.Pix[i*4 : i*4+4]
		dst := img.Pix[i*4 : i*4+4]
		dst[0] = src[2]
		dst[1] = src[1]
		dst[2] = src[0]
		dst[3] = 0xff
	}
	return img
}

// Surface displays published frames. Present is called on the pipeline
// goroutine and must not block for long.
type Surface interface {
	Present(Frame)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(Frame)

func (f SurfaceFunc) Present(frame Frame) { f(frame) }

// Sink receives raw display-format bytes frame by frame. Receive and
// FrameComplete are called from a single goroutine; Snapshot may be called
// from any goroutine.
type Sink struct {
	width   int
	height  int
	surface Surface
	now     func() time.Time

	working []byte

	mu        sync.RWMutex
	published []byte
	sequence  uint64
	captured  time.Time
}

// NewSink allocates a sink for width x height display frames.
func NewSink(width, height int, surface Surface) *Sink {
	size := width * height * BytesPerPixel
	return &Sink{
		width:   width,
		height:  height,
		surface: surface,
		now:     time.Now,
		working: make([]byte, size),
	}
}

// FrameLen returns the number of bytes per display frame.
func (s *Sink) FrameLen() int {
	return len(s.working)
}

// Receive copies chunk into the working buffer at offset.
func (s *Sink) Receive(chunk []byte, offset int) error {
	if offset < 0 || offset+len(chunk) > len(s.working) {
		return fmt.Errorf("preview sink: chunk [%d,%d) outside frame of %d bytes", offset, offset+len(chunk), len(s.working))
	}
	copy(s.working[offset:], chunk)
	return nil
}

// FrameComplete publishes the working buffer and presents a copy.
func (s *Sink) FrameComplete() {
	s.mu.Lock()
	if s.published == nil {
		s.published = make([]byte, len(s.working))
	}
	copy(s.published, s.working)
	s.sequence++
	s.captured = s.now()
	frame := s.frameLocked()
	s.mu.Unlock()

	if s.surface != nil {
		s.surface.Present(frame)
	}
}

// CaptureStopped is a no-op; the last published frame stays available.
func (s *Sink) CaptureStopped() {}

// Snapshot returns an independent copy of the latest published frame.
func (s *Sink) Snapshot() (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.published == nil {
		return Frame{}, false
	}
	return s.frameLocked(), true
}

// Frames returns how many frames have been published.
func (s *Sink) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sequence
}

func (s *Sink) frameLocked() Frame {
	return Frame{
		Width:    s.width,
		Height:   s.height,
		Pix:      append([]byte(nil), s.published...),
		Sequence: s.sequence,
		Captured: s.captured,
	}
}
