package capture

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"capdeck/internal/facade"
	"capdeck/internal/logging"
	"capdeck/internal/process"
	"capdeck/internal/settings"
)

// ProcessName labels the capture process in logs and launches.
const ProcessName = "capture"

const (
	defaultReadChunk   = 64 << 10
	defaultStopTimeout = 2 * time.Second
)

// Consumer receives frame bytes from a Source. Calls arrive on the frame loop
// goroutine. The chunk slice is reused between calls; consumers copy what
// they keep.
type Consumer interface {
	// Receive delivers bytes [offset, offset+len(chunk)) of the current frame.
	Receive(chunk []byte, offset int) error
	FrameComplete()
	CaptureStopped()
}

// MembershipObserver is implemented by consumers that track when an add or
// remove request takes effect.
type MembershipObserver interface {
	Attached()
	Detached()
}

type actionKind int

const (
	actionAdd actionKind = iota
	actionRemove
)

type action struct {
	kind     actionKind
	consumer Consumer
	next     *action
}

// Options configures a Source.
type Options struct {
	Logger   *slog.Logger
	Launcher process.Launcher
	Settings settings.Capture
	Client   facade.Client
	Classify facade.Classifier
	// Consumers are registered before the first frame.
	Consumers []Consumer
	// ReadChunk caps the bytes read per call. Zero uses 64 KiB.
	ReadChunk int
	// StopTimeout is how long Stop waits for the next frame boundary before
	// terminating the capture process. Zero uses two seconds.
	StopTimeout time.Duration
}

// Source owns one capture process and its frame loop.
type Source struct {
	logger      *slog.Logger
	proc        process.Process
	settings    settings.Capture
	client      facade.Client
	classify    facade.Classifier
	readChunk   int
	stopTimeout time.Duration

	pending       atomic.Pointer[action]
	stopRequested atomic.Bool
	frames        atomic.Uint64
	registered    atomic.Int32

	// consumers is owned by the loop goroutine.
	consumers []Consumer
	done      chan struct{}
}

// Start launches the capture process and its frame loop.
func Start(opts Options) (*Source, error) {
	if opts.Launcher == nil {
		return nil, errors.New("capture: launcher required")
	}
	s := &Source{
		logger:      logging.NewComponentLogger(opts.Logger, "capture-source"),
		settings:    opts.Settings,
		client:      opts.Client,
		classify:    opts.Classify,
		readChunk:   opts.ReadChunk,
		stopTimeout: opts.StopTimeout,
		done:        make(chan struct{}),
	}
	if s.readChunk <= 0 {
		s.readChunk = defaultReadChunk
	}
	if s.stopTimeout <= 0 {
		s.stopTimeout = defaultStopTimeout
	}

	proc, err := opts.Launcher.Launch(process.Spec{
		Name:   ProcessName,
		Argv:   opts.Settings.CaptureArgv(),
		Stdout: true,
		OnExit: s.onExit,
	})
	if err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}
	s.proc = proc
	for _, c := range opts.Consumers {
		s.AddConsumer(c)
	}
	s.logger.Info("capture started",
		logging.String(logging.FieldDevice, opts.Settings.Device),
		logging.String("video_size", opts.Settings.VideoSize()),
		logging.String("pixel_format", opts.Settings.PixelFormat),
		logging.Int("pid", proc.PID()),
	)
	go s.run()
	return s, nil
}

// AddConsumer registers c from the next frame boundary. Adding a registered
// consumer is a no-op.
func (s *Source) AddConsumer(c Consumer) {
	s.push(&action{kind: actionAdd, consumer: c})
}

// RemoveConsumer unregisters c from the next frame boundary.
func (s *Source) RemoveConsumer(c Consumer) {
	s.push(&action{kind: actionRemove, consumer: c})
}

// Stop ends the loop at the next frame boundary. If no boundary is reached
// within the stop timeout the capture process is terminated.
func (s *Source) Stop() {
	if !s.stopRequested.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(s.stopTimeout, func() {
		select {
		case <-s.done:
		default:
			s.logger.Debug("no frame boundary before stop timeout; terminating capture")
			s.proc.Terminate()
		}
	})
}

// Done is closed once the loop has exited and consumers were notified.
func (s *Source) Done() <-chan struct{} { return s.done }

// Running reports whether the frame loop is still active.
func (s *Source) Running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Frames returns the number of complete frames delivered.
func (s *Source) Frames() uint64 { return s.frames.Load() }

// Consumers returns the number of registered consumers.
func (s *Source) Consumers() int { return int(s.registered.Load()) }

// Settings returns the settings the capture process was started with.
func (s *Source) Settings() settings.Capture { return s.settings }

func (s *Source) push(a *action) {
	for {
		head := s.pending.Load()
		a.next = head
		if s.pending.CompareAndSwap(head, a) {
			return
		}
	}
}

// applyPending drains the request chain in arrival order.
func (s *Source) applyPending() {
	head := s.pending.Swap(nil)
	if head == nil {
		return
	}
	var ordered []*action
	for a := head; a != nil; a = a.next {
		ordered = append(ordered, a)
	}
	for i := len(ordered) - 1; i >= 0; i-- {
		a := ordered[i]
		switch a.kind {
		case actionAdd:
			if s.indexOf(a.consumer) >= 0 {
				continue
			}
			s.consumers = append(s.consumers, a.consumer)
			if obs, ok := a.consumer.(MembershipObserver); ok {
				obs.Attached()
			}
		case actionRemove:
			idx := s.indexOf(a.consumer)
			if idx < 0 {
				continue
			}
			s.consumers = append(s.consumers[:idx], s.consumers[idx+1:]...)
			if obs, ok := a.consumer.(MembershipObserver); ok {
				obs.Detached()
			}
		}
	}
	s.registered.Store(int32(len(s.consumers)))
}

func (s *Source) indexOf(c Consumer) int {
	for i, existing := range s.consumers {
		if existing == c {
			return i
		}
	}
	return -1
}

type consumerError struct {
	err error
}

func (e *consumerError) Error() string { return "consumer: " + e.err.Error() }
func (e *consumerError) Unwrap() error { return e.err }

func (s *Source) run() {
	defer close(s.done)
	stdout := s.proc.Stdout()
	// A stream that ends on its own leaves the process to exit by itself so
	// its exit status reaches the classifier.
	streamEnded := false
	defer func() { s.finish(stdout, !streamEnded || s.stopRequested.Load()) }()

	frameSize, err := s.settings.BytesPerFrame()
	if err != nil {
		logging.ErrorWithContext(s.logger, "cannot size capture frames", "capture_pixel_format",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set a supported pixel_format in the settings file"),
		)
		s.reportPreviewFailure()
		return
	}
	buf := make([]byte, min(frameSize, s.readChunk))

	for {
		s.applyPending()
		if s.stopRequested.Load() {
			s.logger.Debug("stop requested; leaving frame loop", logging.Uint64("frames", s.frames.Load()))
			return
		}
		if err := s.readFrame(stdout, buf, frameSize); err != nil {
			var cerr *consumerError
			switch {
			case errors.Is(err, io.EOF):
				streamEnded = true
				s.logger.Debug("capture stream ended", logging.Uint64("frames", s.frames.Load()))
			case errors.As(err, &cerr):
				logging.ErrorWithContext(s.logger, "frame consumer failed", "capture_consumer_failed", logging.Error(cerr.err))
				s.reportPreviewFailure()
			case s.stopRequested.Load():
				s.logger.Debug("capture read interrupted by stop", logging.Error(err))
			default:
				logging.ErrorWithContext(s.logger, "capture read failed", "capture_read_failed", logging.Error(err))
				s.reportPreviewFailure()
			}
			return
		}
		for _, c := range s.consumers {
			c.FrameComplete()
		}
		s.frames.Add(1)
	}
}

func (s *Source) readFrame(r io.Reader, buf []byte, frameSize int) error {
	for offset := 0; offset < frameSize; {
		n, err := r.Read(buf[:min(len(buf), frameSize-offset)])
		if n > 0 {
			chunk := buf[:n]
			for _, c := range s.consumers {
				if cerr := c.Receive(chunk, offset); cerr != nil {
					return &consumerError{err: cerr}
				}
			}
			offset += n
		}
		if err != nil {
			if errors.Is(err, io.EOF) && offset > 0 {
				s.logger.Debug("discarding partial frame at end of stream", logging.Int("bytes", offset))
			}
			return err
		}
	}
	return nil
}

// finish notifies every registered consumer once. With terminate set the
// process is stopped before its stdout is closed, so the exit counts as
// requested.
func (s *Source) finish(stdout io.Closer, terminate bool) {
	if terminate {
		s.proc.Terminate()
	}
	if stdout != nil {
		stdout.Close()
	}
	s.applyPending()
	for _, c := range s.consumers {
		c.CaptureStopped()
	}
	s.consumers = nil
	s.registered.Store(0)
	s.logger.Info("capture stopped", logging.Uint64("frames", s.frames.Load()))
}

func (s *Source) reportPreviewFailure() {
	if s.client != nil {
		s.client.PreviewingException()
	}
}

func (s *Source) onExit(status process.ExitStatus) {
	if status.Clean {
		return
	}
	classification := facade.Classification{Kind: facade.FailurePreviewing}
	if s.classify != nil {
		classification = s.classify(status.Stderr)
	}
	logging.WarnWithContext(s.logger, "capture process failed", "capture_process_failed",
		logging.String("status", status.String()),
		logging.String("classification", classification.Kind.String()),
		logging.String(logging.FieldImpact, "preview stops"),
	)
	classification.Deliver(s.client)
}
