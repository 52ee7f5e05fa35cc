// Package recording feeds raw capture frames into the record process.
//
// A Recorder is a capture consumer. Pausing detaches it from the frame source
// and resuming attaches it again, both at frame boundaries, so the encoder
// only ever sees whole frames. Stopping detaches it and then closes the
// encoder input, letting ffmpeg finalize the file.
package recording

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"capdeck/internal/capture"
	"capdeck/internal/facade"
	"capdeck/internal/logging"
	"capdeck/internal/process"
	"capdeck/internal/settings"
)

// ProcessName labels the record process.
const ProcessName = "record"

const defaultFinishTimeout = 30 * time.Second

// Source is the frame source a Recorder attaches to.
type Source interface {
	AddConsumer(capture.Consumer)
	RemoveConsumer(capture.Consumer)
	Done() <-chan struct{}
}

// Options configures a Recorder.
type Options struct {
	Logger   *slog.Logger
	Launcher process.Launcher
	Settings settings.Capture
	Source   Source
	Client   facade.Client
	Classify facade.Classifier
	Path     string
	// FinishTimeout bounds how long the encoder may take to finalize after
	// its input closed. Zero uses 30 seconds.
	FinishTimeout time.Duration
}

// Recorder owns one record process.
type Recorder struct {
	logger        *slog.Logger
	proc          process.Process
	stdin         io.WriteCloser
	source        Source
	client        facade.Client
	classify      facade.Classifier
	path          string
	finishTimeout time.Duration

	mu sync.Mutex
	// member tracks what the frame loop has applied; wantMember tracks the
	// last request sent to it.
	member     bool
	wantMember bool
	stopping   bool

	closeOnce   sync.Once
	writeFailed atomic.Bool
	frames      atomic.Uint64
	started     time.Time
}

// Start launches the record process writing to opts.Path and attaches the
// recorder to the source.
func Start(opts Options) (*Recorder, error) {
	if opts.Source == nil {
		return nil, errors.New("recording: frame source required")
	}
	select {
	case <-opts.Source.Done():
		return nil, errors.New("recording: capture is not running")
	default:
	}
	r := &Recorder{
		logger:        logging.NewComponentLogger(opts.Logger, "recorder"),
		source:        opts.Source,
		client:        opts.Client,
		classify:      opts.Classify,
		path:          opts.Path,
		finishTimeout: opts.FinishTimeout,
		started:       time.Now(),
	}
	if r.finishTimeout <= 0 {
		r.finishTimeout = defaultFinishTimeout
	}
	proc, err := opts.Launcher.Launch(process.Spec{
		Name:   ProcessName,
		Argv:   opts.Settings.RecordArgv(opts.Path),
		Stdin:  true,
		OnExit: r.onExit,
	})
	if err != nil {
		return nil, fmt.Errorf("start recording %s: %w", opts.Path, err)
	}
	r.proc = proc
	r.stdin = proc.Stdin()
	r.logger.Info("recording started", logging.String("path", opts.Path), logging.Int("pid", proc.PID()))

	r.mu.Lock()
	r.wantMember = true
	r.mu.Unlock()
	r.source.AddConsumer(r)
	return r, nil
}

// Path returns the output file.
func (r *Recorder) Path() string { return r.path }

// Frames returns the number of whole frames handed to the encoder.
func (r *Recorder) Frames() uint64 { return r.frames.Load() }

// Done is closed once the record process exited and RecordingFinished was sent.
func (r *Recorder) Done() <-chan struct{} { return r.proc.Done() }

// Pause detaches the recorder at the next frame boundary.
func (r *Recorder) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopping || !r.wantMember {
		return
	}
	r.wantMember = false
	r.source.RemoveConsumer(r)
	r.logger.Debug("recording paused")
}

// Resume attaches the recorder again at the next frame boundary.
func (r *Recorder) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopping || r.wantMember {
		return
	}
	r.wantMember = true
	r.source.AddConsumer(r)
	r.logger.Debug("recording resumed")
}

// Stop finishes the recording. The encoder input closes once the recorder
// is off the frame loop. Repeated calls are no-ops.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopping {
		return
	}
	r.stopping = true
	r.logger.Debug("recording stop requested")
	r.leaveLocked()
}

// leaveLocked takes the recorder off the loop, closing the input right away
// when nothing is pending.
func (r *Recorder) leaveLocked() {
	select {
	case <-r.source.Done():
		r.closeInput()
		return
	default:
	}
	switch {
	case r.member && r.wantMember:
		r.wantMember = false
		r.source.RemoveConsumer(r)
	case r.member:
		// removal already pending; Detached closes
	case r.wantMember:
		// add pending; Attached removes again
	default:
		r.closeInput()
	}
}

// Attached implements capture.MembershipObserver.
func (r *Recorder) Attached() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.member = true
	if r.stopping {
		r.wantMember = false
		r.source.RemoveConsumer(r)
	}
}

// Detached implements capture.MembershipObserver.
func (r *Recorder) Detached() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.member = false
	if r.stopping {
		r.closeInput()
	}
}

// Receive writes a chunk of the current frame to the encoder. Write
// failures take the recorder off the loop without disturbing preview; the
// process exit reports the cause.
func (r *Recorder) Receive(chunk []byte, _ int) error {
	if r.writeFailed.Load() {
		return nil
	}
	if _, err := r.stdin.Write(chunk); err != nil {
		r.writeFailed.Store(true)
		r.logger.Warn("record input write failed; detaching",
			logging.Error(err),
			logging.String(logging.FieldEventType, "record_write_failed"),
			logging.String(logging.FieldErrorHint, "check the record process stderr"),
			logging.String(logging.FieldImpact, "recording ends early"),
		)
		r.Stop()
	}
	return nil
}

// FrameComplete counts whole frames written.
func (r *Recorder) FrameComplete() {
	if !r.writeFailed.Load() {
		r.frames.Add(1)
	}
}

// CaptureStopped closes the encoder input so the file is finalized.
func (r *Recorder) CaptureStopped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.member = false
	r.stopping = true
	r.closeInput()
}

func (r *Recorder) closeInput() {
	r.closeOnce.Do(func() {
		if err := r.stdin.Close(); err != nil {
			r.logger.Debug("record stdin close failed", logging.Error(err))
		}
		r.logger.Debug("record input closed", logging.Uint64("frames", r.frames.Load()))
		proc := r.proc
		time.AfterFunc(r.finishTimeout, func() {
			select {
			case <-proc.Done():
			default:
				logging.WarnWithContext(r.logger, "record process did not finish; terminating", "record_finish_timeout",
					logging.Duration("timeout", r.finishTimeout),
					logging.String(logging.FieldImpact, "the recorded file may be truncated"),
				)
				proc.Terminate()
			}
		})
	})
}

func (r *Recorder) onExit(status process.ExitStatus) {
	r.mu.Lock()
	if !r.stopping {
		r.stopping = true
		r.leaveLocked()
	}
	r.mu.Unlock()
	r.closeInput()

	if status.Clean {
		r.logger.Info("recording finished",
			logging.String("path", r.path),
			logging.Uint64("frames", r.frames.Load()),
			logging.Duration("elapsed", time.Since(r.started).Round(time.Millisecond)),
		)
	} else {
		classification := facade.Classification{Kind: facade.FailureRecording}
		if r.classify != nil {
			classification = r.classify(status.Stderr)
		}
		logging.WarnWithContext(r.logger, "record process failed", "record_process_failed",
			logging.String("path", r.path),
			logging.String("status", status.String()),
			logging.String("classification", classification.Kind.String()),
			logging.String(logging.FieldImpact, "recording ended"),
		)
		classification.Deliver(r.client)
	}
	if r.client != nil {
		r.client.RecordingFinished()
	}
}
