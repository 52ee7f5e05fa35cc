// Package relay converts capture frames to the display pixel layout through
// an encode process and feeds the result to a preview sink.
package relay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"capdeck/internal/facade"
	"capdeck/internal/logging"
	"capdeck/internal/preview"
	"capdeck/internal/process"
	"capdeck/internal/settings"
)

// ProcessName labels the encode process.
const ProcessName = "relay"

// ErrClosed is returned by Receive after the relay input was closed.
var ErrClosed = errors.New("relay input closed")

// Options configures a Relay.
type Options struct {
	Logger   *slog.Logger
	Launcher process.Launcher
	Settings settings.Capture
	Sink     *preview.Sink
	Client   facade.Client
}

// Relay is a capture consumer writing raw frames to the encode process and
// forwarding its display frames to the sink.
type Relay struct {
	logger *slog.Logger
	proc   process.Process
	stdin  io.WriteCloser
	sink   *preview.Sink
	client facade.Client

	closeOnce sync.Once
	closed    atomic.Bool
	frames    atomic.Uint64
	forwarded chan struct{}
	done      chan struct{}
}

// Start launches the encode process and the forwarding goroutine.
func Start(opts Options) (*Relay, error) {
	if opts.Sink == nil {
		return nil, errors.New("relay: preview sink required")
	}
	r := &Relay{
		logger:    logging.NewComponentLogger(opts.Logger, "frame-relay"),
		sink:      opts.Sink,
		client:    opts.Client,
		forwarded: make(chan struct{}),
		done:      make(chan struct{}),
	}
	proc, err := opts.Launcher.Launch(process.Spec{
		Name:   ProcessName,
		Argv:   opts.Settings.EncodeArgv(),
		Stdin:  true,
		Stdout: true,
		OnExit: r.onExit,
	})
	if err != nil {
		return nil, fmt.Errorf("start relay: %w", err)
	}
	r.proc = proc
	r.stdin = proc.Stdin()
	r.logger.Debug("relay started",
		logging.String("from", opts.Settings.PixelFormat),
		logging.String("to", settings.DisplayPixelFormat),
		logging.Int("pid", proc.PID()),
	)
	go r.forward(proc.Stdout())
	go func() {
		<-proc.Done()
		<-r.forwarded
		close(r.done)
	}()
	return r, nil
}

// Receive writes a chunk of the current capture frame to the encoder.
func (r *Relay) Receive(chunk []byte, _ int) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if _, err := r.stdin.Write(chunk); err != nil {
		return fmt.Errorf("relay write: %w", err)
	}
	return nil
}

// FrameComplete is a no-op; the encoder emits display frames on its own.
func (r *Relay) FrameComplete() {}

// CaptureStopped closes the encoder input so it drains and exits.
func (r *Relay) CaptureStopped() { r.Close() }

// Close closes the encoder input. Repeated calls are no-ops.
func (r *Relay) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		if err := r.stdin.Close(); err != nil {
			r.logger.Debug("relay stdin close failed", logging.Error(err))
		}
	})
}

// Terminate stops the encode process.
func (r *Relay) Terminate() { r.proc.Terminate() }

// Done is closed once the encode process exited and forwarding finished.
func (r *Relay) Done() <-chan struct{} { return r.done }

// Frames returns the number of display frames forwarded to the sink.
func (r *Relay) Frames() uint64 { return r.frames.Load() }

func (r *Relay) forward(stdout io.ReadCloser) {
	defer close(r.forwarded)
	defer stdout.Close()
	buf := make([]byte, r.sink.FrameLen())
	for {
		if _, err := io.ReadFull(stdout, buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.ErrClosedPipe) {
				r.logger.Debug("relay read ended", logging.Error(err))
			}
			return
		}
		if err := r.sink.Receive(buf, 0); err != nil {
			logging.ErrorWithContext(r.logger, "preview sink rejected frame", "relay_sink_failed", logging.Error(err))
			return
		}
		r.sink.FrameComplete()
		r.frames.Add(1)
	}
}

func (r *Relay) onExit(status process.ExitStatus) {
	if status.Clean {
		return
	}
	if r.closed.Load() {
		r.logger.Debug("relay exited after input closed", logging.String("status", status.String()))
		return
	}
	logging.WarnWithContext(r.logger, "relay process failed", "relay_process_failed",
		logging.String("status", status.String()),
		logging.String("stderr", status.Stderr),
		logging.String(logging.FieldImpact, "preview stops"),
	)
	if r.client != nil {
		r.client.PreviewingException()
	}
}
