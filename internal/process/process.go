package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"capdeck/internal/logging"
	"capdeck/internal/services"
)

// DefaultGracePeriod bounds how long a terminated process may linger.
const DefaultGracePeriod = 3 * time.Second

const maxStderrBytes = 64 << 10

// Spec describes one process launch.
type Spec struct {
	// Name labels the process in logs (capture, relay, record).
	Name string
	Argv []string
	// Stdin opens a pipe to the process's standard input.
	Stdin bool
	// Stdout opens a pipe from the process's standard output. Without it the
	// output is discarded.
	Stdout bool
	// OnExit runs once on the waiter goroutine after the process exits and
	// stderr has been drained.
	OnExit func(ExitStatus)
}

// ExitStatus summarises how a process ended.
type ExitStatus struct {
	Code   int
	Signal string
	// Requested is set when the exit followed a Terminate call.
	Requested bool
	Clean     bool
	Stderr    string
	Err       error
}

func (s ExitStatus) String() string {
	if s.Signal != "" {
		return fmt.Sprintf("signal %s", s.Signal)
	}
	return fmt.Sprintf("exit code %d", s.Code)
}

// Process is a running supervised command.
type Process interface {
	Name() string
	PID() int
	Stdin() io.WriteCloser
	Stdout() io.ReadCloser
	Stderr() string
	Terminate()
	Done() <-chan struct{}
	Status() ExitStatus
}

// Launcher starts supervised processes.
type Launcher interface {
	Launch(spec Spec) (Process, error)
}

// Signaler delivers termination signals. The default implementation targets
// the process group on unix systems.
type Signaler interface {
	Interrupt(p *os.Process) error
	Kill(p *os.Process) error
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithGracePeriod overrides the delay before a forced kill.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithSignaler substitutes the signal delivery mechanism.
func WithSignaler(sig Signaler) Option {
	return func(s *Supervisor) {
		if sig != nil {
			s.signals = sig
		}
	}
}

// Supervisor launches and tracks ffmpeg processes.
type Supervisor struct {
	logger  *slog.Logger
	grace   time.Duration
	signals Signaler
}

// NewSupervisor constructs a supervisor.
func NewSupervisor(logger *slog.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		logger:  logging.NewComponentLogger(logger, "process-supervisor"),
		grace:   DefaultGracePeriod,
		signals: groupSignaler{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Launch starts the process described by spec.
func (s *Supervisor) Launch(spec Spec) (Process, error) {
	if len(spec.Argv) == 0 {
		return nil, services.Wrap(services.ErrValidation, "process", "launch", "empty command", nil)
	}
	logger := s.logger.With(logging.String(logging.FieldProcess, spec.Name))

	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	configureCommand(cmd)

	h := &Handle{
		name:    spec.Name,
		cmd:     cmd,
		done:    make(chan struct{}),
		logger:  logger,
		grace:   s.grace,
		signals: s.signals,
	}

	var childEnds []*os.File
	closeAll := func(files ...*os.File) {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}

	if spec.Stdin {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
		cmd.Stdin = r
		h.stdin = &stdinPipe{file: w}
		childEnds = append(childEnds, r)
	}
	if spec.Stdout {
		r, w, err := os.Pipe()
		if err != nil {
			closeAll(childEnds...)
			h.closeParentEnds()
			return nil, fmt.Errorf("stdout pipe: %w", err)
		}
		cmd.Stdout = w
		h.stdout = r
		childEnds = append(childEnds, w)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(childEnds...)
		h.closeParentEnds()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stderr = stderrW
	childEnds = append(childEnds, stderrW)

	if err := cmd.Start(); err != nil {
		closeAll(childEnds...)
		closeAll(stderrR)
		h.closeParentEnds()
		return nil, services.Wrap(services.ErrExternalTool, "process", "start "+spec.Name, spec.Argv[0], err)
	}
	closeAll(childEnds...)

	logger.Debug("process started", logging.Int("pid", cmd.Process.Pid), logging.Any("argv", spec.Argv))

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		h.captureStderr(stderrR)
	}()
	go h.wait(stderrDone, spec.OnExit)
	return h, nil
}

// Output runs argv to completion and returns its combined stdout and stderr.
// Device listings exit non-zero on several backends, so a non-zero exit with
// output is not an error.
func (s *Supervisor) Output(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", services.Wrap(services.ErrValidation, "process", "output", "empty command", nil)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return string(out), ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(out) > 0 {
			return string(out), nil
		}
		return string(out), services.Wrap(services.ErrExternalTool, "process", "output", argv[0], err)
	}
	return string(out), nil
}

// Handle is a running process owned by the supervisor.
type Handle struct {
	name    string
	cmd     *exec.Cmd
	stdin   *stdinPipe
	stdout  *os.File
	logger  *slog.Logger
	grace   time.Duration
	signals Signaler

	stderrMu sync.Mutex
	stderr   []byte

	done      chan struct{}
	status    ExitStatus
	exited    atomic.Bool
	requested atomic.Bool

	termMu    sync.Mutex
	killTimer *time.Timer
}

func (h *Handle) Name() string { return h.name }

func (h *Handle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Stdin returns the write end of the stdin pipe, or nil when not requested.
// Close is idempotent.
func (h *Handle) Stdin() io.WriteCloser {
	if h.stdin == nil {
		return nil
	}
	return h.stdin
}

// Stdout returns the read end of the stdout pipe, or nil when not requested.
// The caller owns it and must close it.
func (h *Handle) Stdout() io.ReadCloser {
	if h.stdout == nil {
		return nil
	}
	return h.stdout
}

// Stderr returns the captured standard error so far.
func (h *Handle) Stderr() string {
	h.stderrMu.Lock()
	defer h.stderrMu.Unlock()
	return string(h.stderr)
}

// Done is closed after the process exits and the exit callback returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Exited reports whether the process has been reaped.
func (h *Handle) Exited() bool { return h.exited.Load() }

// Status returns the exit status. Only meaningful after Done is closed.
func (h *Handle) Status() ExitStatus {
	<-h.done
	return h.status
}

// Terminate requests a graceful stop and schedules a forced kill after the
// grace period. Repeated calls are no-ops. The kill is cancelled if the
// process exits first.
func (h *Handle) Terminate() {
	if h.exited.Load() || !h.requested.CompareAndSwap(false, true) {
		return
	}
	proc := h.cmd.Process
	if err := h.signals.Interrupt(proc); err != nil && !h.exited.Load() {
		h.logger.Debug("graceful stop failed; killing", logging.Error(err))
		h.kill()
		return
	}

	h.termMu.Lock()
	defer h.termMu.Unlock()
	if h.exited.Load() {
		return
	}
	h.killTimer = time.AfterFunc(h.grace, func() {
		if h.exited.Load() {
			return
		}
		logging.WarnWithContext(h.logger, "process ignored stop request; killing", "process_kill",
			logging.Duration("grace_period", h.grace),
			logging.String(logging.FieldImpact, "output may be truncated"),
		)
		h.kill()
	})
}

func (h *Handle) kill() {
	if err := h.signals.Kill(h.cmd.Process); err != nil && !h.exited.Load() {
		h.logger.Warn("kill failed", logging.Error(err))
	}
}

func (h *Handle) captureStderr(r *os.File) {
	defer r.Close()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.stderrMu.Lock()
			h.stderr = append(h.stderr, buf[:n]...)
			if over := len(h.stderr) - maxStderrBytes; over > 0 {
				h.stderr = append(h.stderr[:0], h.stderr[over:]...)
			}
			h.stderrMu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (h *Handle) wait(stderrDone <-chan struct{}, onExit func(ExitStatus)) {
	err := h.cmd.Wait()
	h.exited.Store(true)

	h.termMu.Lock()
	if h.killTimer != nil {
		h.killTimer.Stop()
	}
	h.termMu.Unlock()

	<-stderrDone
	status := classifyExit(h.cmd.ProcessState, err, h.requested.Load())
	status.Stderr = h.Stderr()
	h.status = status

	if status.Clean {
		h.logger.Debug("process exited", logging.String("status", status.String()), logging.Bool("requested", status.Requested))
	} else {
		logging.ErrorWithContext(h.logger, "process exited abnormally", "process_abnormal_exit",
			logging.String("status", status.String()),
			logging.String("stderr", tail(status.Stderr, 2048)),
			logging.String(logging.FieldErrorHint, "inspect ffmpeg stderr above"),
		)
	}

	if onExit != nil {
		onExit(status)
	}
	close(h.done)
}

func (h *Handle) closeParentEnds() {
	if h.stdin != nil {
		h.stdin.Close()
	}
	if h.stdout != nil {
		h.stdout.Close()
	}
}

// classifyExit decides whether an exit was clean: code 0, a broken pipe
// (code 141 or SIGPIPE), or any exit following our own termination request.
func classifyExit(state *os.ProcessState, waitErr error, requested bool) ExitStatus {
	status := ExitStatus{Requested: requested, Err: waitErr}
	if state != nil {
		status.Code = state.ExitCode()
		status.Signal = signalName(state)
	} else if waitErr != nil {
		status.Code = -1
	}
	switch {
	case state == nil:
		status.Clean = false
	case status.Code == 0 && status.Signal == "":
		status.Clean = true
	case status.Code == 141 || status.Signal == "SIGPIPE":
		status.Clean = true
	case requested:
		status.Clean = true
	}
	if status.Clean {
		status.Err = nil
	}
	return status
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

type stdinPipe struct {
	file *os.File
	once sync.Once
	err  error
}

func (p *stdinPipe) Write(b []byte) (int, error) {
	return p.file.Write(b)
}

func (p *stdinPipe) Close() error {
	p.once.Do(func() { p.err = p.file.Close() })
	return p.err
}

// DefaultSignaler returns the platform signal delivery used by NewSupervisor.
func DefaultSignaler() Signaler {
	return groupSignaler{}
}
