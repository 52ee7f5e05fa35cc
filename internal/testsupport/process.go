package testsupport

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"capdeck/internal/process"
)

// FakeLauncher records launches and hands out FakeProcess values driven by
// the test.
type FakeLauncher struct {
	mu       sync.Mutex
	procs    []*FakeProcess
	failures map[string]error
	launched chan *FakeProcess
}

// NewFakeLauncher returns an empty launcher.
func NewFakeLauncher() *FakeLauncher {
	return &FakeLauncher{failures: map[string]error{}, launched: make(chan *FakeProcess, 64)}
}

// FailLaunch makes launches of the named process return err.
func (l *FakeLauncher) FailLaunch(name string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[name] = err
}

// Launch implements process.Launcher.
func (l *FakeLauncher) Launch(spec process.Spec) (process.Process, error) {
	l.mu.Lock()
	if err := l.failures[spec.Name]; err != nil {
		l.mu.Unlock()
		return nil, err
	}
	p := newFakeProcess(spec)
	l.procs = append(l.procs, p)
	l.mu.Unlock()
	l.launched <- p
	return p, nil
}

// Launched returns every process launched so far.
func (l *FakeLauncher) Launched() []*FakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*FakeProcess(nil), l.procs...)
}

// Process returns the most recent launch of name, or nil.
func (l *FakeLauncher) Process(name string) *FakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.procs) - 1; i >= 0; i-- {
		if l.procs[i].spec.Name == name {
			return l.procs[i]
		}
	}
	return nil
}

// Next waits for the next launch.
func (l *FakeLauncher) Next(t testing.TB) *FakeProcess {
	t.Helper()
	select {
	case p := <-l.launched:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for process launch")
		return nil
	}
}

// FakeProcess is an in-memory stand-in for a supervised ffmpeg process.
// Tests feed stdout through StdoutWriter and inspect stdin with StdinBytes.
type FakeProcess struct {
	spec process.Spec

	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stdin   *fakeStdin

	stderrMu sync.Mutex
	stderr   string

	// ExitOnTerminate makes Terminate report a requested clean exit.
	ExitOnTerminate atomic.Bool
	terminations    atomic.Int32

	once   sync.Once
	done   chan struct{}
	status process.ExitStatus
}

func newFakeProcess(spec process.Spec) *FakeProcess {
	p := &FakeProcess{spec: spec, done: make(chan struct{})}
	p.stdoutR, p.stdoutW = io.Pipe()
	if spec.Stdin {
		p.stdin = &fakeStdin{}
	}
	p.ExitOnTerminate.Store(true)
	return p
}

func (p *FakeProcess) Name() string   { return p.spec.Name }
func (p *FakeProcess) PID() int       { return 4242 }
func (p *FakeProcess) Argv() []string { return append([]string(nil), p.spec.Argv...) }

func (p *FakeProcess) Stdin() io.WriteCloser {
	if p.stdin == nil {
		return nil
	}
	return p.stdin
}

func (p *FakeProcess) Stdout() io.ReadCloser {
	if !p.spec.Stdout {
		return nil
	}
	return p.stdoutR
}

func (p *FakeProcess) Stderr() string {
	p.stderrMu.Lock()
	defer p.stderrMu.Unlock()
	return p.stderr
}

// SetStderr sets the text reported as captured stderr.
func (p *FakeProcess) SetStderr(text string) {
	p.stderrMu.Lock()
	defer p.stderrMu.Unlock()
	p.stderr = text
}

func (p *FakeProcess) Terminate() {
	p.terminations.Add(1)
	if p.ExitOnTerminate.Load() {
		go p.Exit(process.ExitStatus{Code: -1, Signal: "SIGTERM", Requested: true, Clean: true})
	}
}

// Terminations counts Terminate calls.
func (p *FakeProcess) Terminations() int { return int(p.terminations.Load()) }

func (p *FakeProcess) Done() <-chan struct{} { return p.done }

func (p *FakeProcess) Status() process.ExitStatus {
	<-p.done
	return p.status
}

// StdoutWriter is the process side of the stdout pipe.
func (p *FakeProcess) StdoutWriter() io.Writer { return p.stdoutW }

// WriteStdout writes b to stdout, failing the test on error.
func (p *FakeProcess) WriteStdout(t testing.TB, b []byte) {
	t.Helper()
	if _, err := p.stdoutW.Write(b); err != nil {
		t.Fatalf("write %s stdout: %v", p.spec.Name, err)
	}
}

// CloseStdout signals EOF to the reader.
func (p *FakeProcess) CloseStdout() { p.stdoutW.Close() }

// StdinBytes returns everything written to stdin.
func (p *FakeProcess) StdinBytes() []byte {
	if p.stdin == nil {
		return nil
	}
	return p.stdin.bytes()
}

// StdinCloses counts Close calls that reached the stdin pipe.
func (p *FakeProcess) StdinCloses() int {
	if p.stdin == nil {
		return 0
	}
	return p.stdin.closes()
}

// FailStdin makes subsequent stdin writes fail.
func (p *FakeProcess) FailStdin(err error) {
	p.stdin.fail(err)
}

// Exit ends the process with status once: stdout reaches EOF, the exit
// callback runs, then Done closes.
func (p *FakeProcess) Exit(status process.ExitStatus) {
	p.once.Do(func() {
		status.Stderr = p.Stderr()
		p.status = status
		p.stdoutW.Close()
		if p.spec.OnExit != nil {
			p.spec.OnExit(status)
		}
		close(p.done)
	})
}

// WaitDone waits for the process to exit.
func (p *FakeProcess) WaitDone(t testing.TB) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s to exit", p.spec.Name)
	}
}

var errStdinClosed = errors.New("write to closed stdin")

type fakeStdin struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	closed  bool
	nCloses int
	err     error
}

func (s *fakeStdin) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errStdinClosed
	}
	if s.err != nil {
		return 0, s.err
	}
	return s.buf.Write(b)
}

func (s *fakeStdin) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nCloses++
	s.closed = true
	return nil
}

func (s *fakeStdin) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

func (s *fakeStdin) closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nCloses
}

func (s *fakeStdin) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
