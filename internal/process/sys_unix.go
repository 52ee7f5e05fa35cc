//go:build unix

package process

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func configureCommand(cmd *exec.Cmd) {
	// Own process group: terminal signals reach the daemon only, and
	// termination reaches every helper ffmpeg forks.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

type groupSignaler struct{}

func (groupSignaler) Interrupt(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	return unix.Kill(-p.Pid, unix.SIGTERM)
}

func (groupSignaler) Kill(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	return unix.Kill(-p.Pid, unix.SIGKILL)
}

func signalName(state *os.ProcessState) string {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	return unix.SignalName(unix.Signal(ws.Signal()))
}
