//go:build !unix

package process

import (
	"os"
	"os/exec"
)

func configureCommand(*exec.Cmd) {}

type groupSignaler struct{}

// Interrupt falls through to an error where os.Interrupt is unsupported, so
// Terminate escalates to Kill immediately.
func (groupSignaler) Interrupt(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	return p.Signal(os.Interrupt)
}

func (groupSignaler) Kill(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	return p.Kill()
}

func signalName(*os.ProcessState) string { return "" }
