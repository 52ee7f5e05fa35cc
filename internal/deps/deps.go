package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Status reports whether an external program capdeck launches is usable.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// Summary is the line shown next to the status in doctor output: the
// resolved command when usable, the failure reason otherwise.
func (s Status) Summary() string {
	if s.Available {
		return s.Command
	}
	if s.Detail == "" {
		return fmt.Sprintf("%s unavailable", s.Name)
	}
	return s.Detail
}

// locate resolves binary either as an explicit path, which must exist and be
// executable, or as a bare name searched on PATH.
func locate(binary string) (string, error) {
	if strings.ContainsRune(binary, os.PathSeparator) {
		info, err := os.Stat(binary)
		if err != nil {
			return "", fmt.Errorf("binary %q not found", binary)
		}
		if !isExecutable(info) {
			return "", fmt.Errorf("binary %q is not executable", binary)
		}
		return binary, nil
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", binary)
	}
	return resolved, nil
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
