//go:build !unix

package preflight

import (
	"fmt"
	"os"
)

// CheckDirectoryAccess verifies that the directory exists and accepts a new file.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	probe, err := os.CreateTemp(path, ".capdeck-probe-*")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not writable: %v)", path, err)}
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace is not measured on this platform.
func CheckFreeSpace(name, path string, _ uint64) Result {
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (free space not checked)", path)}
}
