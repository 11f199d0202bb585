// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package relaunch

import (
	"fmt"
	"os"
	"syscall"
)

// Restart replaces the current process image with execve(2). It only returns
// on failure; on success the new program owns the process from here on.
func (r *ProcessRestarter) Restart(path string, args []string) error {
	if len(args) == 0 {
		args = []string{path}
	}

	if err := syscall.Exec(path, args, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}

	// Unreachable: a successful exec never returns.
	return nil
}
