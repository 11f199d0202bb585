// SPDX-License-Identifier: MPL-2.0

//go:build windows

package relaunch

import (
	"fmt"
	"os"
	"os/exec"
)

// Restart spawns a new instance of the binary with inherited standard streams
// and environment, then exits the current process. Windows has no true
// in-place exec, so spawn-and-exit stands in for process replacement.
func (r *ProcessRestarter) Restart(path string, args []string) error {
	var childArgs []string
	if len(args) > 1 {
		childArgs = args[1:]
	}

	cmd := exec.Command(path, childArgs...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", path, err)
	}

	// The child owns the terminal now; the old process image is done.
	os.Exit(0)
	return nil
}
