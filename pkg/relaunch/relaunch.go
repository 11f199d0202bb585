// SPDX-License-Identifier: MPL-2.0

// Package relaunch restarts the current program so a freshly installed binary
// takes effect. On Unix the process image is replaced in place via exec; on
// other platforms a new process is spawned with inherited streams and the old
// one exits once the child has started.
package relaunch

// Restarter replaces the running process with a new instance of the binary at
// path, forwarding args (program name included) and the current environment.
// On success Restart does not return in the conventional sense: either the
// process image is replaced outright or the current process exits after the
// replacement starts.
type Restarter interface {
	Restart(path string, args []string) error
}

// ProcessRestarter is the platform-native Restarter.
type ProcessRestarter struct{}

// NewProcessRestarter returns the platform-native Restarter.
func NewProcessRestarter() *ProcessRestarter {
	return &ProcessRestarter{}
}
