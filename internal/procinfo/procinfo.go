// SPDX-License-Identifier: MPL-2.0

// Package procinfo answers questions about the running process: where its
// executable lives, whether it was invoked via $PATH, and what arguments it
// was started with.
package procinfo

import (
	"fmt"
	"os"
	"path/filepath"
)

var (
	//nolint:gochecknoglobals // Test seam for os.Executable().
	osExecutable = os.Executable

	//nolint:gochecknoglobals // Test seam for filepath.EvalSymlinks().
	evalSymlinks = filepath.EvalSymlinks
)

// Executable returns the absolute, symlink-resolved path to the currently
// running binary.
func Executable() (string, error) {
	p, err := osExecutable()
	if err != nil {
		return "", fmt.Errorf("determining executable path: %w", err)
	}

	resolved, err := evalSymlinks(p)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", p, err)
	}

	return resolved, nil
}

// InvokedFromPath reports whether a binary with the running executable's base
// name can be found in one of the $PATH directories. False means the process
// was started via an explicit or relative path — typically a local build that
// should not be nagged about updates to the installed copy.
func InvokedFromPath() bool {
	exePath, err := osExecutable()
	if err != nil {
		return false
	}
	name := filepath.Base(exePath)

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		if info, statErr := os.Stat(filepath.Join(dir, name)); statErr == nil && !info.IsDir() {
			return true
		}
	}

	return false
}

// Args returns the process argument vector, program name included.
func Args() []string {
	return os.Args
}
