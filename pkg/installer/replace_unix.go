// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package installer

import "os"

// replaceExecutable moves the new binary over the current one. os.Rename is
// atomic on Unix when both paths are on the same filesystem, which is
// guaranteed because the new binary is created in the target's directory.
func replaceExecutable(currentPath, newPath string) error {
	return os.Rename(newPath, currentPath)
}
