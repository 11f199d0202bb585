// SPDX-License-Identifier: MPL-2.0

//go:build windows

package installer

import "os"

// replaceExecutable swaps in the new binary on Windows, where a running .exe
// cannot be overwritten. Windows does allow renaming a locked file, so the
// running binary is moved aside to .bak first; on failure the backup is
// restored so the old binary stays runnable.
func replaceExecutable(currentPath, newPath string) error {
	backupPath := currentPath + ".bak"

	// Remove any stale backup from a previous upgrade.
	_ = os.Remove(backupPath)

	if err := os.Rename(currentPath, backupPath); err != nil {
		return err
	}

	if err := os.Rename(newPath, currentPath); err != nil {
		_ = os.Rename(backupPath, currentPath)
		return err
	}

	return nil
}
