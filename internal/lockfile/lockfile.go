// SPDX-License-Identifier: MPL-2.0

// Package lockfile guards against relaunch loops. A relaunched process runs
// the same startup update check as its parent; the lock file makes the second
// check a no-op instead of another relaunch.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// staleAfter is how old a lock file may be before it is considered leftover
// from a crashed process and silently replaced.
const staleAfter = 10 * time.Minute

// ErrHeld indicates a live lock for the same package already exists.
var ErrHeld = errors.New("lock already held")

//nolint:gochecknoglobals // Test seam for the lock directory (default: os.TempDir).
var lockDir = os.TempDir

// Guard represents a held lock. Release removes the lock file; calling it
// more than once is safe.
type Guard struct {
	path    string
	token   string
	release sync.Once
}

// Acquire takes the relaunch lock for the named package. The lock is a file
// in the system temp directory containing a fresh UUID token; a live lock
// from another process yields ErrHeld, while a stale one is replaced.
func Acquire(name string) (*Guard, error) {
	path := filepath.Join(lockDir(), fmt.Sprintf("respawn-%s.lock", sanitize(name)))
	token := uuid.NewString()

	if err := createLock(path, token); err != nil {
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		info, statErr := os.Stat(path)
		if statErr == nil && time.Since(info.ModTime()) < staleAfter {
			return nil, fmt.Errorf("lock file %s: %w", path, ErrHeld)
		}

		// Stale or vanished lock: remove it and try once more.
		_ = os.Remove(path)
		if err := createLock(path, token); err != nil {
			return nil, fmt.Errorf("replacing stale lock file: %w", err)
		}
	}

	return &Guard{path: path, token: token}, nil
}

// Release removes the lock file. Safe to call multiple times.
func (g *Guard) Release() {
	g.release.Do(func() {
		_ = os.Remove(g.path)
	})
}

// createLock atomically creates the lock file with the owner token inside.
// Fails with os.ErrExist when the file is already present.
func createLock(path, token string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = fmt.Fprintf(f, "%s %d\n", token, os.Getpid())
	return err
}

// sanitize maps a package name to a filesystem-safe lock file component.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, name)
}
