// SPDX-License-Identifier: MPL-2.0

// Package installer swaps the on-disk binary for a newer published version.
// The ReleaseInstaller downloads a checksum-verified release archive and
// atomically replaces the current executable; the GoInstaller defers to
// `go install` for go-installable tools. Either way the old binary survives
// every failure mode intact.
package installer

import "context"

// Installer installs the given version of the named package over the
// currently installed binary. Install must be atomic with respect to the old
// binary: on any error the previous executable remains in place and runnable.
type Installer interface {
	Install(ctx context.Context, pkg, version string) error
}
