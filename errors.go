// SPDX-License-Identifier: MPL-2.0

package respawn

import (
	"errors"
	"fmt"
)

var (
	// ErrPackageRequired indicates Options.Package was empty.
	ErrPackageRequired = errors.New("package name must not be empty")

	// ErrAlreadyRelaunching indicates another relaunch attempt for the same
	// package is in flight (the relaunch lock is held).
	ErrAlreadyRelaunching = errors.New("relaunch already in progress")
)

type (
	// RegistryError wraps a failure to fetch the latest published version
	// from the registry. Lookups are never retried by this package.
	RegistryError struct {
		Package string
		Err     error
	}

	// VersionParseError indicates the current or latest version string is
	// not valid semver. No comparison is attempted on malformed input.
	VersionParseError struct {
		Version string
		Err     error
	}

	// ConfirmationError wraps a failure of the caller-supplied confirmation
	// function itself (as opposed to the user declining).
	ConfirmationError struct {
		Err error
	}

	// InstallError wraps a failure of the install step. The previously
	// installed binary is guaranteed untouched; no relaunch is attempted.
	InstallError struct {
		Package string
		Version string
		Err     error
	}

	// RelaunchError indicates the install succeeded but the process could
	// not be restarted. The update is already on disk at Path, so the user
	// must restart manually — the message says so explicitly.
	RelaunchError struct {
		Path string
		Err  error
	}
)

// Error returns the registry failure with the package name for context.
func (e *RegistryError) Error() string {
	return fmt.Sprintf("fetching latest version of %s: %v", e.Package, e.Err)
}

// Unwrap returns the underlying registry failure.
func (e *RegistryError) Unwrap() error { return e.Err }

// Error identifies the offending version string.
func (e *VersionParseError) Error() string {
	return fmt.Sprintf("invalid semantic version %q: %v", e.Version, e.Err)
}

// Unwrap returns the underlying parse failure.
func (e *VersionParseError) Unwrap() error { return e.Err }

// Error returns the confirmation failure.
func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("confirmation prompt failed: %v", e.Err)
}

// Unwrap returns the underlying confirmation failure.
func (e *ConfirmationError) Unwrap() error { return e.Err }

// Error returns the install failure with package and version for context.
func (e *InstallError) Error() string {
	return fmt.Sprintf("installing %s %s: %v", e.Package, e.Version, e.Err)
}

// Unwrap returns the underlying install failure.
func (e *InstallError) Unwrap() error { return e.Err }

// Error states that the update is installed but the restart failed, so the
// user knows a manual restart picks up the new version.
func (e *RelaunchError) Error() string {
	return fmt.Sprintf("restarting %s: %v (the update is already installed; restart the program manually to use it)", e.Path, e.Err)
}

// Unwrap returns the underlying restart failure.
func (e *RelaunchError) Unwrap() error { return e.Err }
