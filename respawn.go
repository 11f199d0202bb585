// SPDX-License-Identifier: MPL-2.0

// Package respawn lets a command-line program update itself at startup: it
// checks a package registry for a newer published version, optionally asks
// the user, installs the new binary, and restarts the process with the same
// arguments so the update takes effect immediately.
//
// The package is organized around one entry point, Relaunch, and three
// collaborator interfaces it composes:
//   - registry.Resolver fetches the latest published version
//   - installer.Installer swaps the on-disk binary atomically
//   - relaunch.Restarter replaces the running process
//
// Defaults target GitHub Releases ("owner/repo" packages); every collaborator
// is injectable, which is also how the tests substitute them.
package respawn

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/respawn-cli/respawn/internal/lockfile"
	"github.com/respawn-cli/respawn/internal/procinfo"
	"github.com/respawn-cli/respawn/pkg/installer"
	"github.com/respawn-cli/respawn/pkg/registry"
	"github.com/respawn-cli/respawn/pkg/relaunch"
)

var (
	//nolint:gochecknoglobals // Test seam for procinfo.InvokedFromPath.
	invokedFromPath = procinfo.InvokedFromPath

	//nolint:gochecknoglobals // Test seam for procinfo.Args.
	processArgs = procinfo.Args

	//nolint:gochecknoglobals // Test seam for procinfo.Executable.
	executablePath = procinfo.Executable

	//nolint:gochecknoglobals // Test seam for debug.ReadBuildInfo.
	readBuildInfo = debug.ReadBuildInfo
)

type (
	// ConfirmFunc decides whether an available update should be installed.
	// It receives the latest published version and is invoked at most once
	// per attempt. It may block on interactive input. Returning an error
	// aborts the attempt without installing anything.
	ConfirmFunc func(latest string) (bool, error)

	// Options configures one update attempt.
	Options struct {
		// Package names the registry artifact, e.g. "owner/repo" for the
		// default GitHub Releases registry. Required.
		Package string

		// CurrentVersion overrides the running binary's version. When
		// empty, the version embedded by the Go toolchain at build time
		// is used.
		CurrentVersion string

		// Confirm is consulted once when an update is available. Nil
		// means auto-approve.
		Confirm ConfirmFunc

		// RequireFromPath skips the whole check when the binary was not
		// invoked via $PATH, so locally built copies run by explicit path
		// are never nagged about the installed version.
		RequireFromPath bool

		// Resolver, Installer, and Restarter override the default
		// collaborators (GitHub Releases registry, checksum-verified
		// release-archive installer, platform-native process restart).
		Resolver  registry.Resolver
		Installer installer.Installer
		Restarter relaunch.Restarter
	}
)

// Relaunch runs one full update attempt: check, decide, install, restart.
//
// It returns (OutcomeNoUpdate, nil), (OutcomeDeclined, nil), or
// (OutcomeSkippedNotFromPath, nil) when nothing was installed, and
// (OutcomeFailed, err) for any failure — the error distinguishes registry,
// version-parse, confirmation, install, and relaunch failures via errors.As.
// When the update is applied with the default Restarter, Relaunch does not
// return: the process image is replaced (or, on platforms without exec, the
// process exits once the new instance has started).
//
// The whole sequence is synchronous and runs on the calling goroutine.
// Nothing is retried and no timeout is imposed; wrap the context externally
// for bounded latency of the network steps.
func Relaunch(ctx context.Context, opts Options) (Outcome, error) {
	if opts.Package == "" {
		return OutcomeFailed, ErrPackageRequired
	}

	// The PATH gate comes before everything else: no lock, no network.
	if opts.RequireFromPath && !invokedFromPath() {
		return OutcomeSkippedNotFromPath, nil
	}

	guard, err := lockfile.Acquire(opts.Package)
	if err != nil {
		if errors.Is(err, lockfile.ErrHeld) {
			return OutcomeFailed, ErrAlreadyRelaunching
		}
		return OutcomeFailed, fmt.Errorf("acquiring relaunch lock: %w", err)
	}
	defer guard.Release()

	resolver := opts.Resolver
	if resolver == nil {
		resolver = registry.NewGitHubClient()
	}

	latest, err := resolver.LatestVersion(ctx, opts.Package)
	if err != nil {
		return OutcomeFailed, &RegistryError{Package: opts.Package, Err: err}
	}

	current := opts.CurrentVersion
	if current == "" {
		current = buildVersion()
	}

	latestNorm, err := normalizeVersion(latest)
	if err != nil {
		return OutcomeFailed, err
	}
	currentNorm, err := normalizeVersion(current)
	if err != nil {
		return OutcomeFailed, err
	}

	// Standard semver precedence: build metadata is ignored, so "1.0.0"
	// and "1.0.0+build5" compare equal and never trigger an update.
	if semver.Compare(latestNorm, currentNorm) <= 0 {
		return OutcomeNoUpdate, nil
	}

	// A newer version exists. Absent a confirmation function the update is
	// auto-approved.
	if opts.Confirm != nil {
		approved, confirmErr := opts.Confirm(latest)
		if confirmErr != nil {
			return OutcomeFailed, &ConfirmationError{Err: confirmErr}
		}
		if !approved {
			return OutcomeDeclined, nil
		}
	}

	inst := opts.Installer
	if inst == nil {
		inst = installer.NewReleaseInstaller()
	}

	if err := inst.Install(ctx, opts.Package, latest); err != nil {
		return OutcomeFailed, &InstallError{Package: opts.Package, Version: latest, Err: err}
	}

	execPath, err := executablePath()
	if err != nil {
		return OutcomeFailed, &RelaunchError{Path: "", Err: err}
	}

	restarter := opts.Restarter
	if restarter == nil {
		restarter = relaunch.NewProcessRestarter()
	}

	// The relaunched process runs the newly installed version, so its own
	// startup check resolves to "no update". Release the lock before the
	// exec replaces this process image and skips the deferred call.
	guard.Release()

	if err := restarter.Restart(execPath, processArgs()); err != nil {
		return OutcomeFailed, &RelaunchError{Path: execPath, Err: err}
	}

	// Only reachable with an injected Restarter that spawns without
	// terminating this process.
	return OutcomeRelaunched, nil
}

// buildVersion returns the main module version embedded by the Go toolchain,
// or "" when the binary carries no build info (e.g. built from a work tree).
func buildVersion() string {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return ""
	}
	v := info.Main.Version
	if v == "(devel)" {
		return ""
	}
	return v
}

// normalizeVersion ensures the version carries the "v" prefix required by the
// semver package and validates the result.
func normalizeVersion(v string) (string, error) {
	norm := v
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}
	if !semver.IsValid(norm) {
		return "", &VersionParseError{Version: v, Err: errors.New("not a valid semantic version")}
	}
	return norm, nil
}
