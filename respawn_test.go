// SPDX-License-Identifier: MPL-2.0

package respawn

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/respawn-cli/respawn/internal/lockfile"
)

// fakeResolver is a Resolver spy returning a canned version or error.
type fakeResolver struct {
	version string
	err     error
	calls   int
}

func (f *fakeResolver) LatestVersion(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.version, nil
}

// fakeInstaller is an Installer spy recording its arguments.
type fakeInstaller struct {
	err        error
	calls      int
	gotPkg     string
	gotVersion string
}

func (f *fakeInstaller) Install(_ context.Context, pkg, version string) error {
	f.calls++
	f.gotPkg = pkg
	f.gotVersion = version
	return f.err
}

// fakeRestarter is a Restarter spy that, unlike the real one, returns.
type fakeRestarter struct {
	err     error
	calls   int
	gotPath string
	gotArgs []string
}

func (f *fakeRestarter) Restart(path string, args []string) error {
	f.calls++
	f.gotPath = path
	f.gotArgs = args
	return f.err
}

// overrideProcSeams replaces the process introspection seams for the duration
// of the test. fromPath controls what the PATH-invocation check reports.
func overrideProcSeams(t *testing.T, fromPath bool) {
	t.Helper()

	origInvoked := invokedFromPath
	origArgs := processArgs
	origExec := executablePath
	t.Cleanup(func() {
		invokedFromPath = origInvoked
		processArgs = origArgs
		executablePath = origExec
	})

	invokedFromPath = func() bool { return fromPath }
	processArgs = func() []string { return []string{"tool", "--flag", "value"} }
	executablePath = func() (string, error) { return "/usr/local/bin/tool", nil }
}

// --- Tests ---

func TestRelaunch_EmptyPackage(t *testing.T) {
	t.Parallel()

	outcome, err := Relaunch(context.Background(), Options{})
	if !errors.Is(err, ErrPackageRequired) {
		t.Fatalf("expected ErrPackageRequired, got: %v", err)
	}
	if outcome != OutcomeFailed {
		t.Errorf("expected OutcomeFailed, got %v", outcome)
	}
}

func TestRelaunch_SkippedWhenNotFromPath(t *testing.T) {
	// Not parallel: overrides package-level test seams.
	overrideProcSeams(t, false)

	resolver := &fakeResolver{version: "9.9.9"}

	outcome, err := Relaunch(context.Background(), Options{
		Package:         "skip-not-from-path",
		CurrentVersion:  "1.0.0",
		RequireFromPath: true,
		Resolver:        resolver,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSkippedNotFromPath {
		t.Errorf("expected OutcomeSkippedNotFromPath, got %v", outcome)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver was called %d times; the PATH gate must short-circuit before any network access", resolver.calls)
	}
}

func TestRelaunch_FromPathProceedsToCheck(t *testing.T) {
	// Not parallel: overrides package-level test seams.
	overrideProcSeams(t, true)

	resolver := &fakeResolver{version: "1.0.0"}

	outcome, err := Relaunch(context.Background(), Options{
		Package:         "from-path-proceeds",
		CurrentVersion:  "1.0.0",
		RequireFromPath: true,
		Resolver:        resolver,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeNoUpdate {
		t.Errorf("expected OutcomeNoUpdate, got %v", outcome)
	}
	if resolver.calls != 1 {
		t.Errorf("expected exactly one resolver call, got %d", resolver.calls)
	}
}

func TestRelaunch_NoUpdateWhenLatestOlder(t *testing.T) {
	// Scenario: current 2.0.0, registry reports 1.9.9.
	overrideProcSeams(t, true)

	confirmCalls := 0
	inst := &fakeInstaller{}

	outcome, err := Relaunch(context.Background(), Options{
		Package:        "latest-older",
		CurrentVersion: "2.0.0",
		Resolver:       &fakeResolver{version: "1.9.9"},
		Installer:      inst,
		Confirm: func(string) (bool, error) {
			confirmCalls++
			return true, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeNoUpdate {
		t.Errorf("expected OutcomeNoUpdate, got %v", outcome)
	}
	if confirmCalls != 0 {
		t.Errorf("confirmation was invoked %d times; must never be called without an update", confirmCalls)
	}
	if inst.calls != 0 {
		t.Errorf("installer was invoked %d times; must never be called without an update", inst.calls)
	}
}

func TestRelaunch_NoUpdateWhenEqual(t *testing.T) {
	overrideProcSeams(t, true)

	confirmCalls := 0

	outcome, err := Relaunch(context.Background(), Options{
		Package:        "versions-equal",
		CurrentVersion: "1.4.2",
		Resolver:       &fakeResolver{version: "1.4.2"},
		Confirm: func(string) (bool, error) {
			confirmCalls++
			return true, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeNoUpdate {
		t.Errorf("expected OutcomeNoUpdate for equal versions, got %v", outcome)
	}
	if confirmCalls != 0 {
		t.Error("equal versions must never prompt")
	}
}

func TestRelaunch_BuildMetadataIgnored(t *testing.T) {
	// Standard semver precedence: "1.0.0+build5" and "1.0.0" compare equal.
	overrideProcSeams(t, true)

	outcome, err := Relaunch(context.Background(), Options{
		Package:        "build-metadata",
		CurrentVersion: "1.0.0",
		Resolver:       &fakeResolver{version: "1.0.0+build5"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeNoUpdate {
		t.Errorf("expected OutcomeNoUpdate for build-metadata-only difference, got %v", outcome)
	}
}

func TestRelaunch_DeclinedByUser(t *testing.T) {
	overrideProcSeams(t, true)

	inst := &fakeInstaller{}
	restarter := &fakeRestarter{}

	outcome, err := Relaunch(context.Background(), Options{
		Package:        "declined",
		CurrentVersion: "1.0.0",
		Resolver:       &fakeResolver{version: "1.2.0"},
		Installer:      inst,
		Restarter:      restarter,
		Confirm:        func(string) (bool, error) { return false, nil },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeDeclined {
		t.Errorf("expected OutcomeDeclined, got %v", outcome)
	}
	if inst.calls != 0 {
		t.Errorf("installer called %d times after decline", inst.calls)
	}
	if restarter.calls != 0 {
		t.Errorf("restarter called %d times after decline", restarter.calls)
	}
}

func TestRelaunch_AutoApproveWithoutPredicate(t *testing.T) {
	// No Confirm supplied means auto-approve. This default is load-bearing
	// and easy to invert accidentally.
	overrideProcSeams(t, true)

	inst := &fakeInstaller{}
	restarter := &fakeRestarter{}

	outcome, err := Relaunch(context.Background(), Options{
		Package:        "auto-approve",
		CurrentVersion: "1.0.0",
		Resolver:       &fakeResolver{version: "1.1.0"},
		Installer:      inst,
		Restarter:      restarter,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeRelaunched {
		t.Errorf("expected OutcomeRelaunched, got %v", outcome)
	}
	if inst.calls != 1 {
		t.Errorf("expected exactly one install call, got %d", inst.calls)
	}
	if restarter.calls != 1 {
		t.Errorf("expected exactly one restart call, got %d", restarter.calls)
	}
}

func TestRelaunch_ConfirmReceivesLatestOnce(t *testing.T) {
	overrideProcSeams(t, true)

	var got []string

	_, err := Relaunch(context.Background(), Options{
		Package:        "confirm-once",
		CurrentVersion: "1.0.0",
		Resolver:       &fakeResolver{version: "1.2.0"},
		Installer:      &fakeInstaller{},
		Restarter:      &fakeRestarter{},
		Confirm: func(latest string) (bool, error) {
			got = append(got, latest)
			return true, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("confirmation invoked %d times, want exactly 1", len(got))
	}
	if got[0] != "1.2.0" {
		t.Errorf("confirmation received %q, want %q", got[0], "1.2.0")
	}
}

func TestRelaunch_ConfirmFailure(t *testing.T) {
	overrideProcSeams(t, true)

	inst := &fakeInstaller{}

	outcome, err := Relaunch(context.Background(), Options{
		Package:        "confirm-failure",
		CurrentVersion: "1.0.0",
		Resolver:       &fakeResolver{version: "1.2.0"},
		Installer:      inst,
		Confirm:        func(string) (bool, error) { return false, errors.New("stdin closed") },
	})
	if err == nil {
		t.Fatal("expected error from failing confirmation, got nil")
	}

	var confirmErr *ConfirmationError
	if !errors.As(err, &confirmErr) {
		t.Errorf("expected *ConfirmationError, got: %v", err)
	}
	if outcome != OutcomeFailed {
		t.Errorf("expected OutcomeFailed, got %v", outcome)
	}
	if inst.calls != 0 {
		t.Error("installer must not run when confirmation fails")
	}
}

func TestRelaunch_RegistryFailure(t *testing.T) {
	// Scenario: the registry call times out.
	overrideProcSeams(t, true)

	inst := &fakeInstaller{}
	restarter := &fakeRestarter{}
	netErr := errors.New("dial tcp: i/o timeout")

	outcome, err := Relaunch(context.Background(), Options{
		Package:        "registry-failure",
		CurrentVersion: "1.0.0",
		Resolver:       &fakeResolver{err: netErr},
		Installer:      inst,
		Restarter:      restarter,
	})
	if outcome != OutcomeFailed {
		t.Errorf("expected OutcomeFailed, got %v", outcome)
	}

	var regErr *RegistryError
	if !errors.As(err, &regErr) {
		t.Fatalf("expected *RegistryError, got: %v", err)
	}
	if !errors.Is(err, netErr) {
		t.Errorf("expected wrapped network error, got: %v", err)
	}
	if inst.calls != 0 || restarter.calls != 0 {
		t.Error("neither install nor restart may run after a registry failure")
	}
}

func TestRelaunch_MalformedVersions(t *testing.T) {
	overrideProcSeams(t, true)

	tests := []struct {
		name    string
		latest  string
		current string
	}{
		{name: "malformed latest", latest: "banana", current: "1.0.0"},
		{name: "malformed current", latest: "1.2.0", current: "not-a-version"},
		{name: "empty current without build info", latest: "1.2.0", current: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.current == "" {
				// Make the embedded build version unavailable.
				origBI := readBuildInfo
				t.Cleanup(func() { readBuildInfo = origBI })
				readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }
			}

			inst := &fakeInstaller{}

			outcome, err := Relaunch(context.Background(), Options{
				Package:        "malformed-" + strings.ReplaceAll(tc.name, " ", "-"),
				CurrentVersion: tc.current,
				Resolver:       &fakeResolver{version: tc.latest},
				Installer:      inst,
			})
			if outcome != OutcomeFailed {
				t.Errorf("expected OutcomeFailed, got %v", outcome)
			}

			var parseErr *VersionParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *VersionParseError, got: %v", err)
			}
			if inst.calls != 0 {
				t.Error("no partial comparison: installer must not run on malformed input")
			}
		})
	}
}

func TestRelaunch_InstallFailureStopsRelaunch(t *testing.T) {
	overrideProcSeams(t, true)

	inst := &fakeInstaller{err: errors.New("disk full")}
	restarter := &fakeRestarter{}

	outcome, err := Relaunch(context.Background(), Options{
		Package:        "install-failure",
		CurrentVersion: "1.0.0",
		Resolver:       &fakeResolver{version: "1.2.0"},
		Installer:      inst,
		Restarter:      restarter,
	})
	if outcome != OutcomeFailed {
		t.Errorf("expected OutcomeFailed, got %v", outcome)
	}

	var installErr *InstallError
	if !errors.As(err, &installErr) {
		t.Fatalf("expected *InstallError, got: %v", err)
	}
	if restarter.calls != 0 {
		t.Errorf("restarter saw %d calls after a failed install, want 0", restarter.calls)
	}
}

func TestRelaunch_RestartFailure(t *testing.T) {
	overrideProcSeams(t, true)

	restarter := &fakeRestarter{err: errors.New("permission denied")}

	outcome, err := Relaunch(context.Background(), Options{
		Package:        "restart-failure",
		CurrentVersion: "1.0.0",
		Resolver:       &fakeResolver{version: "1.2.0"},
		Installer:      &fakeInstaller{},
		Restarter:      restarter,
	})
	if outcome != OutcomeFailed {
		t.Errorf("expected OutcomeFailed, got %v", outcome)
	}

	var relaunchErr *RelaunchError
	if !errors.As(err, &relaunchErr) {
		t.Fatalf("expected *RelaunchError, got: %v", err)
	}
	// The message must say the update is already on disk.
	if !strings.Contains(err.Error(), "already installed") {
		t.Errorf("relaunch failure must mention the installed update, got: %v", err)
	}
}

func TestRelaunch_FullFlow(t *testing.T) {
	// Scenario: package "tool", current 1.0.0, registry 1.2.0, user approves.
	overrideProcSeams(t, true)

	inst := &fakeInstaller{}
	restarter := &fakeRestarter{}

	outcome, err := Relaunch(context.Background(), Options{
		Package:        "tool",
		CurrentVersion: "1.0.0",
		Resolver:       &fakeResolver{version: "1.2.0"},
		Installer:      inst,
		Restarter:      restarter,
		Confirm:        func(string) (bool, error) { return true, nil },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeRelaunched {
		t.Errorf("expected OutcomeRelaunched, got %v", outcome)
	}

	if inst.gotPkg != "tool" || inst.gotVersion != "1.2.0" {
		t.Errorf("install called with (%q, %q), want (%q, %q)",
			inst.gotPkg, inst.gotVersion, "tool", "1.2.0")
	}
	if restarter.gotPath != "/usr/local/bin/tool" {
		t.Errorf("restart path %q, want %q", restarter.gotPath, "/usr/local/bin/tool")
	}
	if len(restarter.gotArgs) != 3 || restarter.gotArgs[1] != "--flag" {
		t.Errorf("restart args %v, want original argv forwarded", restarter.gotArgs)
	}
}

func TestRelaunch_Idempotent(t *testing.T) {
	// Two attempts against an unchanged registry with equal versions must
	// both report no update, with no side effects on either call.
	overrideProcSeams(t, true)

	resolver := &fakeResolver{version: "1.0.0"}
	inst := &fakeInstaller{}

	for i := 0; i < 2; i++ {
		outcome, err := Relaunch(context.Background(), Options{
			Package:        "idempotent",
			CurrentVersion: "1.0.0",
			Resolver:       resolver,
			Installer:      inst,
		})
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
		if outcome != OutcomeNoUpdate {
			t.Errorf("call %d: expected OutcomeNoUpdate, got %v", i+1, outcome)
		}
	}

	if resolver.calls != 2 {
		t.Errorf("expected one resolver call per attempt, got %d", resolver.calls)
	}
	if inst.calls != 0 {
		t.Errorf("installer saw %d calls, want 0", inst.calls)
	}
}

func TestRelaunch_LockHeld(t *testing.T) {
	overrideProcSeams(t, true)

	guard, err := lockfile.Acquire("lock-held")
	if err != nil {
		t.Fatalf("acquiring lock: %v", err)
	}
	defer guard.Release()

	resolver := &fakeResolver{version: "1.2.0"}

	outcome, err := Relaunch(context.Background(), Options{
		Package:        "lock-held",
		CurrentVersion: "1.0.0",
		Resolver:       resolver,
	})
	if outcome != OutcomeFailed {
		t.Errorf("expected OutcomeFailed, got %v", outcome)
	}
	if !errors.Is(err, ErrAlreadyRelaunching) {
		t.Fatalf("expected ErrAlreadyRelaunching, got: %v", err)
	}
	if resolver.calls != 0 {
		t.Error("a held lock must stop the attempt before any network access")
	}
}

func TestRelaunch_CurrentVersionFromBuildInfo(t *testing.T) {
	overrideProcSeams(t, true)

	origBI := readBuildInfo
	t.Cleanup(func() { readBuildInfo = origBI })
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		info := &debug.BuildInfo{}
		info.Main.Version = "v1.0.0"
		return info, true
	}

	inst := &fakeInstaller{}

	outcome, err := Relaunch(context.Background(), Options{
		Package:   "build-info-version",
		Resolver:  &fakeResolver{version: "1.1.0"},
		Installer: inst,
		Restarter: &fakeRestarter{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeRelaunched {
		t.Errorf("expected OutcomeRelaunched, got %v", outcome)
	}
	if inst.calls != 1 {
		t.Errorf("expected one install call, got %d", inst.calls)
	}
}

func TestNormalizeVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1.2.3", want: "v1.2.3"},
		{in: "v1.2.3", want: "v1.2.3"},
		{in: "1.0.0-rc.1", want: "v1.0.0-rc.1"},
		{in: "1.0.0+build5", want: "v1.0.0+build5"},
		{in: "banana", wantErr: true},
		{in: "", wantErr: true},
		{in: "1.2.3.4", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%q", tc.in), func(t *testing.T) {
			t.Parallel()

			got, err := normalizeVersion(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tc.in, got)
				}
				var parseErr *VersionParseError
				if !errors.As(err, &parseErr) {
					t.Errorf("expected *VersionParseError, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("normalizeVersion(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeFailed, "failed"},
		{OutcomeNoUpdate, "no update available"},
		{OutcomeDeclined, "declined by user"},
		{OutcomeSkippedNotFromPath, "skipped (not invoked via PATH)"},
		{OutcomeRelaunched, "updated and relaunched"},
		{Outcome(99), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.outcome.String(); got != tc.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", tc.outcome, got, tc.want)
		}
	}
}
