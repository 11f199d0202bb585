// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/respawn-cli/respawn"
	"github.com/respawn-cli/respawn/internal/config"
	"github.com/respawn-cli/respawn/pkg/installer"
	"github.com/respawn-cli/respawn/pkg/registry"
	"github.com/respawn-cli/respawn/pkg/relaunch"
)

// updateParams bundles the dependencies and flags for the update command,
// enabling the core logic in runUpdate to be tested without a real cobra
// command, live registry calls, or an actual process restart.
type updateParams struct {
	stdout          io.Writer
	cfg             *config.Config
	pkg             string
	current         string
	yes             bool
	requireFromPath bool
	resolver        registry.Resolver
	installer       installer.Installer
	restarter       relaunch.Restarter // nil = platform default
	confirmFn       respawn.ConfirmFunc
}

// newUpdateCommand creates `respawn update`, which installs the latest
// published version of the binary and relaunches it with the same arguments.
func newUpdateCommand() *cobra.Command {
	var (
		current         string
		yes             bool
		requireFromPath bool
	)

	cmd := &cobra.Command{
		Use:   "update [package]",
		Short: "Install the latest published version and relaunch",
		Long: `Install the latest published version and relaunch.

The update command resolves the latest version from the configured
registry, asks for confirmation, downloads and verifies the new binary,
atomically replaces the current executable, and restarts the process
with the same arguments. On success it does not return: the relaunched
process takes over.`,
		Example: `  # Update respawn itself
  respawn update

  # Skip the confirmation prompt
  respawn update --yes

  # Only update when invoked via PATH (skip for local builds)
  respawn update --require-path`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			pkg := cfg.Package
			if len(args) > 0 {
				pkg = args[0]
			}
			if pkg == "" {
				pkg = selfPackage
			}

			resolver, err := resolverFromConfig(cfg)
			if err != nil {
				return err
			}
			inst, err := installerFromConfig(cfg)
			if err != nil {
				return err
			}

			cur := current
			if cur == "" && Version != "dev" {
				cur = Version
			}

			p := updateParams{
				stdout:          cmd.OutOrStdout(),
				cfg:             cfg,
				pkg:             pkg,
				current:         cur,
				yes:             yes || cfg.AutoConfirm,
				requireFromPath: requireFromPath || cfg.RequireFromPath,
				resolver:        resolver,
				installer:       inst,
			}

			if err := runUpdate(cmd.Context(), p); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatCLIError(err))
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "version of the running binary (default: the embedded build version)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&requireFromPath, "require-path", false, "skip the check unless invoked via PATH")

	return cmd
}

// runUpdate is the core update logic, separated from cobra for testability.
// On a real relaunch this function never returns.
func runUpdate(ctx context.Context, p updateParams) error {
	opts := respawn.Options{
		Package:         p.pkg,
		CurrentVersion:  p.current,
		RequireFromPath: p.requireFromPath,
		Resolver:        p.resolver,
		Installer:       p.installer,
		Restarter:       p.restarter,
	}

	// Without --yes, route the decision through the interactive prompt.
	// The library treats a nil Confirm as auto-approve.
	if !p.yes {
		confirmFn := p.confirmFn
		if confirmFn == nil {
			confirmFn = func(latest string) (bool, error) {
				return confirm(fmt.Sprintf("Update %s to %s?", p.pkg, latest))
			}
		}
		opts.Confirm = confirmFn
	}

	logger.Debug("starting update attempt", "package", p.pkg, "current", p.current)

	outcome, err := respawn.Relaunch(ctx, opts)
	if err != nil {
		return err
	}

	switch outcome {
	case respawn.OutcomeNoUpdate:
		fmt.Fprintln(p.stdout, SuccessStyle.Render("Already up to date."))
	case respawn.OutcomeDeclined:
		fmt.Fprintln(p.stdout, "Update declined.")
	case respawn.OutcomeSkippedNotFromPath:
		fmt.Fprintln(p.stdout, WarningStyle.Render("Skipped: ")+"not invoked via PATH; run the installed copy to update it.")
	case respawn.OutcomeRelaunched:
		// Reached only with an injected restarter (tests): a real restart
		// replaces the process before this point.
		fmt.Fprintln(p.stdout, SuccessStyle.Render("Updated and relaunched."))
	case respawn.OutcomeFailed:
		// Unreachable: a failed outcome always carries an error.
	}

	return nil
}

// classifyExitCode maps an error to the process exit code. User-correctable
// failures (permissions, unknown packages, a cancelled prompt) use exit code
// 1; unexpected or transient failures use 2.
func classifyExitCode(err error) int {
	switch {
	case errors.Is(err, os.ErrPermission),
		errors.Is(err, registry.ErrPackageNotFound),
		errors.Is(err, ErrPromptCancelled):
		return 1
	default:
		return 2
	}
}

// formatCLIError produces a user-facing message with remediation guidance
// tailored to the failure kind.
func formatCLIError(err error) string {
	var rateLimitErr *registry.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return fmt.Sprintf("%s\n\nTo increase your rate limit, set a GitHub token:\n  export GITHUB_TOKEN=ghp_...\nThen retry.", rateLimitErr.Error())
	}

	var checksumErr *installer.ChecksumError
	if errors.As(err, &checksumErr) {
		return fmt.Sprintf("%s\n\nThe download may be corrupted. Please try again.", checksumErr.Error())
	}

	var relaunchErr *respawn.RelaunchError
	if errors.As(err, &relaunchErr) {
		// The message already tells the user the update is installed and a
		// manual restart picks it up.
		return relaunchErr.Error()
	}

	if errors.Is(err, os.ErrPermission) {
		return "insufficient permissions to replace the binary\n\nTry running with elevated privileges:\n  sudo respawn update"
	}

	var registryErr *respawn.RegistryError
	if errors.As(err, &registryErr) {
		return fmt.Sprintf("%s\n\nCheck your network connection and try again.", registryErr.Error())
	}

	return err.Error()
}
