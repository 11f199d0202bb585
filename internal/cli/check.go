// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/respawn-cli/respawn/internal/config"
)

// checkParams bundles the dependencies and flags for the check command, so
// the core logic in runCheck can be tested without a real cobra command or
// live registry calls.
type checkParams struct {
	stdout    io.Writer
	cfg       *config.Config
	pkg       string
	current   string // version to compare against; empty = report latest only
	showNotes bool
}

// newCheckCommand creates `respawn check`, which reports the latest published
// version of a package without installing anything.
func newCheckCommand() *cobra.Command {
	var (
		current string
		noNotes bool
	)

	cmd := &cobra.Command{
		Use:   "check [package]",
		Short: "Report the latest published version of a package",
		Long: `Report the latest published version of a package.

With the default GitHub registry the package is an "owner/repo" path and
the release notes of the latest release are rendered below the version.
Nothing is downloaded or installed.`,
		Example: `  # Check the latest release of a GitHub project
  respawn check charmbracelet/gum

  # Compare against a known version
  respawn check charmbracelet/gum --current v0.14.0

  # Check respawn itself
  respawn check`,
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

			cur := current
			if cur == "" && pkg == selfPackage && Version != "dev" {
				cur = Version
			}

			p := checkParams{
				stdout:    cmd.OutOrStdout(),
				cfg:       cfg,
				pkg:       pkg,
				current:   cur,
				showNotes: !noNotes,
			}

			if err := runCheck(cmd.Context(), p); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatCLIError(err))
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "version to compare against (default: this binary's version for self-checks)")
	cmd.Flags().BoolVar(&noNotes, "no-notes", false, "skip rendering release notes")

	return cmd
}

// runCheck is the core check logic, separated from cobra for testability.
func runCheck(ctx context.Context, p checkParams) error {
	logger.Debug("checking registry", "kind", p.cfg.Registry.Kind, "package", p.pkg)

	var (
		latest string
		notes  string
	)

	switch p.cfg.Registry.Kind {
	case "crates":
		resolver, err := resolverFromConfig(p.cfg)
		if err != nil {
			return err
		}
		v, err := resolver.LatestVersion(ctx, p.pkg)
		if err != nil {
			return err
		}
		latest = v
	default:
		release, err := newGitHubClient(p.cfg).LatestRelease(ctx, p.pkg)
		if err != nil {
			return err
		}
		latest = release.TagName
		notes = release.Body
	}

	fmt.Fprintf(p.stdout, "Package:        %s\n", p.pkg)
	fmt.Fprintf(p.stdout, "Latest version: %s\n", latest)

	if p.current != "" {
		fmt.Fprintf(p.stdout, "Your version:   %s\n", p.current)
		switch compareVersions(latest, p.current) {
		case 1:
			fmt.Fprintf(p.stdout, "\nAn update is available: %s -> %s\n", p.current, latest)
			fmt.Fprintln(p.stdout, "Run "+CmdStyle.Render("respawn update")+" to install.")
		default:
			fmt.Fprintln(p.stdout, "\n"+SuccessStyle.Render("You are up to date."))
		}
	}

	if p.showNotes && notes != "" {
		fmt.Fprintln(p.stdout)
		fmt.Fprint(p.stdout, renderNotes(notes))
	}

	return nil
}

// compareVersions compares two version strings by semver precedence after
// normalizing the "v" prefix. Returns 0 for unparseable input so malformed
// versions never report an available update.
func compareVersions(a, b string) int {
	if !strings.HasPrefix(a, "v") {
		a = "v" + a
	}
	if !strings.HasPrefix(b, "v") {
		b = "v" + b
	}
	if !semver.IsValid(a) || !semver.IsValid(b) {
		return 0
	}
	return semver.Compare(a, b)
}

// renderNotes renders release-notes markdown for the terminal, falling back
// to the raw text when rendering fails.
func renderNotes(body string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		logger.Debug("markdown renderer unavailable", "err", err)
		return body + "\n"
	}

	out, err := r.Render(body)
	if err != nil {
		logger.Debug("rendering release notes failed", "err", err)
		return body + "\n"
	}
	return out
}
