// SPDX-License-Identifier: MPL-2.0

// Package cli contains all commands of the respawn CLI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging on stderr.
	verbose bool

	// logger is the CLI diagnostic logger. Command output goes to stdout;
	// the logger only carries verbose diagnostics on stderr.
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          "respawn",
	})

	// rootCmd represents the base command when called without subcommands.
	rootCmd = &cobra.Command{
		Use:   "respawn",
		Short: "Self-update helper for command-line binaries",
		Long: TitleStyle.Render("respawn") + SubtitleStyle.Render(" - self-update helper for command-line binaries") + `

respawn checks a package registry for a newer published version of a
program, installs it, and relaunches the process so the update takes
effect without manual reinvocation.

As a library, embed github.com/respawn-cli/respawn near program startup.
As a CLI, respawn keeps itself up to date and can query any package:

` + SubtitleStyle.Render("Examples:") + `
  respawn check charmbracelet/gum   Check the latest release of a package
  respawn update                    Update respawn itself and relaunch
  respawn update --yes              Skip the confirmation prompt
  respawn config init               Write the default config file`,
	}
)

func init() {
	cobra.OnInitialize(func() {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	})

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newConfigCommand())
}

// versionString returns a formatted version string for display.
func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command. Called by main.main().
func Execute() {
	// fang overrides rootCmd.Version, so the version goes in via option.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
