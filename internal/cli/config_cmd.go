// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/respawn-cli/respawn/internal/config"
)

// newConfigCommand creates `respawn config` with its show and init
// subcommands.
func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage the respawn configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

// newConfigShowCommand prints the effective configuration (defaults, file,
// and environment merged) as TOML.
func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			body, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}

			path, err := config.Path()
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("# config file: "+path))
			}
			fmt.Fprint(cmd.OutOrStdout(), string(body))
			return nil
		},
	}
}

// newConfigInitCommand writes the default config file.
func newConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			path, err := config.WriteDefault()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Wrote ")+path)
			return nil
		},
	}
}
