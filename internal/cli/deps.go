// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/respawn-cli/respawn/internal/config"
	"github.com/respawn-cli/respawn/pkg/installer"
	"github.com/respawn-cli/respawn/pkg/registry"
)

// selfPackage is the GitHub repository respawn updates itself from.
const selfPackage = "respawn-cli/respawn"

// newGitHubClient builds a GitHub registry client from the config, picking up
// a token from the config file or the GITHUB_TOKEN environment variable for
// the higher authenticated rate limit.
func newGitHubClient(cfg *config.Config) *registry.GitHubClient {
	opts := []registry.GitHubOption{
		registry.WithGitHubUserAgent("respawn/" + Version),
	}
	if cfg.Registry.BaseURL != "" {
		opts = append(opts, registry.WithGitHubBaseURL(cfg.Registry.BaseURL))
	}

	token := cfg.Registry.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token != "" {
		opts = append(opts, registry.WithGitHubToken(token))
	}

	return registry.NewGitHubClient(opts...)
}

// resolverFromConfig builds the version resolver selected by registry.kind.
func resolverFromConfig(cfg *config.Config) (registry.Resolver, error) {
	switch cfg.Registry.Kind {
	case "", "github":
		return newGitHubClient(cfg), nil
	case "crates":
		opts := []registry.CratesOption{
			registry.WithCratesUserAgent("respawn/" + Version),
		}
		if cfg.Registry.BaseURL != "" {
			opts = append(opts, registry.WithCratesBaseURL(cfg.Registry.BaseURL))
		}
		return registry.NewCratesClient(opts...), nil
	default:
		return nil, fmt.Errorf("unknown registry kind %q (expected \"github\" or \"crates\")", cfg.Registry.Kind)
	}
}

// installerFromConfig builds the installer selected by installer.kind.
func installerFromConfig(cfg *config.Config) (installer.Installer, error) {
	switch cfg.Installer.Kind {
	case "", "release":
		opts := []installer.ReleaseOption{
			installer.WithReleaseClient(newGitHubClient(cfg)),
		}
		if cfg.Installer.Binary != "" {
			opts = append(opts, installer.WithBinaryName(cfg.Installer.Binary))
		}
		return installer.NewReleaseInstaller(opts...), nil
	case "go":
		if cfg.Installer.Module == "" {
			return nil, fmt.Errorf("installer.kind \"go\" requires installer.module to be set")
		}
		return &moduleInstaller{
			inner:  installer.NewGoInstaller(),
			module: cfg.Installer.Module,
		}, nil
	default:
		return nil, fmt.Errorf("unknown installer kind %q (expected \"release\" or \"go\")", cfg.Installer.Kind)
	}
}

// moduleInstaller adapts the GoInstaller to registry package names: the
// registry resolves versions for an "owner/repo" package while `go install`
// needs the full module path from the config.
type moduleInstaller struct {
	inner  *installer.GoInstaller
	module string
}

// Install runs the underlying go install with the configured module path.
func (m *moduleInstaller) Install(ctx context.Context, _ string, version string) error {
	return m.inner.Install(ctx, m.module, version)
}
