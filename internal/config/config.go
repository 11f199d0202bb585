// SPDX-License-Identifier: MPL-2.0

// Package config handles CLI configuration using Viper with TOML as the file
// format. Configuration is loaded from ~/.config/respawn/config.toml (or the
// platform equivalent of os.UserConfigDir) and can be overridden through
// RESPAWN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// configDirOverride allows tests to override the config directory, bypassing
// os.UserConfigDir which does not reliably respect env vars on all platforms.
//
//nolint:gochecknoglobals // Test seam.
var configDirOverride string

type (
	// Config is the CLI configuration.
	Config struct {
		// Package is the default "owner/repo" (or crate name) checked when
		// no argument is given on the command line.
		Package string `mapstructure:"package" toml:"package"`

		// AutoConfirm installs available updates without prompting.
		AutoConfirm bool `mapstructure:"auto_confirm" toml:"auto_confirm"`

		// RequireFromPath skips update checks when the binary was invoked
		// by explicit path instead of via $PATH.
		RequireFromPath bool `mapstructure:"require_from_path" toml:"require_from_path"`

		Registry  RegistryConfig  `mapstructure:"registry" toml:"registry"`
		Installer InstallerConfig `mapstructure:"installer" toml:"installer"`
	}

	// RegistryConfig selects and tunes the version registry backend.
	RegistryConfig struct {
		// Kind is "github" or "crates".
		Kind string `mapstructure:"kind" toml:"kind"`

		// BaseURL overrides the registry API endpoint (test servers,
		// GitHub Enterprise, private crates mirrors).
		BaseURL string `mapstructure:"base_url" toml:"base_url"`

		// Token authenticates GitHub API requests for higher rate limits.
		// Usually supplied via RESPAWN_REGISTRY_TOKEN or GITHUB_TOKEN
		// rather than the config file.
		Token string `mapstructure:"token" toml:"token"`
	}

	// InstallerConfig selects how updates are installed.
	InstallerConfig struct {
		// Kind is "release" (checksum-verified GitHub release archive) or
		// "go" (shell out to `go install`).
		Kind string `mapstructure:"kind" toml:"kind"`

		// Module is the Go module path used by the "go" installer,
		// e.g. "github.com/owner/repo/cmd/tool".
		Module string `mapstructure:"module" toml:"module"`

		// Binary overrides the binary base name looked up inside release
		// archives; defaults to the repository name.
		Binary string `mapstructure:"binary" toml:"binary"`
	}
)

// SetConfigDirOverride sets a custom config directory path. Primarily for
// tests; call Reset from cleanup.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// Reset clears test overrides.
func Reset() {
	configDirOverride = ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Registry:  RegistryConfig{Kind: "github"},
		Installer: InstallerConfig{Kind: "release"},
	}
}

// Dir returns the directory the config file lives in.
func Dir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config dir: %w", err)
	}
	return filepath.Join(base, "respawn"), nil
}

// Path returns the full path of the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and RESPAWN_* environment variables on top of
// the defaults. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("package", def.Package)
	v.SetDefault("auto_confirm", def.AutoConfirm)
	v.SetDefault("require_from_path", def.RequireFromPath)
	v.SetDefault("registry.kind", def.Registry.Kind)
	v.SetDefault("registry.base_url", def.Registry.BaseURL)
	v.SetDefault("registry.token", def.Registry.Token)
	v.SetDefault("installer.kind", def.Installer.Kind)
	v.SetDefault("installer.module", def.Installer.Module)
	v.SetDefault("installer.binary", def.Installer.Binary)

	v.SetEnvPrefix("RESPAWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// WriteDefault writes the default configuration to the config file path,
// creating the directory as needed. Fails if the file already exists.
func WriteDefault() (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	body, err := toml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	header := "# respawn configuration.\n# Values can be overridden with RESPAWN_* environment variables,\n# e.g. RESPAWN_REGISTRY_TOKEN.\n\n"
	if err := os.WriteFile(path, append([]byte(header), body...), 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return path, nil
}
