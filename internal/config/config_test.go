// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// useTempConfigDir points the config directory at a per-test temp dir.
func useTempConfigDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)
	return dir
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Registry.Kind != "github" {
		t.Errorf("default registry kind = %q, want %q", cfg.Registry.Kind, "github")
	}
	if cfg.Installer.Kind != "release" {
		t.Errorf("default installer kind = %q, want %q", cfg.Installer.Kind, "release")
	}
	if cfg.AutoConfirm {
		t.Error("auto_confirm must default to false")
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	useTempConfigDir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with no config file: %v", err)
	}
	if cfg.Registry.Kind != "github" {
		t.Errorf("registry kind = %q, want default %q", cfg.Registry.Kind, "github")
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := useTempConfigDir(t)

	content := `
package = "acme/tool"
auto_confirm = true
require_from_path = true

[registry]
kind = "crates"
base_url = "https://crates.example.com"

[installer]
kind = "go"
module = "github.com/acme/tool/cmd/tool"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Package != "acme/tool" {
		t.Errorf("package = %q, want %q", cfg.Package, "acme/tool")
	}
	if !cfg.AutoConfirm || !cfg.RequireFromPath {
		t.Error("boolean options from the file were not applied")
	}
	if cfg.Registry.Kind != "crates" || cfg.Registry.BaseURL != "https://crates.example.com" {
		t.Errorf("registry section not applied: %+v", cfg.Registry)
	}
	if cfg.Installer.Kind != "go" || cfg.Installer.Module != "github.com/acme/tool/cmd/tool" {
		t.Errorf("installer section not applied: %+v", cfg.Installer)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := useTempConfigDir(t)

	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`package = "acme/tool"`), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("RESPAWN_PACKAGE", "acme/other")
	t.Setenv("RESPAWN_REGISTRY_TOKEN", "env-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Package != "acme/other" {
		t.Errorf("package = %q, want env override %q", cfg.Package, "acme/other")
	}
	if cfg.Registry.Token != "env-token" {
		t.Errorf("registry token = %q, want env value", cfg.Registry.Token)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := useTempConfigDir(t)

	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not [valid toml"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestWriteDefault(t *testing.T) {
	dir := useTempConfigDir(t)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if path != filepath.Join(dir, "config.toml") {
		t.Errorf("config written to %q, want it inside the config dir", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	if !strings.Contains(string(data), `kind = 'github'`) && !strings.Contains(string(data), `kind = "github"`) {
		t.Errorf("written config missing default registry kind:\n%s", data)
	}

	// The written file must round-trip through Load.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load after WriteDefault: %v", err)
	}
	if cfg.Registry.Kind != "github" {
		t.Errorf("round-tripped registry kind = %q", cfg.Registry.Kind)
	}

	// A second write must refuse to clobber the existing file.
	if _, err := WriteDefault(); err == nil {
		t.Fatal("expected error when the config file already exists")
	}
}

func TestPath(t *testing.T) {
	dir := useTempConfigDir(t)

	path, err := Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if path != filepath.Join(dir, "config.toml") {
		t.Errorf("Path() = %q, want config.toml inside the override dir", path)
	}
}
