// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

type (
	// GoInstaller installs a version by shelling out to `go install
	// pkg@version`. It suits tools distributed as Go modules; the toolchain
	// itself provides the atomic binary swap in GOBIN.
	GoInstaller struct {
		goBinary string    // path to the go tool (default: "go", resolved via PATH)
		stdout   io.Writer // inherited by the child so install progress is visible
		stderr   io.Writer
	}

	// GoOption configures a GoInstaller during construction.
	GoOption func(*GoInstaller)
)

// WithGoBinary overrides the go tool path, primarily for tests.
func WithGoBinary(path string) GoOption {
	return func(g *GoInstaller) {
		g.goBinary = path
	}
}

// NewGoInstaller creates a GoInstaller that runs the `go` tool from PATH and
// forwards its output to the current process's stdout/stderr.
func NewGoInstaller(opts ...GoOption) *GoInstaller {
	g := &GoInstaller{
		goBinary: "go",
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Install runs `go install pkg@vX.Y.Z`. The module path is taken from pkg
// as-is; the version is normalized to carry a "v" prefix.
func (g *GoInstaller) Install(ctx context.Context, pkg, version string) error {
	tag := version
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}

	cmd := exec.CommandContext(ctx, g.goBinary, "install", fmt.Sprintf("%s@%s", pkg, tag))
	cmd.Stdout = g.stdout
	cmd.Stderr = g.stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go install %s@%s: %w", pkg, tag, err)
	}

	return nil
}
