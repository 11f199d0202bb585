// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/respawn-cli/respawn/internal/procinfo"
	"github.com/respawn-cli/respawn/pkg/registry"
)

// maxBinaryBytes is the upper bound on extracted binary size (500 MB).
// Prevents decompression bombs when extracting from a release archive.
const maxBinaryBytes = 500 << 20

// checksumsFileName is the conventional GoReleaser checksums asset name.
const checksumsFileName = "checksums.txt"

//nolint:gochecknoglobals // Test seam for procinfo.Executable.
var currentExecutable = procinfo.Executable

type (
	// ReleaseInstaller installs a new version from a GitHub release archive:
	// it downloads the platform tarball plus checksums.txt, verifies the
	// SHA256 hash, extracts the binary, and atomically replaces the current
	// executable. Temp files live next to the target binary so the final
	// rename never crosses a filesystem boundary.
	ReleaseInstaller struct {
		client     *registry.GitHubClient
		binaryName string // base name inside the archive (default: repo name)
	}

	// ReleaseOption configures a ReleaseInstaller during construction.
	ReleaseOption func(*ReleaseInstaller)
)

// WithReleaseClient overrides the GitHub client used for downloads.
func WithReleaseClient(c *registry.GitHubClient) ReleaseOption {
	return func(ri *ReleaseInstaller) {
		ri.client = c
	}
}

// WithBinaryName overrides the binary base name looked up inside the archive.
// By default the repository name from the "owner/repo" package is used.
func WithBinaryName(name string) ReleaseOption {
	return func(ri *ReleaseInstaller) {
		ri.binaryName = name
	}
}

// NewReleaseInstaller creates a ReleaseInstaller. Without options it uses a
// default GitHub client.
func NewReleaseInstaller(opts ...ReleaseOption) *ReleaseInstaller {
	ri := &ReleaseInstaller{}
	for _, opt := range opts {
		opt(ri)
	}
	if ri.client == nil {
		ri.client = registry.NewGitHubClient()
	}
	return ri
}

// Install downloads and verifies the release archive for the given version of
// the "owner/repo" package and swaps it over the running executable. On any
// failure the old binary is left untouched.
func (ri *ReleaseInstaller) Install(ctx context.Context, pkg, version string) error {
	tag := version
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}

	release, err := ri.client.ReleaseByTag(ctx, pkg, tag)
	if err != nil {
		return fmt.Errorf("fetching release %s: %w", tag, err)
	}

	execPath, err := currentExecutable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	binary := ri.binaryName
	if binary == "" {
		_, repo, splitErr := registry.SplitRepoPath(pkg)
		if splitErr != nil {
			return splitErr
		}
		binary = repo
	}

	// GoReleaser strips the "v" prefix from versions in archive filenames,
	// e.g. tool_1.2.0_linux_amd64.tar.gz.
	archiveName := fmt.Sprintf("%s_%s_%s_%s.tar.gz",
		binary, strings.TrimPrefix(tag, "v"), runtime.GOOS, runtime.GOARCH)

	archiveAsset, err := findAsset(release.Assets, archiveName)
	if err != nil {
		return fmt.Errorf("finding archive asset: %w", err)
	}
	checksumsAsset, err := findAsset(release.Assets, checksumsFileName)
	if err != nil {
		return fmt.Errorf("finding checksums asset: %w", err)
	}

	// Fetch the (small) checksums file before the archive so a missing
	// entry aborts the attempt without the large download.
	expected, err := ri.fetchExpectedHash(ctx, checksumsAsset.BrowserDownloadURL, archiveName)
	if err != nil {
		return err
	}

	targetDir := filepath.Dir(execPath)

	archivePath, err := ri.downloadToTemp(ctx, archiveAsset.BrowserDownloadURL, targetDir)
	if err != nil {
		return fmt.Errorf("downloading archive: %w", err)
	}
	defer func() { _ = os.Remove(archivePath) }()

	if err := verifyFileSHA256(archivePath, expected); err != nil {
		return fmt.Errorf("verifying archive: %w", err)
	}

	newBinaryPath, err := extractBinary(archivePath, targetDir, binary)
	if err != nil {
		return fmt.Errorf("extracting binary: %w", err)
	}

	installed := false
	defer func() {
		if !installed {
			_ = os.Remove(newBinaryPath)
		}
	}()

	// Preserve the original binary's permissions.
	info, err := os.Stat(execPath)
	if err != nil {
		return fmt.Errorf("reading original binary permissions: %w", err)
	}
	if err := os.Chmod(newBinaryPath, info.Mode()); err != nil {
		return fmt.Errorf("setting binary permissions: %w", err)
	}

	if err := replaceExecutable(execPath, newBinaryPath); err != nil {
		return fmt.Errorf("replacing binary: %w", err)
	}
	installed = true

	return nil
}

// fetchExpectedHash downloads and parses the checksums asset and returns the
// published hash for archiveName.
func (ri *ReleaseInstaller) fetchExpectedHash(ctx context.Context, url, archiveName string) (string, error) {
	body, err := ri.client.DownloadAsset(ctx, url)
	if err != nil {
		return "", fmt.Errorf("downloading checksums: %w", err)
	}
	defer func() { _ = body.Close() }() // read-only response body

	entries, err := parseChecksums(body)
	if err != nil {
		return "", fmt.Errorf("parsing checksums: %w", err)
	}

	expected, ok := entries[archiveName]
	if !ok {
		return "", fmt.Errorf("no checksum entry for %s: %w", archiveName, ErrAssetNotFound)
	}

	return expected, nil
}

// downloadToTemp streams the asset at url into a temp file inside dir and
// returns its path. The caller removes the file when done.
func (ri *ReleaseInstaller) downloadToTemp(ctx context.Context, url, dir string) (_ string, err error) {
	body, err := ri.client.DownloadAsset(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }() // read-only response body

	tmp, err := os.CreateTemp(dir, "respawn-download-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("writing download: %w", err)
	}

	return tmp.Name(), nil
}

// findAsset scans release assets for the given filename.
func findAsset(assets []registry.Asset, name string) (*registry.Asset, error) {
	for i := range assets {
		if assets[i].Name == name {
			return &assets[i], nil
		}
	}
	return nil, fmt.Errorf("asset %q not in release: %w", name, ErrAssetNotFound)
}

// extractBinary pulls the named binary out of the tar.gz archive into a temp
// file in targetDir. Entries are matched by base name so both flat archives
// and nested layouts (tool_1.2.0_linux_amd64/tool) work.
func extractBinary(archivePath, targetDir, binary string) (_ string, err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	wantName := binary
	if runtime.GOOS == "windows" {
		wantName += ".exe"
	}

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return "", fmt.Errorf("reading tar entry: %w", nextErr)
		}
		if hdr.Typeflag != tar.TypeReg || filepath.Base(hdr.Name) != wantName {
			continue
		}

		tmp, createErr := os.CreateTemp(targetDir, "respawn-binary-*")
		if createErr != nil {
			return "", fmt.Errorf("creating temp file for binary: %w", createErr)
		}

		// The LimitReader caps extraction at maxBinaryBytes to guard
		// against decompression bombs.
		if _, copyErr := io.Copy(tmp, io.LimitReader(tr, maxBinaryBytes)); copyErr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return "", fmt.Errorf("extracting %s: %w", wantName, copyErr)
		}
		if closeErr := tmp.Close(); closeErr != nil {
			_ = os.Remove(tmp.Name())
			return "", closeErr
		}

		return tmp.Name(), nil
	}

	return "", fmt.Errorf("binary %q not found in %s: %w", wantName, filepath.Base(archivePath), ErrAssetNotFound)
}
