// SPDX-License-Identifier: MPL-2.0

// Package registry resolves the latest published version of a package from a
// remote registry. Two backends are provided: crates.io and GitHub Releases.
// Both perform exactly one lookup per call — retry policy belongs to callers.
package registry

import (
	"context"
	"errors"
)

// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
// Prevents unbounded memory consumption from malicious or malformed responses.
const maxJSONResponseBytes = 10 << 20

var (
	// ErrPackageNotFound is returned when the registry has no package or
	// repository with the requested name.
	ErrPackageNotFound = errors.New("package not found")

	// ErrNoVersions is returned when the package exists but has no
	// published, non-yanked, stable versions.
	ErrNoVersions = errors.New("no published versions found")
)

// Resolver fetches the latest published version of a named package. The
// returned string is a semantic version, with or without a leading "v".
// Implementations must not retry internally.
type Resolver interface {
	LatestVersion(ctx context.Context, pkg string) (string, error)
}
