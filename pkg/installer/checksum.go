// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrChecksumMismatch indicates the computed SHA256 hash does not match
	// the published hash. The download is discarded; nothing is installed.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrAssetNotFound indicates no matching entry or release asset exists
	// for the current platform.
	ErrAssetNotFound = errors.New("asset not found")
)

// ChecksumError reports a checksum verification failure with both hashes.
// It wraps ErrChecksumMismatch so callers can classify it with errors.Is.
type ChecksumError struct {
	Filename string
	Expected string
	Got      string
}

// Error shows both hash values for debugging.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s: expected %s, got %s",
		e.Filename, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// parseChecksums reads a checksums file in sha256sum output format: one
// "{sha256_hex}  {filename}" entry per line, two spaces between the fields.
// Unparseable lines are skipped; the result maps filename to lowercase hash.
func parseChecksums(r io.Reader) (map[string]string, error) {
	entries := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		hash, filename, ok := strings.Cut(line, "  ")
		if !ok {
			continue
		}
		filename = strings.TrimSpace(filename)
		if filename == "" || !isHexHash(hash) {
			continue
		}

		entries[filename] = strings.ToLower(hash)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checksums: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("no valid checksum entries found")
	}

	return entries, nil
}

// verifyFileSHA256 streams the file at path through SHA256 and compares the
// digest with expected (case-insensitive). A mismatch returns a *ChecksumError.
func verifyFileSHA256(path, expected string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }() // read-only file handle

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hashing %s: %w", path, err)
	}
	got := hex.EncodeToString(h.Sum(nil))

	if !strings.EqualFold(got, expected) {
		return &ChecksumError{
			Filename: path,
			Expected: strings.ToLower(expected),
			Got:      got,
		}
	}

	return nil
}

// isHexHash reports whether s is a 64-character hex-encoded SHA256 digest.
func isHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
