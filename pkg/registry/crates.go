// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type (
	// CratesClient resolves versions from a crates.io-compatible registry.
	CratesClient struct {
		httpClient *http.Client
		baseURL    string // API base URL (default: "https://crates.io", overridable for tests)
		userAgent  string // crates.io rejects requests without a User-Agent
	}

	// CratesOption configures a CratesClient during construction.
	CratesOption func(*CratesClient)

	// cratesVersionsResponse is the JSON wire format of the crates.io
	// /api/v1/crates/{name}/versions endpoint, reduced to the fields we read.
	cratesVersionsResponse struct {
		Versions []cratesVersion `json:"versions"`
	}

	// cratesVersion is a single published version entry. The endpoint
	// returns entries newest-first.
	cratesVersion struct {
		Num    string `json:"num"`
		Yanked bool   `json:"yanked"`
	}
)

// WithCratesHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithCratesHTTPClient(c *http.Client) CratesOption {
	return func(cc *CratesClient) {
		cc.httpClient = c
	}
}

// WithCratesBaseURL overrides the registry base URL, primarily for test servers.
func WithCratesBaseURL(base string) CratesOption {
	return func(cc *CratesClient) {
		cc.baseURL = strings.TrimRight(base, "/")
	}
}

// WithCratesUserAgent sets the User-Agent header sent with every request.
func WithCratesUserAgent(ua string) CratesOption {
	return func(cc *CratesClient) {
		cc.userAgent = ua
	}
}

// NewCratesClient creates a CratesClient with sensible defaults.
// Defaults: baseURL="https://crates.io", userAgent="respawn/dev",
// httpClient=http.DefaultClient.
func NewCratesClient(opts ...CratesOption) *CratesClient {
	c := &CratesClient{
		httpClient: http.DefaultClient,
		baseURL:    "https://crates.io",
		userAgent:  "respawn/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestVersion fetches the newest non-yanked published version of the named
// crate. Returns ErrPackageNotFound for unknown crates and ErrNoVersions when
// every published version has been yanked.
func (c *CratesClient) LatestVersion(ctx context.Context, pkg string) (string, error) {
	reqURL := fmt.Sprintf("%s/api/v1/crates/%s/versions", c.baseURL, url.PathEscape(pkg))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("querying crates registry: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("crate %q: %w", pkg, ErrPackageNotFound)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("querying crates registry: unexpected status %d", resp.StatusCode)
	}

	var body cratesVersionsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding crates response: %w", err)
	}

	// Entries are ordered newest-first; the first non-yanked one wins.
	for _, v := range body.Versions {
		if !v.Yanked && v.Num != "" {
			return v.Num, nil
		}
	}

	return "", fmt.Errorf("crate %q: %w", pkg, ErrNoVersions)
}
