// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// releasesPerPage is the number of releases fetched per API page.
	releasesPerPage = 30

	// maxReleasePages is the upper bound on pagination to avoid runaway requests.
	maxReleasePages = 3
)

type (
	// RateLimitError is returned when the GitHub API rate limit is exceeded.
	RateLimitError struct {
		Limit     int
		Remaining int
		ResetAt   time.Time
	}

	// Release is a published GitHub release with its downloadable assets.
	Release struct {
		TagName    string  // Semantic version tag, e.g. "v1.2.0"
		Name       string  // Human-readable release name
		Body       string  // Release notes (markdown)
		Prerelease bool    // True for alpha/beta/RC releases
		Draft      bool    // True for unpublished drafts
		Assets     []Asset // Downloadable artifacts
		HTMLURL    string  // Browser URL for the release page
	}

	// Asset is a single downloadable file attached to a Release.
	Asset struct {
		Name               string
		BrowserDownloadURL string
		Size               int64
		ContentType        string
	}

	// GitHubClient resolves versions from the GitHub Releases API. Package
	// names are "owner/repo" paths; the highest stable (non-draft,
	// non-prerelease) release tag is reported as the latest version.
	GitHubClient struct {
		httpClient *http.Client
		baseURL    string // API base URL (default: "https://api.github.com", overridable for tests)
		token      string // Optional token for authenticated requests (higher rate limit)
		userAgent  string
	}

	// GitHubOption configures a GitHubClient during construction.
	GitHubOption func(*GitHubClient)

	// wireRelease is the JSON wire format of a GitHub release.
	wireRelease struct {
		TagName    string      `json:"tag_name"`
		Name       string      `json:"name"`
		Body       string      `json:"body"`
		Prerelease bool        `json:"prerelease"`
		Draft      bool        `json:"draft"`
		HTMLURL    string      `json:"html_url"`
		Assets     []wireAsset `json:"assets"`
	}

	// wireAsset is the JSON wire format of a release asset.
	wireAsset struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
		ContentType        string `json:"content_type"`
	}
)

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

// WithGitHubHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithGitHubHTTPClient(c *http.Client) GitHubOption {
	return func(g *GitHubClient) {
		g.httpClient = c
	}
}

// WithGitHubBaseURL overrides the GitHub API base URL, primarily for test servers.
func WithGitHubBaseURL(base string) GitHubOption {
	return func(g *GitHubClient) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithGitHubToken sets a personal access token for authenticated requests.
// Authenticated requests have a higher rate limit (5000/hour vs 60/hour).
func WithGitHubToken(token string) GitHubOption {
	return func(g *GitHubClient) {
		g.token = token
	}
}

// WithGitHubUserAgent sets the User-Agent header sent with every request.
func WithGitHubUserAgent(ua string) GitHubOption {
	return func(g *GitHubClient) {
		g.userAgent = ua
	}
}

// NewGitHubClient creates a GitHubClient with sensible defaults.
// Defaults: baseURL="https://api.github.com", userAgent="respawn/dev",
// httpClient=http.DefaultClient.
func NewGitHubClient(opts ...GitHubOption) *GitHubClient {
	c := &GitHubClient{
		httpClient: http.DefaultClient,
		baseURL:    "https://api.github.com",
		userAgent:  "respawn/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestVersion fetches the tag of the highest stable release of the
// "owner/repo" package. Implements Resolver.
func (c *GitHubClient) LatestVersion(ctx context.Context, pkg string) (string, error) {
	release, err := c.LatestRelease(ctx, pkg)
	if err != nil {
		return "", err
	}
	return release.TagName, nil
}

// LatestRelease fetches the highest stable (non-draft, non-prerelease)
// release of the "owner/repo" package, release notes and assets included.
func (c *GitHubClient) LatestRelease(ctx context.Context, pkg string) (*Release, error) {
	owner, repo, err := SplitRepoPath(pkg)
	if err != nil {
		return nil, err
	}

	pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d",
		c.baseURL, owner, repo, releasesPerPage)

	var stable []Release

	for page := 0; page < maxReleasePages && pageURL != ""; page++ {
		resp, reqErr := c.doRequest(ctx, pageURL)
		if reqErr != nil {
			return nil, fmt.Errorf("listing releases: %w", reqErr)
		}

		if rlErr := checkRateLimit(resp); rlErr != nil {
			resp.Body.Close()
			return nil, rlErr
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return nil, fmt.Errorf("repository %q: %w", pkg, ErrPackageNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("listing releases: unexpected status %d", resp.StatusCode)
		}

		var raw []wireRelease
		decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&raw)
		nextURL := nextPageURL(resp.Header.Get("Link"))
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("decoding releases: %w", decodeErr)
		}

		// Drafts and prereleases are filtered client-side; the list endpoint
		// has no server-side filter for either.
		for _, wr := range raw {
			if wr.Draft || wr.Prerelease {
				continue
			}
			stable = append(stable, toRelease(wr))
		}

		pageURL = nextURL
	}

	if len(stable) == 0 {
		return nil, fmt.Errorf("repository %q: %w", pkg, ErrNoVersions)
	}

	// Highest semver tag wins. Releases with invalid tags sort to the end.
	slices.SortStableFunc(stable, func(a, b Release) int {
		return semver.Compare(b.TagName, a.TagName)
	})

	return &stable[0], nil
}

// ReleaseByTag fetches a single release by its Git tag (e.g. "v1.2.0").
// Returns ErrPackageNotFound when the repository or tag does not exist.
func (c *GitHubClient) ReleaseByTag(ctx context.Context, pkg, tag string) (*Release, error) {
	owner, repo, err := SplitRepoPath(pkg)
	if err != nil {
		return nil, err
	}

	tagURL := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.baseURL, owner, repo, tag)

	resp, err := c.doRequest(ctx, tagURL)
	if err != nil {
		return nil, fmt.Errorf("getting release %s: %w", tag, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := checkRateLimit(resp); err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("release %s of %q: %w", tag, pkg, ErrPackageNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("getting release %s: unexpected status %d", tag, resp.StatusCode)
	}

	var wr wireRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&wr); err != nil {
		return nil, fmt.Errorf("getting release %s: decoding response: %w", tag, err)
	}

	r := toRelease(wr)
	return &r, nil
}

// DownloadAsset streams the file at the given URL. The caller must close the
// returned ReadCloser.
func (c *GitHubClient) DownloadAsset(ctx context.Context, assetURL string) (io.ReadCloser, error) {
	resp, err := c.doRequest(ctx, assetURL)
	if err != nil {
		return nil, fmt.Errorf("downloading asset %s: %w", redactURL(assetURL), err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading asset %s: unexpected status %d", redactURL(assetURL), resp.StatusCode)
	}

	return resp.Body, nil
}

// SplitRepoPath splits an "owner/repo" package name into its parts.
func SplitRepoPath(pkg string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(pkg, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("package %q is not an owner/repo path", pkg)
	}
	return owner, repo, nil
}

// doRequest executes a GET request with the common GitHub API headers.
func (c *GitHubClient) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	// Only attach the auth token when the request targets a known GitHub
	// host. Download URLs can redirect to third-party CDNs and must not
	// receive the token.
	if c.token != "" && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

// checkRateLimit inspects the X-RateLimit-* response headers and returns a
// RateLimitError when the remaining quota is zero.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		// A malformed header value is non-fatal; skip the check.
		return nil
	}

	// Companion headers enrich the message; malformed or missing values
	// default to zero, which is acceptable for diagnostics.
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}

// nextPageURL extracts the URL for the "next" page from a GitHub API Link
// header, or "" when no next page exists.
//
// Example header: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func nextPageURL(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

// toRelease converts the JSON wire type to the exported Release type.
func toRelease(wr wireRelease) Release {
	assets := make([]Asset, 0, len(wr.Assets))
	for _, wa := range wr.Assets {
		assets = append(assets, Asset(wa))
	}

	return Release{
		TagName:    wr.TagName,
		Name:       wr.Name,
		Body:       wr.Body,
		Prerelease: wr.Prerelease,
		Draft:      wr.Draft,
		Assets:     assets,
		HTMLURL:    wr.HTMLURL,
	}
}

// isGitHubHost reports whether reqURL targets the configured API host or, when
// the base is api.github.com, the github.com download host.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(reqURL.Host, "github.com")
}

// redactURL strips query parameters and fragments from a URL for safe
// inclusion in error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
