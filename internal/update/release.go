// Package update implements the signed auto-update subsystem: GitHub
// release discovery, version comparison, asset download, Ed25519
// signature verification, a post-swap health gate, and Sidecar/InPlace
// apply strategies, exactly per spec §4.8.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// Release is the subset of a GitHub releases/latest response this
// subsystem needs.
type Release struct {
	TagName    string         `json:"tag_name"`
	Name       string         `json:"name"`
	Draft      bool           `json:"draft"`
	Prerelease bool           `json:"prerelease"`
	Assets     []ReleaseAsset `json:"assets"`
}

// ReleaseAsset is one downloadable file attached to a release.
type ReleaseAsset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// ReleaseChecker fetches the latest release from a GitHub-compatible API.
type ReleaseChecker struct {
	client  *http.Client
	baseURL string
}

// NewReleaseChecker constructs a ReleaseChecker. baseURL defaults to
// https://api.github.com when empty, overridable for GitHub Enterprise
// or tests.
func NewReleaseChecker(timeout time.Duration, baseURL string) *ReleaseChecker {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &ReleaseChecker{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Latest fetches GET /repos/<owner>/<name>/releases/latest. Draft
// releases are rejected as an error; prereleases are returned (callers
// decide whether to log and skip them).
func (c *ReleaseChecker) Latest(ctx context.Context, repository string) (*Release, error) {
	const op = "ReleaseChecker.Latest"

	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, repository)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.External(op, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.External(op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining == "0" {
			resetAt := rateLimitResetTime(resp.Header.Get("X-RateLimit-Reset"))
			return nil, apperrors.RateLimited(op, fmt.Sprintf("GitHub API rate limit exhausted, resets at %s", resetAt))
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.External(op, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, apperrors.External(op, "failed to decode release", err)
	}
	if release.Draft {
		return nil, apperrors.Validation(op, "latest release is a draft")
	}
	return &release, nil
}

func rateLimitResetTime(header string) string {
	epoch, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return "unknown"
	}
	return time.Unix(epoch, 0).UTC().Format(time.RFC3339)
}
