// Package updatecheck fetches a GitHub-style release descriptor over
// HTTPS and compares its tag against the running version with semver,
// picking a download asset when a newer release exists. Scoped to a
// single call with a typed error taxonomy, the way the teacher's own
// *Error types (parser.Error, this package's sibling) carry a Kind plus
// wrapped Cause.
package updatecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

const timeout = 15 * time.Second

// ResultKind distinguishes the two possible successful outcomes of Check.
type ResultKind int

const (
	UpToDate ResultKind = iota
	UpdateAvailable
)

// Result is the outcome of a successful Check call.
type Result struct {
	Kind          ResultKind
	LatestVersion string
	DownloadURL   string
	ReleaseNotes  string
}

// ErrorKind tags the network/parsing error taxonomy Check can return.
type ErrorKind int

const (
	InvalidVersion ErrorKind = iota
	HTTPError
	NetworkError
	InvalidResponse
	NoDownload
)

// Error is the typed error Check returns on failure.
type Error struct {
	Kind       ErrorKind
	StatusCode int // set only for HTTPError
	Cause      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case InvalidVersion:
		return fmt.Sprintf("update check: invalid version: %v", e.Cause)
	case HTTPError:
		return fmt.Sprintf("update check: unexpected HTTP status %d", e.StatusCode)
	case NetworkError:
		return fmt.Sprintf("update check: network error: %v", e.Cause)
	case InvalidResponse:
		return fmt.Sprintf("update check: invalid response: %v", e.Cause)
	case NoDownload:
		return "update check: no matching download asset in release"
	default:
		return "update check: unknown error"
	}
}

func (e *Error) Unwrap() error { return e.Cause }

type releaseDescriptor struct {
	TagName string  `json:"tag_name"`
	Body    string  `json:"body"`
	Assets  []asset `json:"assets"`
}

type asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// assetPreference is the filename preference order for picking a download:
// the installer variant first, falling back to the zip archive.
var assetPreference = []string{"paperback_setup.exe", "paperback.zip"}

// Check GETs releaseURL, decodes a release descriptor, and compares its
// tag against currentVersion. The request carries a 15-second deadline, a
// "paperback/<currentVersion>" User-Agent, and an
// "application/vnd.github+json" Accept header.
func Check(ctx context.Context, client *http.Client, releaseURL, currentVersion string) (Result, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, nil)
	if err != nil {
		return Result{}, &Error{Kind: NetworkError, Cause: err}
	}
	req.Header.Set("User-Agent", "paperback/"+currentVersion)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, &Error{Kind: NetworkError, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, &Error{Kind: HTTPError, StatusCode: resp.StatusCode}
	}

	var descriptor releaseDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&descriptor); err != nil {
		return Result{}, &Error{Kind: InvalidResponse, Cause: err}
	}

	current, err := parseVersion(currentVersion)
	if err != nil {
		return Result{}, &Error{Kind: InvalidVersion, Cause: err}
	}
	latest, err := parseVersion(descriptor.TagName)
	if err != nil {
		return Result{}, &Error{Kind: InvalidVersion, Cause: err}
	}

	if current.Compare(latest) >= 0 {
		return Result{Kind: UpToDate}, nil
	}

	downloadURL := pickAsset(descriptor.Assets)
	if downloadURL == "" {
		return Result{}, &Error{Kind: NoDownload}
	}
	return Result{
		Kind:          UpdateAvailable,
		LatestVersion: latest.String(),
		DownloadURL:   downloadURL,
		ReleaseNotes:  descriptor.Body,
	}, nil
}

// parseVersion strips a leading "v"/"V" before handing off to semver,
// which otherwise accepts a pre-release suffix unchanged.
func parseVersion(v string) (*semver.Version, error) {
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
	return semver.NewVersion(v)
}

func pickAsset(assets []asset) string {
	for _, preferred := range assetPreference {
		for _, a := range assets {
			if a.Name == preferred {
				return a.BrowserDownloadURL
			}
		}
	}
	return ""
}
