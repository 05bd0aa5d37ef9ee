package updatecheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serverWithDescriptor(t *testing.T, status int, descriptor releaseDescriptor) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Accept header = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "paperback/1.0.0" {
			t.Errorf("User-Agent header = %q", got)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(descriptor)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckUpToDate(t *testing.T) {
	srv := serverWithDescriptor(t, http.StatusOK, releaseDescriptor{TagName: "v1.0.0"})
	result, err := Check(context.Background(), srv.Client(), srv.URL, "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if result.Kind != UpToDate {
		t.Errorf("Kind = %v, want UpToDate", result.Kind)
	}
}

func TestCheckUpdateAvailablePicksInstallerAsset(t *testing.T) {
	srv := serverWithDescriptor(t, http.StatusOK, releaseDescriptor{
		TagName: "V2.0.0",
		Body:    "release notes",
		Assets: []asset{
			{Name: "paperback.zip", BrowserDownloadURL: "https://example.com/zip"},
			{Name: "paperback_setup.exe", BrowserDownloadURL: "https://example.com/exe"},
		},
	})
	result, err := Check(context.Background(), srv.Client(), srv.URL, "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if result.Kind != UpdateAvailable {
		t.Fatalf("Kind = %v, want UpdateAvailable", result.Kind)
	}
	if result.LatestVersion != "2.0.0" {
		t.Errorf("LatestVersion = %q", result.LatestVersion)
	}
	if result.DownloadURL != "https://example.com/exe" {
		t.Errorf("DownloadURL = %q, want installer asset preferred", result.DownloadURL)
	}
	if result.ReleaseNotes != "release notes" {
		t.Errorf("ReleaseNotes = %q", result.ReleaseNotes)
	}
}

func TestCheckNoDownloadAsset(t *testing.T) {
	srv := serverWithDescriptor(t, http.StatusOK, releaseDescriptor{TagName: "v2.0.0"})
	_, err := Check(context.Background(), srv.Client(), srv.URL, "1.0.0")
	uerr, ok := err.(*Error)
	if !ok || uerr.Kind != NoDownload {
		t.Fatalf("err = %v, want NoDownload", err)
	}
}

func TestCheckHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	_, err := Check(context.Background(), srv.Client(), srv.URL, "1.0.0")
	uerr, ok := err.(*Error)
	if !ok || uerr.Kind != HTTPError || uerr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want HTTPError(404)", err)
	}
}

func TestCheckInvalidVersion(t *testing.T) {
	srv := serverWithDescriptor(t, http.StatusOK, releaseDescriptor{TagName: "not-a-version"})
	_, err := Check(context.Background(), srv.Client(), srv.URL, "1.0.0")
	uerr, ok := err.(*Error)
	if !ok || uerr.Kind != InvalidVersion {
		t.Fatalf("err = %v, want InvalidVersion", err)
	}
}
