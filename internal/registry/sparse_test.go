package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testSparse(t *testing.T, serverURL string) *SparseIndex {
	t.Helper()
	return &SparseIndex{
		client:   newClient(serverURL+"/api/v1/crates", time.Hour),
		indexURL: serverURL,
	}
}

// TestSparseGetLatestVersion verifies that yanked releases are
// excluded and that a stable release beats a newer prerelease.
func TestSparseGetLatestVersion(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"vers": "0.9.0", "yanked": false}
{"vers": "1.0.0", "yanked": false}
{"vers": "1.1.0", "yanked": true}
{"vers": "1.2.0-alpha.1", "yanked": false}
`))
	}))
	defer server.Close()

	version, err := testSparse(t, server.URL).GetLatestVersion(context.Background(), "serde")
	if err != nil {
		t.Fatalf("GetLatestVersion failed: %v", err)
	}
	if version.String() != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", version)
	}
	if gotAgent == "" {
		t.Error("expected a User-Agent header")
	}
}

// TestSparseIndexPaths verifies the bucketed index layout for each
// name length class.
func TestSparseIndexPaths(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"vers": "1.0.0", "yanked": false}`))
	}))
	defer server.Close()

	index := testSparse(t, server.URL)

	paths := map[string]string{
		"a":     "/1/a",
		"ab":    "/2/ab",
		"abc":   "/3/a/abc",
		"serde": "/se/rd/serde",
		"tokio": "/to/ki/tokio",
	}

	for name, expected := range paths {
		if _, err := index.GetLatestVersion(context.Background(), name); err != nil {
			t.Fatalf("GetLatestVersion(%s) failed: %v", name, err)
		}
		if gotPath != expected {
			t.Errorf("expected path %s for %s, got %s", expected, name, gotPath)
		}
	}
}

// TestSparsePrereleaseFallback verifies that a crate with only
// prerelease versions still resolves to its newest prerelease.
func TestSparsePrereleaseFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vers": "1.0.0-beta.1", "yanked": false}
{"vers": "1.0.0-beta.2", "yanked": false}
`))
	}))
	defer server.Close()

	version, err := testSparse(t, server.URL).GetLatestVersion(context.Background(), "serde")
	if err != nil {
		t.Fatalf("GetLatestVersion failed: %v", err)
	}
	if version.String() != "1.0.0-beta.2" {
		t.Errorf("expected version 1.0.0-beta.2, got %s", version)
	}
}

func TestSparseAllYanked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vers": "1.0.0", "yanked": true}`))
	}))
	defer server.Close()

	_, err := testSparse(t, server.URL).GetLatestVersion(context.Background(), "serde")
	if !errors.Is(err, ErrNoVersionsFound) {
		t.Errorf("expected ErrNoVersionsFound, got %v", err)
	}
}

func TestSparseEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	_, err := testSparse(t, server.URL).GetLatestVersion(context.Background(), "serde")
	if !errors.Is(err, ErrNoVersionsFound) {
		t.Errorf("expected ErrNoVersionsFound, got %v", err)
	}
}

// TestSparseMalformedLine verifies that one bad line fails the whole
// lookup even when other lines parse.
func TestSparseMalformedLine(t *testing.T) {
	bodies := map[string]string{
		"bad_json":    "{\"vers\": \"1.0.0\", \"yanked\": false}\ngarbage\n",
		"bad_version": "{\"vers\": \"1.0.0\", \"yanked\": false}\n{\"vers\": \"oops\", \"yanked\": true}\n",
		"blank_line":  "{\"vers\": \"1.0.0\", \"yanked\": false}\n\n{\"vers\": \"1.1.0\", \"yanked\": false}\n",
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := testSparse(t, server.URL).GetLatestVersion(context.Background(), "serde")
			if !errors.Is(err, ErrDeserialization) {
				t.Errorf("expected ErrDeserialization, got %v", err)
			}
		})
	}
}

// TestSparseCRLFBody verifies that index files served with CRLF line
// endings still parse.
func TestSparseCRLFBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"vers\": \"1.0.0\", \"yanked\": false}\r\n{\"vers\": \"1.1.0\", \"yanked\": false}\r\n"))
	}))
	defer server.Close()

	version, err := testSparse(t, server.URL).GetLatestVersion(context.Background(), "serde")
	if err != nil {
		t.Fatalf("GetLatestVersion failed: %v", err)
	}
	if version.String() != "1.1.0" {
		t.Errorf("expected version 1.1.0, got %s", version)
	}
}

// TestSparseEmptyName verifies that the empty name is rejected before
// any request is made.
func TestSparseEmptyName(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	_, err := testSparse(t, server.URL).GetLatestVersion(context.Background(), "")
	if !errors.Is(err, ErrInvalidCrateName) {
		t.Errorf("expected ErrInvalidCrateName, got %v", err)
	}
	if requests != 0 {
		t.Errorf("expected no requests, got %d", requests)
	}
}

func TestSparseNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testSparse(t, server.URL).GetLatestVersion(context.Background(), "does-not-exist")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}
