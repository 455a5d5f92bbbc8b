// Package registry resolves crate versions and name searches against
// crates.io. Two interchangeable strategies exist, one backed by the
// registry HTTP API and one by the sparse index. Lookup failures
// collapse into a small set of sentinel errors so callers can treat
// all of them uniformly.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Masterminds/semver/v3"
)

const (
	userAgent   = "stevedore"
	httpTimeout = 10 * time.Second
	searchLimit = 5

	defaultAPIBaseURL = "https://crates.io"
	defaultIndexURL   = "https://index.crates.io"
	defaultSearchURL  = "https://crates.io/api/v1/crates"
)

// DefaultTimeToLive bounds how long a lookup outcome stays cached
// when no explicit policy is configured.
const DefaultTimeToLive = 24 * time.Hour

var (
	// ErrTransport is returned for HTTP failures such as timeouts,
	// connection errors and non-200 responses.
	ErrTransport = errors.New("registry unreachable")

	// ErrDeserialization is returned when a response body does not
	// match the expected wire format.
	ErrDeserialization = errors.New("malformed registry response")

	// ErrInvalidCrateName is returned for names the registry cannot
	// represent, such as the empty string.
	ErrInvalidCrateName = errors.New("invalid crate name")

	// ErrNoVersionsFound is returned when a crate exists but has no
	// usable release.
	ErrNoVersionsFound = errors.New("no versions found")
)

// Lookup is the part of a registry strategy the resolver and the
// editor-facing handlers depend on.
type Lookup interface {
	// GetLatestVersion resolves the newest release of a crate,
	// preferring stable releases over prereleases.
	GetLatestVersion(ctx context.Context, name string) (*semver.Version, error)

	// SearchCrates returns candidate crate names for a partially
	// typed identifier, best match first.
	SearchCrates(ctx context.Context, query string) ([]string, error)

	// TimeToLive reports how long the outcome of a lookup may be
	// cached. The same duration applies whether result is nil or not.
	TimeToLive(result error) time.Duration
}

// client carries the transport and search endpoint shared by both
// strategies. The sparse index has no search of its own, so searches
// always go through the registry API.
type client struct {
	http      *http.Client
	searchURL string
	ttl       time.Duration
}

func newClient(searchURL string, ttl time.Duration) client {
	if ttl <= 0 {
		ttl = DefaultTimeToLive
	}
	return client{
		http:      &http.Client{Timeout: httpTimeout},
		searchURL: searchURL,
		ttl:       ttl,
	}
}

// get performs a registry GET and returns the raw response body.
func (c *client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return body, nil
}

// SearchCrates queries the registry search endpoint for names
// matching a partially typed identifier.
func (c *client) SearchCrates(ctx context.Context, query string) ([]string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s?q=%s&per_page=%d", c.searchURL, url.QueryEscape(query), searchLimit))
	if err != nil {
		return nil, err
	}

	var results searchResponse
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}

	names := make([]string, 0, len(results.Crates))
	for _, crate := range results.Crates {
		names = append(names, crate.Name)
	}
	return names, nil
}

// TimeToLive applies the configured expiry uniformly to successful
// and failed lookups.
func (c *client) TimeToLive(error) time.Duration {
	return c.ttl
}

type searchResponse struct {
	Crates []struct {
		Name string `json:"name"`
	} `json:"crates"`
}
