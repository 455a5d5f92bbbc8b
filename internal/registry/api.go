package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// API resolves versions through the crates.io HTTP API. One request
// per crate, and the registry itself decides what the newest stable
// release is.
type API struct {
	client
	baseURL string
}

// NewAPI creates an API strategy against crates.io. A non-positive
// ttl falls back to DefaultTimeToLive.
func NewAPI(ttl time.Duration) *API {
	return &API{
		client:  newClient(defaultSearchURL, ttl),
		baseURL: defaultAPIBaseURL,
	}
}

// GetLatestVersion reads the newest stable release off the crate
// metadata endpoint.
func (a *API) GetLatestVersion(ctx context.Context, name string) (*semver.Version, error) {
	body, err := a.get(ctx, fmt.Sprintf("%s/api/v1/crates/%s", a.baseURL, name))
	if err != nil {
		return nil, err
	}

	var details crateResponse
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	if details.Crate.MaxStableVersion == nil {
		return nil, fmt.Errorf("%w: missing max_stable_version", ErrDeserialization)
	}

	version, err := semver.NewVersion(*details.Crate.MaxStableVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	return version, nil
}

type crateResponse struct {
	Crate struct {
		MaxStableVersion *string `json:"max_stable_version"`
	} `json:"crate"`
}
