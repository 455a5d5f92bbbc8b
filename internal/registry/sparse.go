package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// SparseIndex resolves versions through the crates.io sparse index,
// which serves the full release history of a crate as one JSON object
// per line.
type SparseIndex struct {
	client
	indexURL string
}

// NewSparseIndex creates a sparse index strategy against
// index.crates.io. A non-positive ttl falls back to
// DefaultTimeToLive.
func NewSparseIndex(ttl time.Duration) *SparseIndex {
	return &SparseIndex{
		client:   newClient(defaultSearchURL, ttl),
		indexURL: defaultIndexURL,
	}
}

// GetLatestVersion walks the crate's index file and picks the newest
// release that has not been yanked, preferring stable releases over
// prereleases.
func (s *SparseIndex) GetLatestVersion(ctx context.Context, name string) (*semver.Version, error) {
	path, err := indexPath(name)
	if err != nil {
		return nil, err
	}

	body, err := s.get(ctx, fmt.Sprintf("%s/%s", s.indexURL, path))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, ErrNoVersionsFound
	}

	// Every line must deserialize, even yanked releases. A single
	// malformed line fails the whole lookup.
	var stable, latest *semver.Version
	for _, line := range strings.Split(strings.TrimSuffix(string(body), "\n"), "\n") {
		var release indexRelease
		if err := json.Unmarshal([]byte(strings.TrimSuffix(line, "\r")), &release); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
		}

		version, err := semver.NewVersion(release.Vers)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
		}
		if release.Yanked {
			continue
		}

		if latest == nil || version.GreaterThan(latest) {
			latest = version
		}
		if version.Prerelease() == "" && (stable == nil || version.GreaterThan(stable)) {
			stable = version
		}
	}

	if stable != nil {
		return stable, nil
	}
	if latest != nil {
		return latest, nil
	}
	return nil, ErrNoVersionsFound
}

// indexPath maps a crate name onto the bucketed layout of the sparse
// index: 1, 2 and 3 character names live under length buckets, longer
// names under two levels of name prefixes.
func indexPath(name string) (string, error) {
	switch len(name) {
	case 0:
		return "", fmt.Errorf("%w: empty name", ErrInvalidCrateName)
	case 1:
		return "1/" + name, nil
	case 2:
		return "2/" + name, nil
	case 3:
		return "3/" + name[:1] + "/" + name, nil
	default:
		return name[:2] + "/" + name[2:4] + "/" + name, nil
	}
}

type indexRelease struct {
	Vers   string `json:"vers"`
	Yanked bool   `json:"yanked"`
}
