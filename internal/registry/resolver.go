package registry

import (
	"context"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/tliron/commonlog"

	"stevedore/internal/cache"
)

var log = commonlog.GetLogger("stevedore.registry")

// Resolver answers batch version queries from the cache, reaching out
// to the registry only for names the cache cannot answer.
type Resolver struct {
	cache *cache.Cache
}

// NewResolver creates a Resolver on top of the given cache.
func NewResolver(c *cache.Cache) *Resolver {
	return &Resolver{cache: c}
}

// outcome carries one finished lookup back to the collection loop.
type outcome struct {
	name    string
	version *semver.Version
	err     error
}

// FetchVersions resolves the newest known version for every requested
// name. Names are deduplicated, cache hits are answered directly and
// the misses fan out as one concurrent lookup each. A failed lookup
// is recorded as absent for the client's TTL rather than surfaced, so
// the returned map covers every requested name: nil means no version
// is currently known.
func (r *Resolver) FetchVersions(ctx context.Context, client Lookup, names []string) map[string]*semver.Version {
	versions := make(map[string]*semver.Version, len(names))

	unique := make(map[string]struct{}, len(names))
	var misses []string
	for _, name := range names {
		if _, seen := unique[name]; seen {
			continue
		}
		unique[name] = struct{}{}

		switch version, state := r.cache.Get(name); state {
		case cache.Known:
			versions[name] = version
		case cache.DoesNotExist:
			versions[name] = nil
		default:
			misses = append(misses, name)
		}
	}

	if len(misses) == 0 {
		return versions
	}

	outcomes := make(chan outcome, len(misses))
	var wg sync.WaitGroup
	for _, name := range misses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			version, err := client.GetLatestVersion(ctx, name)
			outcomes <- outcome{name: name, version: version, err: err}
		}()
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for out := range outcomes {
		if out.err != nil {
			log.Debugf("lookup of %s failed: %s", out.name, out.err)
			out.version = nil
		}
		r.cache.Put(out.name, out.version, time.Now().Add(client.TimeToLive(out.err)))
		versions[out.name] = out.version
	}

	return versions
}
