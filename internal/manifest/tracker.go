package manifest

import (
	"strings"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

type section int

const (
	sectionOther section = iota
	sectionDependencies
	sectionNamedDependency
)

// Tracker holds the dependency facts last extracted from each open manifest.
type Tracker struct {
	manifests map[protocol.DocumentUri][]Dependency
	mu        sync.RWMutex
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		manifests: make(map[protocol.DocumentUri][]Dependency),
	}
}

// Update re-parses the full manifest text, replaces the facts stored for uri
// and returns the fresh slice.
//
// Only lines inside a dependencies section produce facts. Inside a
// [dependencies.<crate>] section the single version key is kept and renamed to
// the crate the section declares; everything else there is dropped.
func (t *Tracker) Update(uri protocol.DocumentUri, text string) []Dependency {
	var deps []Dependency

	state := sectionOther
	crate := ""

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") {
			switch {
			case strings.HasPrefix(trimmed, "[dependencies."):
				crate = strings.TrimSuffix(strings.TrimPrefix(trimmed, "[dependencies."), "]")
				state = sectionNamedDependency
			case strings.HasPrefix(trimmed, "[dependencies"), strings.HasSuffix(trimmed, "dependencies]"):
				state = sectionDependencies
			default:
				state = sectionOther
			}
			continue
		}

		if trimmed == "" {
			continue
		}

		switch state {
		case sectionDependencies:
			if dep := ParseLine(line, uint32(i)); dep != nil {
				deps = append(deps, dep)
			}

		case sectionNamedDependency:
			switch dep := ParseLine(line, uint32(i)).(type) {
			case VersionedDependency:
				if dep.Name == versionKeyword {
					dep.Name = crate
					deps = append(deps, dep)
				}
			case OtherDependency:
				if dep.Name == versionKeyword {
					dep.Name = crate
					deps = append(deps, dep)
				}
			}
		}
	}

	t.mu.Lock()
	t.manifests[uri] = deps
	t.mu.Unlock()

	return deps
}

// Get returns the facts from the last Update for uri.
func (t *Tracker) Get(uri protocol.DocumentUri) ([]Dependency, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	deps, exists := t.manifests[uri]
	return deps, exists
}
