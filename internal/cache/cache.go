package cache

import (
	"fmt"
	"sync"
	"time"

	"stevedore/internal/cache/store"

	"github.com/Masterminds/semver/v3"
	"github.com/tliron/commonlog"
)

// DefaultRoot is where version records live unless settings move them.
const DefaultRoot = ".stevedore/crates.io"

var log = commonlog.GetLogger("stevedore.cache")

// State classifies what the cache knows about a crate.
type State int

const (
	// Unknown means the cache holds no usable record.
	Unknown State = iota
	// Known means the newest registry version is on record.
	Known
	// DoesNotExist means a lookup confirmed the crate is absent upstream.
	DoesNotExist
)

// Opener builds a durable store rooted at a directory.
type Opener func(root string) (store.Store, error)

// Cache answers version lookups from an in-memory index first and a durable
// store second. Expired records stay in place until a put overwrites them.
type Cache struct {
	open   Opener
	store  store.Store
	crates map[string]store.Record
	mu     sync.RWMutex
}

// NewCache opens the durable store at root and wraps it with an empty
// in-memory index.
func NewCache(open Opener, root string) (*Cache, error) {
	s, err := open(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache root %s: %w", root, err)
	}

	return &Cache{
		open:   open,
		store:  s,
		crates: make(map[string]store.Record),
	}, nil
}

// Get reports the cached state of a crate. A fresh durable record is promoted
// into the in-memory index on the way out; anything missing, corrupt or
// expired reads as Unknown.
func (c *Cache) Get(name string) (*semver.Version, State) {
	now := time.Now()

	c.mu.RLock()
	record, exists := c.crates[name]
	s := c.store
	c.mu.RUnlock()

	if exists && now.Before(record.ExpiresAt) {
		return record.Version, recordState(record)
	}

	durable, err := s.Load(name)
	if err != nil || !now.Before(durable.ExpiresAt) {
		return nil, Unknown
	}

	c.mu.Lock()
	c.crates[name] = durable
	c.mu.Unlock()

	return durable.Version, recordState(durable)
}

// Put records a lookup outcome, overwriting whatever was there. A nil version
// marks the crate as absent upstream. The durable write happens first; its
// failure is logged and never blocks the in-memory update.
func (c *Cache) Put(name string, version *semver.Version, expiresAt time.Time) {
	record := store.Record{Version: version, ExpiresAt: expiresAt}

	c.mu.RLock()
	s := c.store
	c.mu.RUnlock()

	if err := s.Save(name, record); err != nil {
		log.Errorf("failed to save record for %s: %s", name, err)
	}

	c.mu.Lock()
	c.crates[name] = record
	c.mu.Unlock()
}

// ChangeRoot swaps the durable store for one rooted at the new directory.
// The in-memory index is kept as is.
func (c *Cache) ChangeRoot(root string) error {
	s, err := c.open(root)
	if err != nil {
		return fmt.Errorf("failed to open cache root %s: %w", root, err)
	}

	c.mu.Lock()
	old := c.store
	c.store = s
	c.mu.Unlock()

	if err := old.Close(); err != nil {
		log.Errorf("failed to close previous store: %s", err)
	}

	return nil
}

// Close releases the durable store.
func (c *Cache) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Close()
}

func recordState(record store.Record) State {
	if record.Version == nil {
		return DoesNotExist
	}
	return Known
}
