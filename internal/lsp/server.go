// Package lsp exposes manifest diagnostics and completion over the
// language server protocol. The server itself stays thin: documents
// flow through the manifest tracker, version questions go to the
// resolver and everything user-tunable lives in config.
package lsp

import (
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"stevedore/internal/cache"
	"stevedore/internal/cache/store"
	"stevedore/internal/config"
	"stevedore/internal/manifest"
	"stevedore/internal/registry"
)

const lsName = "stevedore"

var version = "0.1.0"

var log = commonlog.GetLogger("stevedore.lsp")

// Server wires the manifest tracker, the version cache and the
// registry strategies into an LSP handler.
type Server struct {
	handler   *protocol.Handler
	settings  *config.Settings
	manifests *manifest.Tracker
	cache     *cache.Cache
	resolver  *registry.Resolver

	mu        sync.RWMutex
	api       registry.Lookup
	sparse    registry.Lookup
	cacheRoot string
}

// NewServer builds the LSP server around pre-populated settings.
func NewServer(settings *config.Settings) (*server.Server, error) {
	root := settings.CacheRoot()
	if root == "" {
		root = cache.DefaultRoot
	}

	versionCache, err := cache.NewCache(storeOpener(settings.CacheStore()), root)
	if err != nil {
		return nil, err
	}

	ls := &Server{
		settings:  settings,
		manifests: manifest.NewTracker(),
		cache:     versionCache,
		resolver:  registry.NewResolver(versionCache),
		cacheRoot: root,
	}
	ls.rebuildStrategies()

	ls.handler = &protocol.Handler{
		Initialize:                      ls.initialize,
		Initialized:                     ls.initialized,
		Shutdown:                        ls.shutdown,
		SetTrace:                        ls.setTrace,
		TextDocumentDidOpen:             ls.textDocumentDidOpen,
		TextDocumentDidChange:           ls.textDocumentDidChange,
		TextDocumentDidClose:            ls.textDocumentDidClose,
		TextDocumentCompletion:          ls.textDocumentCompletion,
		TextDocumentCodeAction:          ls.textDocumentCodeAction,
		WorkspaceDidChangeConfiguration: ls.workspaceDidChangeConfiguration,
	}

	return server.NewServer(ls.handler, lsName, false), nil
}

// storeOpener maps the configured backend name onto a cache store.
func storeOpener(name string) cache.Opener {
	if name == "sqlite" {
		return store.OpenSQLite
	}
	return store.OpenFile
}

// rebuildStrategies recreates both registry strategies so a changed
// TTL takes effect.
func (ls *Server) rebuildStrategies() {
	ttl := ls.settings.TimeToLive()
	ls.mu.Lock()
	ls.api = registry.NewAPI(ttl)
	ls.sparse = registry.NewSparseIndex(ttl)
	ls.mu.Unlock()
}

// lookup picks the strategy diagnostics resolve versions through.
func (ls *Server) lookup() registry.Lookup {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	if ls.settings.UseApi() {
		return ls.api
	}
	return ls.sparse
}

// sparseLookup is the fixed strategy for completion requests, which
// always go through the sparse index.
func (ls *Server) sparseLookup() registry.Lookup {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.sparse
}

// applySettings reacts to new settings: the durable cache may move to
// another root and the strategies pick up a new TTL. Entries already
// resolved in memory stay as they are.
func (ls *Server) applySettings() {
	if root := ls.settings.CacheRoot(); root != "" {
		ls.mu.Lock()
		if root != ls.cacheRoot {
			if err := ls.cache.ChangeRoot(root); err != nil {
				log.Errorf("failed to move cache root to %s: %s", root, err)
			} else {
				ls.cacheRoot = root
			}
		}
		ls.mu.Unlock()
	}

	ls.rebuildStrategies()
}
