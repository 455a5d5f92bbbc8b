// Package config holds the runtime settings of the language server.
// Settings arrive either from the editor, as JSON carried in
// initialize or workspace/didChangeConfiguration, or from a TOML file
// on disk. Every accessor falls back to a sensible default, so an
// empty Settings is fully usable.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	defaultUpToDateHint    = "✓"
	defaultNeedsUpdateHint = " {}"
)

func defaultFiles() []string {
	return []string{"Cargo.toml"}
}

// LspSettings is the wire form of the configuration. Unset fields
// keep their defaults, which is why everything scalar is a pointer.
type LspSettings struct {
	UseApi              *bool                        `json:"useApi" toml:"useApi"`
	InlayHints          *bool                        `json:"inlayHints" toml:"inlayHints"`
	Diagnostics         *bool                        `json:"diagnostics" toml:"diagnostics"`
	NeedsUpdateSeverity *protocol.DiagnosticSeverity `json:"needsUpdateSeverity" toml:"needsUpdateSeverity"`
	UpToDateSeverity    *protocol.DiagnosticSeverity `json:"upToDateSeverity" toml:"upToDateSeverity"`
	UnknownDepSeverity  *protocol.DiagnosticSeverity `json:"unknownDepSeverity" toml:"unknownDepSeverity"`
	UpToDateHint        *string                      `json:"upToDateHint" toml:"upToDateHint"`
	NeedsUpdateHint     *string                      `json:"needsUpdateHint" toml:"needsUpdateHint"`
	Files               []string                     `json:"files" toml:"files"`
	CacheRoot           *string                      `json:"cacheRoot" toml:"cacheRoot"`
	CacheStore          *string                      `json:"cacheStore" toml:"cacheStore"`
	TTLHours            *int                         `json:"ttlHours" toml:"ttlHours"`
}

// Settings wraps LspSettings for concurrent use. Handlers read it on
// every request while configuration notifications replace it.
type Settings struct {
	mu    sync.RWMutex
	inner LspSettings
}

func NewSettings() *Settings {
	return &Settings{}
}

// Populate replaces the stored settings from a client-provided value,
// usually the initializationOptions of initialize or the settings
// section of workspace/didChangeConfiguration.
func (s *Settings) Populate(value any) (LspSettings, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return LspSettings{}, fmt.Errorf("failed to encode settings: %w", err)
	}

	var parsed LspSettings
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return LspSettings{}, fmt.Errorf("failed to decode settings: %w", err)
	}

	s.mu.Lock()
	s.inner = parsed
	s.mu.Unlock()

	return parsed, nil
}

// LoadFile replaces the stored settings from a TOML file.
func (s *Settings) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed LspSettings
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	s.mu.Lock()
	s.inner = parsed
	s.mu.Unlock()

	return nil
}

// SetCacheRoot overrides the cache directory, as if cacheRoot had
// been present in the loaded configuration.
func (s *Settings) SetCacheRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.CacheRoot = &root
}

// UseApi selects the registry API strategy over the sparse index.
func (s *Settings) UseApi() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner.UseApi != nil && *s.inner.UseApi
}

// InlayHints reports whether up-to-date dependencies get a marker.
func (s *Settings) InlayHints() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inner.InlayHints == nil {
		return true
	}
	return *s.inner.InlayHints
}

// Diagnostics reports whether outdated and unknown dependencies get
// diagnostics.
func (s *Settings) Diagnostics() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inner.Diagnostics == nil {
		return true
	}
	return *s.inner.Diagnostics
}

func (s *Settings) NeedsUpdateSeverity() protocol.DiagnosticSeverity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return severityOr(s.inner.NeedsUpdateSeverity, protocol.DiagnosticSeverityInformation)
}

func (s *Settings) UpToDateSeverity() protocol.DiagnosticSeverity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return severityOr(s.inner.UpToDateSeverity, protocol.DiagnosticSeverityHint)
}

func (s *Settings) UnknownDepSeverity() protocol.DiagnosticSeverity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return severityOr(s.inner.UnknownDepSeverity, protocol.DiagnosticSeverityWarning)
}

// UpToDateHint is the marker shown next to an up-to-date dependency.
// A "{}" placeholder is replaced with the newest version.
func (s *Settings) UpToDateHint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inner.UpToDateHint == nil {
		return defaultUpToDateHint
	}
	return *s.inner.UpToDateHint
}

// NeedsUpdateHint is appended after the crate name when a newer
// version exists. A "{}" placeholder is replaced with that version.
func (s *Settings) NeedsUpdateHint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inner.NeedsUpdateHint == nil {
		return defaultNeedsUpdateHint
	}
	return *s.inner.NeedsUpdateHint
}

// MatchesFilename reports whether the document is one of the
// manifests the server should handle, judged by its final path
// segment.
func (s *Settings) MatchesFilename(uri protocol.DocumentUri) bool {
	segments := strings.Split(uri, "/")
	filename := segments[len(segments)-1]

	s.mu.RLock()
	defer s.mu.RUnlock()

	files := s.inner.Files
	if len(files) == 0 {
		files = defaultFiles()
	}
	for _, matched := range files {
		if matched == filename {
			return true
		}
	}
	return false
}

// CacheRoot is the durable cache directory, empty when the cache
// default should be used.
func (s *Settings) CacheRoot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inner.CacheRoot == nil {
		return ""
	}
	return *s.inner.CacheRoot
}

// CacheStore names the durable cache backend, either "file" or
// "sqlite".
func (s *Settings) CacheStore() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inner.CacheStore == nil {
		return "file"
	}
	switch store := strings.ToLower(*s.inner.CacheStore); store {
	case "sqlite":
		return store
	default:
		return "file"
	}
}

// TimeToLive is the configured cache expiry, zero when the registry
// default should be used.
func (s *Settings) TimeToLive() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inner.TTLHours == nil || *s.inner.TTLHours <= 0 {
		return 0
	}
	return time.Duration(*s.inner.TTLHours) * time.Hour
}

// severityOr validates a configured severity, falling back when it is
// unset or outside the protocol's 1 to 4 band.
func severityOr(severity *protocol.DiagnosticSeverity, fallback protocol.DiagnosticSeverity) protocol.DiagnosticSeverity {
	if severity == nil {
		return fallback
	}
	if *severity < protocol.DiagnosticSeverityError || *severity > protocol.DiagnosticSeverityHint {
		return fallback
	}
	return *severity
}
