package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
)

// ErrNoRecord is returned when a crate has no durable record.
var ErrNoRecord = errors.New("no record for crate")

// Record is one cached lookup outcome. A nil Version records that the crate
// does not exist in the registry.
type Record struct {
	Version   *semver.Version `json:"version"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Store persists one Record per crate name under a root directory.
type Store interface {
	Load(name string) (Record, error)
	Save(name string, record Record) error
	Close() error
}

// initRoot creates the root directory and drops an ignore marker so the cache
// never ends up in version control.
func initRoot(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create cache root: %w", err)
	}

	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*"), 0644); err != nil {
		return fmt.Errorf("failed to write ignore marker: %w", err)
	}

	return nil
}
