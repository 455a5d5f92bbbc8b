package store_test

import (
	"errors"
	"testing"
	"time"

	"stevedore/internal/cache/store"

	"github.com/Masterminds/semver/v3"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := store.OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

// TestSQLiteSaveLoad verifies the positive round trip through the database.
func TestSQLiteSaveLoad(t *testing.T) {
	s := openTestStore(t)

	want := semver.MustParse("1.2.3")
	expires := time.Now().Add(time.Hour).Truncate(time.Second)

	if err := s.Save("serde", store.Record{Version: want, ExpiresAt: expires}); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	record, err := s.Load("serde")
	if err != nil {
		t.Fatalf("Failed to load record: %v", err)
	}
	if record.Version == nil || !record.Version.Equal(want) {
		t.Errorf("Expected version %s, got %v", want, record.Version)
	}
	if !record.ExpiresAt.Equal(expires) {
		t.Errorf("Expected expiry %v, got %v", expires, record.ExpiresAt)
	}
}

// TestSQLiteNilVersion verifies that negative records survive the NULL column.
func TestSQLiteNilVersion(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save("gone", store.Record{ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	record, err := s.Load("gone")
	if err != nil {
		t.Fatalf("Failed to load record: %v", err)
	}
	if record.Version != nil {
		t.Errorf("Expected nil version, got %s", record.Version)
	}
}

// TestSQLiteMissing verifies the sentinel for absent records.
func TestSQLiteMissing(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Load("missing"); !errors.Is(err, store.ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord, got %v", err)
	}
}

// TestSQLiteOverwrite verifies that saving twice keeps only the newer record.
func TestSQLiteOverwrite(t *testing.T) {
	s := openTestStore(t)

	expires := time.Now().Add(time.Hour)
	if err := s.Save("serde", store.Record{ExpiresAt: expires}); err != nil {
		t.Fatalf("Failed to save first record: %v", err)
	}
	if err := s.Save("serde", store.Record{Version: semver.MustParse("2.0.0"), ExpiresAt: expires}); err != nil {
		t.Fatalf("Failed to save second record: %v", err)
	}

	record, err := s.Load("serde")
	if err != nil {
		t.Fatalf("Failed to load record: %v", err)
	}
	if record.Version == nil || record.Version.String() != "2.0.0" {
		t.Errorf("Expected version 2.0.0, got %v", record.Version)
	}
}
