package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	_ "github.com/mattn/go-sqlite3"
)

const schemaVersion = 1

// SQLiteStore keeps all records in a single database file under its root.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite prepares a sqlite-backed store rooted at the given directory.
func OpenSQLite(root string) (Store, error) {
	if err := initRoot(root); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", filepath.Join(root, "versions.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys and WAL mode
	if _, err := db.Exec(`
        PRAGMA foreign_keys = ON;
        PRAGMA journal_mode = WAL;
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	// Check schema version
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS crates (
        name TEXT PRIMARY KEY,
        version TEXT,
        expires_at INTEGER NOT NULL
    )`); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Load(name string) (Record, error) {
	var (
		version   sql.NullString
		expiresAt int64
	)

	err := s.db.QueryRow(
		"SELECT version, expires_at FROM crates WHERE name = ?",
		name,
	).Scan(&version, &expiresAt)

	if err == sql.ErrNoRows {
		return Record{}, ErrNoRecord
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to query record for %s: %w", name, err)
	}

	record := Record{ExpiresAt: time.Unix(expiresAt, 0)}
	if version.Valid {
		parsed, err := semver.NewVersion(version.String)
		if err != nil {
			return Record{}, fmt.Errorf("failed to parse stored version for %s: %w", name, err)
		}
		record.Version = parsed
	}

	return record, nil
}

func (s *SQLiteStore) Save(name string, record Record) error {
	var version sql.NullString
	if record.Version != nil {
		version = sql.NullString{String: record.Version.String(), Valid: true}
	}

	_, err := s.db.Exec(`
        INSERT INTO crates (name, version, expires_at)
        VALUES (?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            version = excluded.version,
            expires_at = excluded.expires_at
    `, name, version, record.ExpiresAt.Unix())

	if err != nil {
		return fmt.Errorf("failed to upsert record for %s: %w", name, err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
