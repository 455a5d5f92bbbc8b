package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps one JSON record file per crate name under its root.
type FileStore struct {
	root string
}

// OpenFile prepares a file-backed store rooted at the given directory.
func OpenFile(root string) (Store, error) {
	if err := initRoot(root); err != nil {
		return nil, err
	}

	return &FileStore{root: root}, nil
}

func (s *FileStore) Load(name string) (Record, error) {
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrNoRecord
		}
		return Record{}, fmt.Errorf("failed to read record for %s: %w", name, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("failed to decode record for %s: %w", name, err)
	}

	return record, nil
}

func (s *FileStore) Save(name string, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record for %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(s.root, name), data, 0644); err != nil {
		return fmt.Errorf("failed to write record for %s: %w", name, err)
	}

	return nil
}

func (s *FileStore) Close() error {
	return nil
}
