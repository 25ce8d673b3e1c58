package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/channelpick/channel-pick/internal/manifest"
)

// Save writes the store to path as a JSON mapping from entry key to entry,
// using a temp-file-then-rename strategy so readers never see a partially
// written file (atomic on most Unix filesystems).
func (s *Store) Save(path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.entries, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return writeAtomic(path, data, ".entries-*.json.tmp")
}

// Load replaces the store contents with the mapping persisted at path.
// Ordinals are recovered from the key suffix.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var m map[string]manifest.Entry
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]manifest.Entry, len(m))
	for key, e := range m {
		e.Ordinal = ordinalFromKey(key)
		s.entries[key] = e
	}
	return nil
}

// writeAtomic writes data to path via a temp file in the same directory.
func writeAtomic(path string, data []byte, tmpPattern string) error {
	dir := filepath.Dir(filepath.Clean(path))
	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("store save: create temp: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("store save: write: %w", writeErr)
		}
		return fmt.Errorf("store save: close: %w", closeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store save: rename: %w", err)
	}
	return nil
}
