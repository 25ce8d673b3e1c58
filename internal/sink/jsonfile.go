package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/channelpick/channel-pick/internal/group"
)

// JSONFile persists the grouped mapping to a single JSON document, keyed by
// channel name. It accumulates batches in memory and rewrites the whole file
// atomically (temp file + rename) on every flush, so a reader never sees a
// torn document and a crash loses at most the unflushed batch. Writes are
// serialized internally; the repair pipeline's single-writer rule holds even
// if callers misbehave.
type JSONFile struct {
	mu     sync.Mutex
	path   string
	groups map[string]group.Group
}

// NewJSONFile returns a sink writing to path. Existing content is replaced
// on the first flush, matching a fresh pipeline run.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path, groups: make(map[string]group.Group)}
}

func (j *JSONFile) UpsertChannel(ctx context.Context, g group.Group) error {
	return j.WriteBatch(ctx, []group.Group{g})
}

func (j *JSONFile) WriteBatch(ctx context.Context, groups []group.Group) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, g := range groups {
		j.groups[g.ChannelName] = g
	}
	return writeGrouped(j.path, j.groups)
}

// SaveGrouped writes a grouped mapping to path atomically.
func SaveGrouped(path string, groups map[string]group.Group) error {
	return writeGrouped(path, groups)
}

// LoadGrouped reads a grouped mapping written by SaveGrouped. Channel names
// in the document keys win over any embedded name field.
func LoadGrouped(path string) (map[string]group.Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var groups map[string]group.Group
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, err
	}
	for name, g := range groups {
		if g.ChannelName == "" {
			g.ChannelName = name
			groups[name] = g
		}
	}
	return groups, nil
}

func writeGrouped(path string, groups map[string]group.Group) error {
	data, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(filepath.Clean(path))
	tmp, err := os.CreateTemp(dir, ".grouped-*.json.tmp")
	if err != nil {
		return fmt.Errorf("grouped save: create temp: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("grouped save: write: %w", writeErr)
		}
		return fmt.Errorf("grouped save: close: %w", closeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("grouped save: rename: %w", err)
	}
	return nil
}
