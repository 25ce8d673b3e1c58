// Package store accumulates parsed entries from multiple manifests.
package store

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/channelpick/channel-pick/internal/manifest"
)

// Store maps entry keys (source manifest + ordinal) to entries. Merge is
// safe under concurrent ingestion of different manifests; a fresh parse of a
// manifest fully replaces its previous entries, so a shrinking manifest
// leaves no orphaned keys behind.
type Store struct {
	mu      sync.RWMutex
	entries map[string]manifest.Entry
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[string]manifest.Entry)}
}

// Merge replaces all entries previously ingested from source with newEntries.
// Entry keys are derived from the source and each entry's ordinal, so
// re-parsing the same manifest overwrites in place.
func (s *Store) Merge(source string, newEntries []manifest.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if e.SourceManifest == source {
			delete(s.entries, key)
		}
	}
	for _, e := range newEntries {
		if e.Endpoint == "" {
			continue
		}
		s.entries[e.Key()] = e
	}
}

// All returns every entry ordered by source manifest, then ordinal.
// The slice is a copy; callers may not mutate stored state through it.
func (s *Store) All() []manifest.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]manifest.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceManifest != out[j].SourceManifest {
			return out[i].SourceManifest < out[j].SourceManifest
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ordinalFromKey recovers the ordinal suffix of a persisted key. Keys are
// "<source>_<ordinal>"; sources may themselves contain underscores, so the
// split is on the last one.
func ordinalFromKey(key string) int {
	i := strings.LastIndex(key, "_")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return 0
	}
	return n
}
