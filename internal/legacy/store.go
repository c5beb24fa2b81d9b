// Package legacy reads and writes the flat key/value store used before the
// structured database existed. Values are strings holding JSON, one per key,
// persisted together in a single JSON file.
package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Known keys.
const (
	KeyProducts = "alataCraftProducts"
	KeyHistory  = "alataCraftHistory"
	KeyStats    = "alataCraftStats"
	KeyCounter  = "alataCraftCounter"
)

// Store is a file-backed string map. Every SetItem and RemoveItem rewrites
// the file. Safe for concurrent use within one process.
type Store struct {
	mu    sync.Mutex
	path  string
	items map[string]string
}

// Open loads the store at path. A missing file yields an empty store that is
// created on first write.
func Open(path string) (*Store, error) {
	s := &Store{path: path, items: make(map[string]string)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open legacy store: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.items); err != nil {
		return nil, fmt.Errorf("open legacy store %s: %w", path, err)
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// GetItem returns the value stored under key.
func (s *Store) GetItem(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok
}

// SetItem stores value under key and persists the store.
func (s *Store) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.items[key]
	s.items[key] = value
	if err := s.save(); err != nil {
		if had {
			s.items[key] = prev
		} else {
			delete(s.items, key)
		}
		return err
	}
	return nil
}

// RemoveItem deletes key and persists the store. Removing a missing key is
// not an error.
func (s *Store) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return nil
	}
	prev := s.items[key]
	delete(s.items, key)
	if err := s.save(); err != nil {
		s.items[key] = prev
		return err
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// save writes the map to a temp file beside path and renames it into place.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode legacy store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write legacy store: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".legacy-*.json")
	if err != nil {
		return fmt.Errorf("write legacy store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write legacy store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write legacy store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write legacy store: %w", err)
	}
	return nil
}
