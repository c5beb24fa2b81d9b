package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
)

// Key is a primary key value: a string for keyed collections, an int64 for
// AutoIncrement collections.
type Key = any

// Index declares a secondary index on a top-level document field.
type Index struct {
	Name   string `json:"name"`
	Field  string `json:"field"`
	Unique bool   `json:"unique"`
}

// Collection declares a named group of documents sharing a primary key.
type Collection struct {
	Name          string  `json:"name"`
	KeyPath       string  `json:"keyPath"`
	AutoIncrement bool    `json:"autoIncrement"`
	Indexes       []Index `json:"indexes,omitempty"`
}

// index returns the named index definition.
func (c Collection) index(name string) (Index, bool) {
	for _, idx := range c.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validate checks that names are safe to embed in SQL identifiers and JSON paths.
func (c Collection) validate() error {
	if !identRe.MatchString(c.Name) {
		return fmt.Errorf("invalid collection name %q", c.Name)
	}
	if !identRe.MatchString(c.KeyPath) {
		return fmt.Errorf("collection %s: invalid key path %q", c.Name, c.KeyPath)
	}
	for _, idx := range c.Indexes {
		if !identRe.MatchString(idx.Name) || !identRe.MatchString(idx.Field) {
			return fmt.Errorf("collection %s: invalid index %q on %q", c.Name, idx.Name, idx.Field)
		}
	}
	return nil
}

// Ops are the record primitives shared by engines and their transactions.
type Ops interface {
	// Add inserts record, failing with ErrDuplicateKey if its key exists.
	// Returns the primary key, assigned if the collection auto-increments.
	Add(ctx context.Context, collection string, record any) (Key, error)

	// Put inserts or replaces record by primary key.
	Put(ctx context.Context, collection string, record any) (Key, error)

	// Get decodes the record stored under key into dst.
	// Returns false with a nil error if no record exists.
	Get(ctx context.Context, collection string, key Key, dst any) (bool, error)

	// GetAll returns every document ordered by primary key.
	GetAll(ctx context.Context, collection string) ([]json.RawMessage, error)

	// GetAllByIndex returns the documents whose indexed field equals value,
	// ordered by primary key.
	GetAllByIndex(ctx context.Context, collection, index string, value any) ([]json.RawMessage, error)

	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Delete removes the record under key. No error if absent.
	Delete(ctx context.Context, collection string, key Key) error

	// Clear removes every record in the collection. No error if empty.
	Clear(ctx context.Context, collection string) error
}

// Engine is an opened database.
type Engine interface {
	Ops

	// Update runs fn in a single atomic transaction. All writes made through
	// the Ops passed to fn are committed if fn returns nil and discarded
	// otherwise. fn must not call methods on the Engine itself.
	Update(ctx context.Context, fn func(tx Ops) error) error

	// Name identifies the engine kind ("sqlite" or "memory").
	Name() string

	// Version is the schema version the engine was opened at.
	Version() int

	// Collections lists the collection names in the schema.
	Collections() []string

	// Close releases the engine. Safe to call more than once.
	Close() error
}

// Upgrader creates schema objects during an upgrade.
type Upgrader interface {
	// HasCollection reports whether the collection already exists.
	HasCollection(name string) bool

	// CreateCollection creates the collection if missing and any of its
	// indexes that do not yet exist. Existing data is never dropped.
	CreateCollection(c Collection) error
}

// UpgradeFunc is invoked once when an engine is opened at a version higher
// than the stored one.
type UpgradeFunc func(u Upgrader, oldVersion, newVersion int) error

// mergeIndexes returns existing plus any indexes of add not already present by name.
func mergeIndexes(existing, add []Index) []Index {
	out := append([]Index(nil), existing...)
	for _, idx := range add {
		found := false
		for _, e := range existing {
			if e.Name == idx.Name {
				found = true
				break
			}
		}
		if !found {
			out = append(out, idx)
		}
	}
	return out
}
