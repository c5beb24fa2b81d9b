package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/alata/internal/schema"
	"github.com/roach88/alata/internal/store"
)

// MemoryStore opens an in-memory engine at the current schema version.
func MemoryStore(t testing.TB) *store.Memory {
	t.Helper()
	m, err := store.OpenMemory(schema.Version, schema.Upgrade)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// SQLiteStore opens a fresh database file in a temp dir at the current
// schema version.
func SQLiteStore(t testing.TB) *store.SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alata.db")
	s, err := store.OpenSQLite(context.Background(), path, schema.Version, schema.Upgrade)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Engines returns one engine of each kind keyed by engine name, for tests
// that must hold on both backends.
func Engines(t testing.TB) map[string]store.Engine {
	t.Helper()
	return map[string]store.Engine{
		"sqlite": SQLiteStore(t),
		"memory": MemoryStore(t),
	}
}
