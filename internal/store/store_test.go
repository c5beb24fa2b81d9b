package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := OpenSQLite(context.Background(), path, 1, testUpgrade)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
	assert.Equal(t, []string{"items", "people"}, s.Collections())
	assert.Equal(t, 1, s.Version())
	assert.Equal(t, "sqlite", s.Name())
}

func TestOpenSQLite_ReopenKeepsDataAndSkipsUpgrade(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	calls := 0
	upgrade := func(u Upgrader, oldVersion, newVersion int) error {
		calls++
		assert.Equal(t, 0, oldVersion)
		assert.Equal(t, 1, newVersion)
		return testUpgrade(u, oldVersion, newVersion)
	}

	s1, err := OpenSQLite(ctx, path, 1, upgrade)
	require.NoError(t, err)
	_, err = s1.Put(ctx, "items", item{Code: "A", Name: "kept"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(ctx, path, 1, upgrade)
	require.NoError(t, err)
	defer s2.Close()

	assert.Equal(t, 1, calls, "upgrade must run once per version increase")

	var it item
	found, err := s2.Get(ctx, "items", "A", &it)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "kept", it.Name)
}

func TestOpenSQLite_UpgradeIsAdditive(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := OpenSQLite(ctx, path, 1, testUpgrade)
	require.NoError(t, err)
	_, err = s1.Put(ctx, "items", item{Code: "A", Name: "Benang"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	v2 := func(u Upgrader, oldVersion, newVersion int) error {
		assert.Equal(t, 1, oldVersion)
		assert.Equal(t, 2, newVersion)
		assert.True(t, u.HasCollection("items"))
		assert.False(t, u.HasCollection("logs"))
		if err := u.CreateCollection(Collection{
			Name:    "items",
			KeyPath: "code",
			Indexes: []Index{{Name: "name", Field: "name"}},
		}); err != nil {
			return err
		}
		return u.CreateCollection(Collection{Name: "logs", KeyPath: "id", AutoIncrement: true})
	}

	s2, err := OpenSQLite(ctx, path, 2, v2)
	require.NoError(t, err)
	defer s2.Close()

	docs, err := s2.GetAllByIndex(ctx, "items", "name", "Benang")
	require.NoError(t, err)
	assert.Len(t, docs, 1, "existing data survives and is reachable by the new index")

	docs, err = s2.GetAllByIndex(ctx, "items", "category", "Alat")
	require.NoError(t, err, "previously declared indexes are kept")
	assert.Empty(t, docs)

	assert.Contains(t, s2.Collections(), "logs")
}

func TestOpenSQLite_PrimaryKeyCannotChange(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := OpenSQLite(ctx, path, 1, testUpgrade)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	_, err = OpenSQLite(ctx, path, 2, func(u Upgrader, _, _ int) error {
		return u.CreateCollection(Collection{Name: "items", KeyPath: "name"})
	})
	assert.True(t, IsStorageUnavailable(err))
}

func TestOpenSQLite_NewerDatabaseVersionFails(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := OpenSQLite(ctx, path, 3, testUpgrade)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	_, err = OpenSQLite(ctx, path, 2, testUpgrade)
	require.Error(t, err)
	assert.True(t, IsStorageUnavailable(err))
}

func TestOpenSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "/nonexistent/dir/test.db", 1, testUpgrade)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestOpenSQLite_PureGoDriver(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pure.db")

	s, err := OpenSQLite(ctx, path, 1, testUpgrade, WithDriver(DriverPure))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Add(ctx, "items", item{Code: "A"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "items", item{Code: "A"})
	assert.True(t, IsDuplicateKey(err), "got %v", err)
}

func TestOpenSQLite_Pragmas(t *testing.T) {
	s := createTestStore(t)

	var mode string
	require.NoError(t, s.DB().Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, s.DB().Get(&version, "PRAGMA user_version"))
	assert.Equal(t, 1, version)
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(context.Background(), path, 1, testUpgrade)
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestOpenMemory_RunsUpgradeFromZero(t *testing.T) {
	var gotOld, gotNew int
	m, err := OpenMemory(4, func(u Upgrader, oldVersion, newVersion int) error {
		gotOld, gotNew = oldVersion, newVersion
		return testUpgrade(u, oldVersion, newVersion)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, gotOld)
	assert.Equal(t, 4, gotNew)
	assert.Equal(t, []string{"items", "people"}, m.Collections())

	require.NoError(t, m.Close())
	_, err = m.Put(context.Background(), "items", item{Code: "A"})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
