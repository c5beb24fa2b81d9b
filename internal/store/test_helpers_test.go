package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testCollections mirrors the shapes the application uses: a string-keyed
// collection with non-unique indexes and an auto-increment collection with
// unique indexes.
var testCollections = []Collection{
	{
		Name:    "items",
		KeyPath: "code",
		Indexes: []Index{
			{Name: "category", Field: "category"},
			{Name: "price", Field: "price"},
		},
	},
	{
		Name:          "people",
		KeyPath:       "id",
		AutoIncrement: true,
		Indexes: []Index{
			{Name: "name", Field: "name"},
			{Name: "phone", Field: "phone", Unique: true},
		},
	},
}

func testUpgrade(u Upgrader, _, _ int) error {
	for _, c := range testCollections {
		if err := u.CreateCollection(c); err != nil {
			return err
		}
	}
	return nil
}

type item struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

type person struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// createTestStore opens a SQLite engine in a temporary directory.
func createTestStore(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(context.Background(), path, 1, testUpgrade)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// engines returns one fresh instance of every engine implementation.
func engines(t *testing.T) map[string]Engine {
	t.Helper()
	mem, err := OpenMemory(1, testUpgrade)
	require.NoError(t, err)
	return map[string]Engine{
		"sqlite": createTestStore(t),
		"memory": mem,
	}
}
