package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_AddGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			in := item{Code: "PRD001", Name: "Benang Rajut", Category: "Bahan Produksi", Price: 30000}
			key, err := e.Add(ctx, "items", in)
			require.NoError(t, err)
			assert.Equal(t, "PRD001", key)

			var out item
			found, err := e.Get(ctx, "items", "PRD001", &out)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, in, out)
		})
	}
}

func TestEngine_AddDuplicateKey(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := e.Add(ctx, "items", item{Code: "A", Name: "first"})
			require.NoError(t, err)

			_, err = e.Add(ctx, "items", item{Code: "A", Name: "second"})
			require.Error(t, err)
			assert.True(t, IsDuplicateKey(err))

			var se *Error
			require.True(t, errors.As(err, &se))
			assert.Equal(t, CodeDuplicateKey, se.Code)
			assert.Equal(t, "items", se.Collection)

			var out item
			_, err = e.Get(ctx, "items", "A", &out)
			require.NoError(t, err)
			assert.Equal(t, "first", out.Name, "failed add must not overwrite")
		})
	}
}

func TestEngine_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := e.Put(ctx, "items", item{Code: "A", Name: "first"})
			require.NoError(t, err)
			_, err = e.Put(ctx, "items", item{Code: "A", Name: "second"})
			require.NoError(t, err)

			var out item
			found, err := e.Get(ctx, "items", "A", &out)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "second", out.Name)

			n, err := e.Count(ctx, "items")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestEngine_GetMissingIsNotAnError(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			var out item
			found, err := e.Get(ctx, "items", "nope", &out)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestEngine_GetAllOrderedByKey(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			for _, code := range []string{"C", "A", "B"} {
				_, err := e.Put(ctx, "items", item{Code: code, Name: code})
				require.NoError(t, err)
			}

			docs, err := e.GetAll(ctx, "items")
			require.NoError(t, err)
			require.Len(t, docs, 3)

			var codes []string
			for _, doc := range docs {
				var it item
				require.NoError(t, json.Unmarshal(doc, &it))
				codes = append(codes, it.Code)
			}
			assert.Equal(t, []string{"A", "B", "C"}, codes)
		})
	}
}

func TestEngine_GetAllEmptyReturnsEmptySlice(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			docs, err := e.GetAll(ctx, "items")
			require.NoError(t, err)
			assert.NotNil(t, docs)
			assert.Empty(t, docs)
		})
	}
}

func TestEngine_GetAllByIndex(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			seed := []item{
				{Code: "P1", Name: "Gunting", Category: "Alat", Price: 125000},
				{Code: "P2", Name: "Benang", Category: "Bahan", Price: 30000},
				{Code: "P3", Name: "Timbangan", Category: "Alat", Price: 380000},
			}
			for _, it := range seed {
				_, err := e.Put(ctx, "items", it)
				require.NoError(t, err)
			}

			docs, err := e.GetAllByIndex(ctx, "items", "category", "Alat")
			require.NoError(t, err)
			assert.Len(t, docs, 2)

			docs, err = e.GetAllByIndex(ctx, "items", "price", 30000)
			require.NoError(t, err)
			require.Len(t, docs, 1)
			var it item
			require.NoError(t, json.Unmarshal(docs[0], &it))
			assert.Equal(t, "P2", it.Code)

			_, err = e.GetAllByIndex(ctx, "items", "missing", "x")
			assert.ErrorIs(t, err, ErrUnknownCollection)
		})
	}
}

func TestEngine_AutoIncrementAssignsSequentialKeys(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			k1, err := e.Add(ctx, "people", person{Name: "Ani"})
			require.NoError(t, err)
			k2, err := e.Add(ctx, "people", person{Name: "Budi"})
			require.NoError(t, err)
			assert.Equal(t, int64(1), k1)
			assert.Equal(t, int64(2), k2)

			var p person
			found, err := e.Get(ctx, "people", int64(2), &p)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, int64(2), p.ID, "assigned key is written into the document")
			assert.Equal(t, "Budi", p.Name)

			// Explicit keys are honored and advance the sequence.
			_, err = e.Put(ctx, "people", person{ID: 10, Name: "Citra"})
			require.NoError(t, err)
			k4, err := e.Add(ctx, "people", person{Name: "Dewi"})
			require.NoError(t, err)
			assert.Equal(t, int64(11), k4)
		})
	}
}

func TestEngine_UniqueIndex(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := e.Add(ctx, "people", person{Name: "Ani", Phone: "0812"})
			require.NoError(t, err)

			_, err = e.Add(ctx, "people", person{Name: "Budi", Phone: "0812"})
			assert.True(t, IsDuplicateKey(err), "got %v", err)

			// Absent values do not collide.
			_, err = e.Add(ctx, "people", person{Name: "Citra"})
			require.NoError(t, err)
			_, err = e.Add(ctx, "people", person{Name: "Dewi"})
			require.NoError(t, err)

			// Re-putting the owner of the value is not a collision.
			_, err = e.Put(ctx, "people", person{ID: 1, Name: "Ani Updated", Phone: "0812"})
			require.NoError(t, err)
		})
	}
}

func TestEngine_DeleteAndClearAreIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := e.Put(ctx, "items", item{Code: "A"})
			require.NoError(t, err)

			require.NoError(t, e.Delete(ctx, "items", "A"))
			require.NoError(t, e.Delete(ctx, "items", "A"))

			found, err := e.Get(ctx, "items", "A", nil)
			require.NoError(t, err)
			assert.False(t, found)

			_, err = e.Put(ctx, "items", item{Code: "B"})
			require.NoError(t, err)
			require.NoError(t, e.Clear(ctx, "items"))
			require.NoError(t, e.Clear(ctx, "items"))

			n, err := e.Count(ctx, "items")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestEngine_UpdateCommitsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			err := e.Update(ctx, func(tx Ops) error {
				if _, err := tx.Put(ctx, "items", item{Code: "A"}); err != nil {
					return err
				}
				_, err := tx.Add(ctx, "people", person{Name: "Ani"})
				return err
			})
			require.NoError(t, err)

			boom := errors.New("boom")
			err = e.Update(ctx, func(tx Ops) error {
				if _, err := tx.Put(ctx, "items", item{Code: "B"}); err != nil {
					return err
				}
				if err := tx.Delete(ctx, "items", "A"); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			found, err := e.Get(ctx, "items", "A", nil)
			require.NoError(t, err)
			assert.True(t, found, "rolled back delete must not apply")
			found, err = e.Get(ctx, "items", "B", nil)
			require.NoError(t, err)
			assert.False(t, found, "rolled back put must not apply")

			n, err := e.Count(ctx, "people")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestEngine_UpdateSeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			err := e.Update(ctx, func(tx Ops) error {
				if _, err := tx.Put(ctx, "items", item{Code: "A", Name: "x"}); err != nil {
					return err
				}
				var it item
				found, err := tx.Get(ctx, "items", "A", &it)
				require.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, "x", it.Name)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestEngine_UnknownCollection(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := e.Put(ctx, "nope", item{Code: "A"})
			assert.ErrorIs(t, err, ErrUnknownCollection)
			_, err = e.GetAll(ctx, "nope")
			assert.ErrorIs(t, err, ErrUnknownCollection)
		})
	}
}

func TestEngine_RejectsRecordsWithoutKey(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := e.Put(ctx, "items", map[string]any{"name": "no code"})
			assert.ErrorIs(t, err, ErrInvalidRecord)
			_, err = e.Put(ctx, "items", json.RawMessage(`[1,2]`))
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestEngine_RawDocumentsPreserveUnknownFields(t *testing.T) {
	ctx := context.Background()
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := e.Put(ctx, "items", json.RawMessage(`{"code":"A","extra":{"nested":true}}`))
			require.NoError(t, err)

			var raw json.RawMessage
			found, err := e.Get(ctx, "items", "A", &raw)
			require.NoError(t, err)
			require.True(t, found)
			assert.JSONEq(t, `{"code":"A","extra":{"nested":true}}`, string(raw))
		})
	}
}
