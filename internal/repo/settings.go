package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/schema"
	"github.com/roach88/alata/internal/store"
)

// Settings is a key/value store of JSON values.
type Settings struct {
	ops store.Ops
}

// Get decodes the value stored under key into dst. found is false, and dst
// untouched, when the key is absent or its record holds no value.
func (r *Settings) Get(ctx context.Context, key string, dst any) (found bool, err error) {
	var s model.Setting
	found, err = r.ops.Get(ctx, schema.Settings, key, &s)
	if err != nil {
		return false, fmt.Errorf("get setting %s: %w", key, err)
	}
	if !found || len(bytes.TrimSpace(s.Value)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(s.Value, dst); err != nil {
		return true, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

// Int returns the integer stored under key, or def when absent.
func (r *Settings) Int(ctx context.Context, key string, def int) (int, error) {
	v := def
	if _, err := r.Get(ctx, key, &v); err != nil {
		return def, err
	}
	return v, nil
}

// String returns the string stored under key, or def when absent.
func (r *Settings) String(ctx context.Context, key, def string) (string, error) {
	v := def
	if _, err := r.Get(ctx, key, &v); err != nil {
		return def, err
	}
	return v, nil
}

// Set stores value under key, replacing any previous value.
func (r *Settings) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	if _, err := r.ops.Put(ctx, schema.Settings, model.Setting{Key: key, Value: raw}); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// List returns every setting ordered by key.
func (r *Settings) List(ctx context.Context) ([]model.Setting, error) {
	return listAll[model.Setting](ctx, r.ops, schema.Settings)
}
