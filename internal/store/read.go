package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Get implements Ops.
func (s *SQLite) Get(ctx context.Context, collection string, key Key, dst any) (bool, error) {
	return s.ops(s.db).Get(ctx, collection, key, dst)
}

// GetAll implements Ops.
func (s *SQLite) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	return s.ops(s.db).GetAll(ctx, collection)
}

// GetAllByIndex implements Ops.
func (s *SQLite) GetAllByIndex(ctx context.Context, collection, index string, value any) ([]json.RawMessage, error) {
	return s.ops(s.db).GetAllByIndex(ctx, collection, index, value)
}

// Count implements Ops.
func (s *SQLite) Count(ctx context.Context, collection string) (int, error) {
	return s.ops(s.db).Count(ctx, collection)
}

func (o *sqliteOps) Get(ctx context.Context, collection string, key Key, dst any) (bool, error) {
	c, err := o.collection("get", collection)
	if err != nil {
		return false, err
	}
	k, err := normalizeKey(c, key)
	if err != nil {
		return false, newError(CodeInvalidRecord, "get", collection, key, err)
	}

	var doc string
	err = o.getContext(ctx, &doc, fmt.Sprintf(`SELECT doc FROM %s WHERE k = ?`, quoteIdent(c.Name)), k)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", collection, err)
	}

	if err := decodeInto([]byte(doc), dst); err != nil {
		return false, fmt.Errorf("get %s: %w", collection, err)
	}
	return true, nil
}

func (o *sqliteOps) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	c, err := o.collection("getAll", collection)
	if err != nil {
		return nil, err
	}
	return o.selectDocs(ctx, collection, fmt.Sprintf(`SELECT doc FROM %s ORDER BY k ASC`, quoteIdent(c.Name)))
}

func (o *sqliteOps) GetAllByIndex(ctx context.Context, collection, index string, value any) ([]json.RawMessage, error) {
	c, err := o.collection("getAllByIndex", collection)
	if err != nil {
		return nil, err
	}
	idx, ok := c.index(index)
	if !ok {
		return nil, newError(CodeUnknownCollection, "getAllByIndex", collection, nil, fmt.Errorf("no index %q", index))
	}
	// The expression must match the index definition for the planner to use it.
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE json_extract(doc, '$.%s') = ? ORDER BY k ASC`,
		quoteIdent(c.Name), idx.Field)
	return o.selectDocs(ctx, collection, query, value)
}

func (o *sqliteOps) Count(ctx context.Context, collection string) (int, error) {
	c, err := o.collection("count", collection)
	if err != nil {
		return 0, err
	}
	var n int
	if err := o.getContext(ctx, &n, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(c.Name))); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

func (o *sqliteOps) getContext(ctx context.Context, dst any, query string, args ...any) error {
	return sqlx.GetContext(ctx, o.ext, dst, query, args...)
}

// selectDocs runs a single-column document query.
// Returns an empty slice (not nil) if no rows match.
func (o *sqliteOps) selectDocs(ctx context.Context, collection, query string, args ...any) ([]json.RawMessage, error) {
	var rows []string
	if err := sqlx.SelectContext(ctx, o.ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	docs := make([]json.RawMessage, len(rows))
	for i, row := range rows {
		docs[i] = json.RawMessage(row)
	}
	return docs, nil
}
