package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// sqliteOps implements Ops against either the connection pool or a transaction.
type sqliteOps struct {
	ext  sqlx.ExtContext
	cols map[string]Collection
}

func (s *SQLite) ops(ext sqlx.ExtContext) *sqliteOps {
	return &sqliteOps{ext: ext, cols: s.cols}
}

// Update implements Engine. The transaction is rolled back if fn fails.
func (s *SQLite) Update(ctx context.Context, fn func(tx Ops) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(s.ops(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update: commit: %w", err)
	}
	return nil
}

// Add implements Ops.
func (s *SQLite) Add(ctx context.Context, collection string, record any) (key Key, err error) {
	err = s.Update(ctx, func(tx Ops) error {
		key, err = tx.Add(ctx, collection, record)
		return err
	})
	return key, err
}

// Put implements Ops.
func (s *SQLite) Put(ctx context.Context, collection string, record any) (key Key, err error) {
	err = s.Update(ctx, func(tx Ops) error {
		key, err = tx.Put(ctx, collection, record)
		return err
	})
	return key, err
}

// Delete implements Ops.
func (s *SQLite) Delete(ctx context.Context, collection string, key Key) error {
	return s.ops(s.db).Delete(ctx, collection, key)
}

// Clear implements Ops.
func (s *SQLite) Clear(ctx context.Context, collection string) error {
	return s.ops(s.db).Clear(ctx, collection)
}

func (o *sqliteOps) collection(op, name string) (Collection, error) {
	c, ok := o.cols[name]
	if !ok {
		return Collection{}, newError(CodeUnknownCollection, op, name, nil, nil)
	}
	return c, nil
}

// prepare encodes record and extracts its key.
func (o *sqliteOps) prepare(op, collection string, record any) (Collection, []byte, Key, bool, error) {
	c, err := o.collection(op, collection)
	if err != nil {
		return c, nil, nil, false, err
	}
	doc, err := encodeRecord(record)
	if err != nil {
		return c, nil, nil, false, newError(CodeInvalidRecord, op, collection, nil, err)
	}
	key, ok, err := extractKey(c, doc)
	if err != nil {
		return c, nil, nil, false, newError(CodeInvalidRecord, op, collection, nil, err)
	}
	if !ok && !c.AutoIncrement {
		return c, nil, nil, false, newError(CodeInvalidRecord, op, collection, nil,
			fmt.Errorf("missing key field %q", c.KeyPath))
	}
	return c, doc, key, ok, nil
}

func (o *sqliteOps) Add(ctx context.Context, collection string, record any) (Key, error) {
	c, doc, key, ok, err := o.prepare("add", collection, record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return o.insertAuto(ctx, "add", c, doc)
	}

	_, err = o.ext.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (k, doc) VALUES (?, ?)`, quoteIdent(c.Name)),
		key, string(doc))
	if err != nil {
		return nil, writeError("add", c, key, err)
	}
	return key, nil
}

func (o *sqliteOps) Put(ctx context.Context, collection string, record any) (Key, error) {
	c, doc, key, ok, err := o.prepare("put", collection, record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return o.insertAuto(ctx, "put", c, doc)
	}

	_, err = o.ext.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (k, doc) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET doc = excluded.doc
	`, quoteIdent(c.Name)), key, string(doc))
	if err != nil {
		return nil, writeError("put", c, key, err)
	}
	return key, nil
}

// insertAuto inserts a document without a key, lets SQLite assign the next
// sequence value, and writes that value back into the document's key field.
func (o *sqliteOps) insertAuto(ctx context.Context, op string, c Collection, doc []byte) (Key, error) {
	result, err := o.ext.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (doc) VALUES (?)`, quoteIdent(c.Name)),
		string(doc))
	if err != nil {
		return nil, writeError(op, c, nil, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s %s: last insert id: %w", op, c.Name, err)
	}

	_, err = o.ext.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET doc = json_set(doc, '$.%s', k) WHERE k = ?`, quoteIdent(c.Name), c.KeyPath),
		id)
	if err != nil {
		return nil, fmt.Errorf("%s %s: set key: %w", op, c.Name, err)
	}
	return id, nil
}

func (o *sqliteOps) Delete(ctx context.Context, collection string, key Key) error {
	c, err := o.collection("delete", collection)
	if err != nil {
		return err
	}
	k, err := normalizeKey(c, key)
	if err != nil {
		return newError(CodeInvalidRecord, "delete", collection, key, err)
	}
	if _, err := o.ext.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE k = ?`, quoteIdent(c.Name)), k); err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}
	return nil
}

func (o *sqliteOps) Clear(ctx context.Context, collection string) error {
	c, err := o.collection("clear", collection)
	if err != nil {
		return err
	}
	if _, err := o.ext.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, quoteIdent(c.Name))); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}
	return nil
}

// writeError maps constraint violations to ErrDuplicateKey.
func writeError(op string, c Collection, key Key, err error) error {
	if isConstraintError(err) {
		return newError(CodeDuplicateKey, op, c.Name, key, err)
	}
	return fmt.Errorf("%s %s: %w", op, c.Name, err)
}

// isConstraintError recognizes PRIMARY KEY and UNIQUE violations from either driver.
func isConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	// modernc.org/sqlite reports constraint failures by message.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
