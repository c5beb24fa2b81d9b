package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Memory is an ephemeral Engine backed by maps. Writes are copy-on-write per
// collection: Update works on private copies of the collections it touches and
// publishes them only if fn succeeds.
//
// Thread-safety: Memory is safe for concurrent use. Update holds the write
// lock for the duration of fn.
type Memory struct {
	mu      sync.RWMutex
	version int
	cols    map[string]*memCollection
	closed  bool
}

type memRecord struct {
	key Key
	doc []byte
}

type memCollection struct {
	def     Collection
	records map[string]memRecord
	seq     int64
}

func (c *memCollection) clone() *memCollection {
	out := &memCollection{def: c.def, seq: c.seq, records: make(map[string]memRecord, len(c.records))}
	for k, r := range c.records {
		out.records[k] = r
	}
	return out
}

// sorted returns records ordered by primary key.
func (c *memCollection) sorted() []memRecord {
	out := make([]memRecord, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return compareKeys(out[i].key, out[j].key) < 0 })
	return out
}

// OpenMemory creates an empty in-memory engine and runs upgrade from version 0.
func OpenMemory(version int, upgrade UpgradeFunc) (*Memory, error) {
	if version < 1 {
		return nil, newError(CodeStorageUnavailable, "open", "", nil, fmt.Errorf("version must be >= 1, got %d", version))
	}
	m := &Memory{version: version, cols: make(map[string]*memCollection)}
	if upgrade != nil {
		if err := upgrade(&memUpgrader{m: m}, 0, version); err != nil {
			return nil, newError(CodeStorageUnavailable, "open", "", nil, fmt.Errorf("upgrade 0 -> %d: %w", version, err))
		}
	}
	return m, nil
}

type memUpgrader struct {
	m *Memory
}

func (u *memUpgrader) HasCollection(name string) bool {
	_, ok := u.m.cols[name]
	return ok
}

func (u *memUpgrader) CreateCollection(c Collection) error {
	if err := c.validate(); err != nil {
		return err
	}
	if prev, ok := u.m.cols[c.Name]; ok {
		if prev.def.KeyPath != c.KeyPath || prev.def.AutoIncrement != c.AutoIncrement {
			return fmt.Errorf("collection %s: primary key cannot change", c.Name)
		}
		prev.def.Indexes = mergeIndexes(prev.def.Indexes, c.Indexes)
		return nil
	}
	u.m.cols[c.Name] = &memCollection{def: c, records: make(map[string]memRecord)}
	return nil
}

// Name implements Engine.
func (m *Memory) Name() string { return "memory" }

// Version implements Engine.
func (m *Memory) Version() int { return m.version }

// Collections implements Engine.
func (m *Memory) Collections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.cols))
	for name := range m.cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close implements Engine. Data is discarded.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cols = make(map[string]*memCollection)
	return nil
}

// Update implements Engine.
func (m *Memory) Update(ctx context.Context, fn func(tx Ops) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return newError(CodeStorageUnavailable, "update", "", nil, fmt.Errorf("engine closed"))
	}

	tx := &memTx{base: m.cols, touched: make(map[string]*memCollection)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	if len(tx.touched) == 0 {
		return nil
	}
	next := make(map[string]*memCollection, len(m.cols))
	for name, c := range m.cols {
		next[name] = c
	}
	for name, c := range tx.touched {
		next[name] = c
	}
	m.cols = next
	return nil
}

func (m *Memory) read() *memTx {
	return &memTx{base: m.cols}
}

// Add implements Ops.
func (m *Memory) Add(ctx context.Context, collection string, record any) (key Key, err error) {
	err = m.Update(ctx, func(tx Ops) error {
		key, err = tx.Add(ctx, collection, record)
		return err
	})
	return key, err
}

// Put implements Ops.
func (m *Memory) Put(ctx context.Context, collection string, record any) (key Key, err error) {
	err = m.Update(ctx, func(tx Ops) error {
		key, err = tx.Put(ctx, collection, record)
		return err
	})
	return key, err
}

// Delete implements Ops.
func (m *Memory) Delete(ctx context.Context, collection string, key Key) error {
	return m.Update(ctx, func(tx Ops) error {
		return tx.Delete(ctx, collection, key)
	})
}

// Clear implements Ops.
func (m *Memory) Clear(ctx context.Context, collection string) error {
	return m.Update(ctx, func(tx Ops) error {
		return tx.Clear(ctx, collection)
	})
}

// Get implements Ops.
func (m *Memory) Get(ctx context.Context, collection string, key Key, dst any) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().Get(ctx, collection, key, dst)
}

// GetAll implements Ops.
func (m *Memory) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetAll(ctx, collection)
}

// GetAllByIndex implements Ops.
func (m *Memory) GetAllByIndex(ctx context.Context, collection, index string, value any) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetAllByIndex(ctx, collection, index, value)
}

// Count implements Ops.
func (m *Memory) Count(ctx context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().Count(ctx, collection)
}

// memTx reads from base and writes to lazily cloned collections in touched.
// A memTx with a nil touched map is read-only.
type memTx struct {
	base    map[string]*memCollection
	touched map[string]*memCollection
}

func (t *memTx) collection(op, name string, write bool) (*memCollection, error) {
	if c, ok := t.touched[name]; ok {
		return c, nil
	}
	c, ok := t.base[name]
	if !ok {
		return nil, newError(CodeUnknownCollection, op, name, nil, nil)
	}
	if !write {
		return c, nil
	}
	if t.touched == nil {
		return nil, fmt.Errorf("%s %s: read-only view", op, name)
	}
	clone := c.clone()
	t.touched[name] = clone
	return clone, nil
}

func keyString(k Key) string {
	return fmt.Sprintf("%T:%v", k, k)
}

func (t *memTx) write(op, collection string, record any, replace bool) (Key, error) {
	c, err := t.collection(op, collection, true)
	if err != nil {
		return nil, err
	}
	doc, err := encodeRecord(record)
	if err != nil {
		return nil, newError(CodeInvalidRecord, op, collection, nil, err)
	}
	key, ok, err := extractKey(c.def, doc)
	if err != nil {
		return nil, newError(CodeInvalidRecord, op, collection, nil, err)
	}
	if !ok {
		if !c.def.AutoIncrement {
			return nil, newError(CodeInvalidRecord, op, collection, nil, fmt.Errorf("missing key field %q", c.def.KeyPath))
		}
		key = c.seq + 1
		if doc, err = setKey(c.def, doc, key); err != nil {
			return nil, newError(CodeInvalidRecord, op, collection, nil, err)
		}
	}

	ks := keyString(key)
	if _, exists := c.records[ks]; exists && !replace {
		return nil, newError(CodeDuplicateKey, op, collection, key, fmt.Errorf("primary key exists"))
	}
	if err := c.checkUnique(ks, doc); err != nil {
		return nil, newError(CodeDuplicateKey, op, collection, key, err)
	}

	c.records[ks] = memRecord{key: key, doc: doc}
	if n, isInt := key.(int64); isInt && n > c.seq {
		c.seq = n
	}
	return key, nil
}

// checkUnique rejects doc if a different record shares a value on a unique index.
func (c *memCollection) checkUnique(ks string, doc []byte) error {
	for _, idx := range c.def.Indexes {
		if !idx.Unique {
			continue
		}
		v, ok := fieldValue(doc, idx.Field)
		if !ok {
			continue
		}
		for other, r := range c.records {
			if other == ks {
				continue
			}
			if ov, ok := fieldValue(r.doc, idx.Field); ok && ov == v {
				return fmt.Errorf("unique index %s violated by value %v", idx.Name, v)
			}
		}
	}
	return nil
}

func (t *memTx) Add(_ context.Context, collection string, record any) (Key, error) {
	return t.write("add", collection, record, false)
}

func (t *memTx) Put(_ context.Context, collection string, record any) (Key, error) {
	return t.write("put", collection, record, true)
}

func (t *memTx) Get(_ context.Context, collection string, key Key, dst any) (bool, error) {
	c, err := t.collection("get", collection, false)
	if err != nil {
		return false, err
	}
	k, err := normalizeKey(c.def, key)
	if err != nil {
		return false, newError(CodeInvalidRecord, "get", collection, key, err)
	}
	r, ok := c.records[keyString(k)]
	if !ok {
		return false, nil
	}
	if err := decodeInto(r.doc, dst); err != nil {
		return false, fmt.Errorf("get %s: %w", collection, err)
	}
	return true, nil
}

func (t *memTx) GetAll(_ context.Context, collection string) ([]json.RawMessage, error) {
	c, err := t.collection("getAll", collection, false)
	if err != nil {
		return nil, err
	}
	records := c.sorted()
	docs := make([]json.RawMessage, len(records))
	for i, r := range records {
		docs[i] = append(json.RawMessage(nil), r.doc...)
	}
	return docs, nil
}

func (t *memTx) GetAllByIndex(_ context.Context, collection, index string, value any) ([]json.RawMessage, error) {
	c, err := t.collection("getAllByIndex", collection, false)
	if err != nil {
		return nil, err
	}
	idx, ok := c.def.index(index)
	if !ok {
		return nil, newError(CodeUnknownCollection, "getAllByIndex", collection, nil, fmt.Errorf("no index %q", index))
	}
	want, ok := scalarValue(value)
	docs := []json.RawMessage{}
	if !ok {
		return docs, nil
	}
	for _, r := range c.sorted() {
		if v, ok := fieldValue(r.doc, idx.Field); ok && v == want {
			docs = append(docs, append(json.RawMessage(nil), r.doc...))
		}
	}
	return docs, nil
}

func (t *memTx) Count(_ context.Context, collection string) (int, error) {
	c, err := t.collection("count", collection, false)
	if err != nil {
		return 0, err
	}
	return len(c.records), nil
}

func (t *memTx) Delete(_ context.Context, collection string, key Key) error {
	c, err := t.collection("delete", collection, true)
	if err != nil {
		return err
	}
	k, err := normalizeKey(c.def, key)
	if err != nil {
		return newError(CodeInvalidRecord, "delete", collection, key, err)
	}
	delete(c.records, keyString(k))
	return nil
}

func (t *memTx) Clear(_ context.Context, collection string) error {
	c, err := t.collection("clear", collection, true)
	if err != nil {
		return err
	}
	c.records = make(map[string]memRecord)
	return nil
}
