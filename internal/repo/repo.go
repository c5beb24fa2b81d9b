// Package repo maps domain records onto store collections.
//
// Each repository wraps store.Ops. Repositories built by New run multi-step
// operations (such as Products.UpdateStock) inside one engine transaction;
// repositories obtained from Repos.Atomic share the caller's transaction.
package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/store"
)

// runner executes fn atomically against store.Ops.
type runner func(ctx context.Context, fn func(tx store.Ops) error) error

// Repos bundles the repositories of one engine (or one transaction).
type Repos struct {
	run   runner
	clock model.Clock

	Products     *Products
	Transactions *Transactions
	DailyStats   *DailyStats
	Customers    *Customers
	Categories   *Categories
	Settings     *Settings
	Inventory    *InventoryLogs
}

// New returns repositories over engine. A nil clock uses the system clock.
func New(engine store.Engine, clock model.Clock) *Repos {
	if clock == nil {
		clock = model.SystemClock{}
	}
	return build(engine, engine.Update, clock)
}

func build(ops store.Ops, run runner, clock model.Clock) *Repos {
	r := &Repos{run: run, clock: clock}
	r.Inventory = &InventoryLogs{ops: ops, run: run}
	r.Products = &Products{ops: ops, run: run, clock: clock}
	r.Transactions = &Transactions{ops: ops}
	r.DailyStats = &DailyStats{ops: ops}
	r.Customers = &Customers{ops: ops}
	r.Categories = &Categories{ops: ops}
	r.Settings = &Settings{ops: ops}
	return r
}

// Atomic runs fn with repositories bound to a single transaction. Calling
// Atomic on repositories that are already transaction-bound reuses the
// enclosing transaction.
func (r *Repos) Atomic(ctx context.Context, fn func(tx *Repos) error) error {
	return r.run(ctx, func(tx store.Ops) error {
		inTx := func(_ context.Context, fn func(store.Ops) error) error { return fn(tx) }
		return fn(build(tx, inTx, r.clock))
	})
}

// Clock returns the clock used for timestamps.
func (r *Repos) Clock() model.Clock {
	return r.clock
}

// decodeAll unmarshals every document into T.
func decodeAll[T any](docs []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// listAll reads and decodes a whole collection.
func listAll[T any](ctx context.Context, ops store.Ops, collection string) ([]T, error) {
	docs, err := ops.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](docs)
}
