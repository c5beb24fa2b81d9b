package repo

import (
	"context"
	"fmt"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/schema"
	"github.com/roach88/alata/internal/store"
)

// Transactions stores completed sales keyed by transaction id.
type Transactions struct {
	ops store.Ops
}

// Save inserts or replaces t.
func (r *Transactions) Save(ctx context.Context, t model.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.Items == nil {
		t.Items = []model.LineItem{}
	}
	if _, err := r.ops.Put(ctx, schema.Transactions, t); err != nil {
		return fmt.Errorf("save transaction %s: %w", t.ID, err)
	}
	return nil
}

// Get returns the transaction with id. found is false if it does not exist.
func (r *Transactions) Get(ctx context.Context, id string) (t model.Transaction, found bool, err error) {
	found, err = r.ops.Get(ctx, schema.Transactions, id, &t)
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, found, nil
}

// List returns every stored transaction ordered by id.
func (r *Transactions) List(ctx context.Context) ([]model.Transaction, error) {
	return listAll[model.Transaction](ctx, r.ops, schema.Transactions)
}

// DailyStats stores per-day aggregates keyed by YYYY-MM-DD.
type DailyStats struct {
	ops store.Ops
}

// Get returns the aggregate for day. found is false if no sale was recorded.
func (r *DailyStats) Get(ctx context.Context, day string) (s model.DailyStats, found bool, err error) {
	found, err = r.ops.Get(ctx, schema.DailyStats, day, &s)
	if err != nil {
		return model.DailyStats{}, false, fmt.Errorf("get daily stats %s: %w", day, err)
	}
	return s, found, nil
}

// Save inserts or replaces s.
func (r *DailyStats) Save(ctx context.Context, s model.DailyStats) error {
	if _, err := model.ParseDay(s.Date); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidRecord, err)
	}
	if _, err := r.ops.Put(ctx, schema.DailyStats, s); err != nil {
		return fmt.Errorf("save daily stats %s: %w", s.Date, err)
	}
	return nil
}

// List returns every aggregate ordered by date.
func (r *DailyStats) List(ctx context.Context) ([]model.DailyStats, error) {
	return listAll[model.DailyStats](ctx, r.ops, schema.DailyStats)
}
