package repo

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/schema"
	"github.com/roach88/alata/internal/store"
)

// DefaultLogLimit bounds InventoryLogs.List when no limit is given.
const DefaultLogLimit = 100

// InventoryLogs is the append-only stock change history.
type InventoryLogs struct {
	ops store.Ops
	run runner
}

// Append stores entry under a new id and returns it with the id set.
func (r *InventoryLogs) Append(ctx context.Context, entry model.InventoryLog) (model.InventoryLog, error) {
	entry.ID = 0
	key, err := r.ops.Add(ctx, schema.InventoryLogs, entry)
	if err != nil {
		return model.InventoryLog{}, fmt.Errorf("append inventory log: %w", err)
	}
	entry.ID, _ = key.(int64)
	return entry, nil
}

// List returns up to limit entries, newest first. A non-empty productCode
// restricts the result to that product. limit <= 0 means DefaultLogLimit.
func (r *InventoryLogs) List(ctx context.Context, productCode string, limit int) ([]model.InventoryLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	logs, err := r.all(ctx, productCode)
	if err != nil {
		return nil, err
	}
	SortLogsNewestFirst(logs)
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// All returns every entry in id order.
func (r *InventoryLogs) All(ctx context.Context) ([]model.InventoryLog, error) {
	return r.all(ctx, "")
}

func (r *InventoryLogs) all(ctx context.Context, productCode string) ([]model.InventoryLog, error) {
	if productCode == "" {
		return listAll[model.InventoryLog](ctx, r.ops, schema.InventoryLogs)
	}
	docs, err := r.ops.GetAllByIndex(ctx, schema.InventoryLogs, "productCode", productCode)
	if err != nil {
		return nil, fmt.Errorf("list inventory logs: %w", err)
	}
	return decodeAll[model.InventoryLog](docs)
}

// Prune deletes every entry whose timestamp is before cutoff (Unix ms) and
// returns how many were removed.
func (r *InventoryLogs) Prune(ctx context.Context, cutoff int64) (int, error) {
	removed := 0
	err := r.run(ctx, func(tx store.Ops) error {
		logs, err := listAll[model.InventoryLog](ctx, tx, schema.InventoryLogs)
		if err != nil {
			return err
		}
		for _, l := range logs {
			if l.Timestamp >= cutoff {
				continue
			}
			if err := tx.Delete(ctx, schema.InventoryLogs, l.ID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune inventory logs: %w", err)
	}
	return removed, nil
}

// SortLogsNewestFirst orders logs by timestamp descending. Entries with equal
// timestamps keep the later id first.
func SortLogsNewestFirst(logs []model.InventoryLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].Timestamp != logs[j].Timestamp {
			return logs[i].Timestamp > logs[j].Timestamp
		}
		return logs[i].ID > logs[j].ID
	})
}
