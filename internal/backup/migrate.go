package backup

import (
	"context"
	"fmt"

	"github.com/roach88/alata/internal/legacy"
	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/schema"
)

// MigrationResult summarizes a legacy migration.
type MigrationResult struct {
	// Skipped is true when the structured store had no products, so the
	// migration did not run.
	Skipped      bool
	Products     int
	Transactions int
	Stats        bool
	Counter      bool
	// Failures counts records or steps that could not be migrated. Each
	// failure is logged.
	Failures int
}

// MigrateLegacy copies the four legacy keys into the structured collections.
// It runs only when the products collection is non-empty. Each step is
// independent: a failing record or key is logged and the rest continue.
func (m *Manager) MigrateLegacy(ctx context.Context, src *legacy.Store) (MigrationResult, error) {
	var result MigrationResult

	n, err := m.engine.Count(ctx, schema.Products)
	if err != nil {
		return result, fmt.Errorf("migrate legacy: %w", err)
	}
	if n == 0 {
		result.Skipped = true
		return result, nil
	}

	m.migrateProducts(ctx, src, &result)
	m.migrateHistory(ctx, src, &result)
	m.migrateStats(ctx, src, &result)
	m.migrateCounter(ctx, src, &result)

	m.logger.Info("legacy migration finished",
		"products", result.Products,
		"transactions", result.Transactions,
		"stats", result.Stats,
		"counter", result.Counter,
		"failures", result.Failures)
	return result, nil
}

func (m *Manager) fail(result *MigrationResult, step string, err error, attrs ...any) {
	result.Failures++
	m.logger.Warn("legacy migration step failed", append([]any{"step", step, "error", err}, attrs...)...)
}

func (m *Manager) migrateProducts(ctx context.Context, src *legacy.Store, result *MigrationResult) {
	products, ok, err := src.Products()
	if err != nil {
		m.fail(result, legacy.KeyProducts, err)
		return
	}
	if !ok {
		return
	}
	for _, p := range products {
		if err := m.repos.Products.Save(ctx, p); err != nil {
			m.fail(result, legacy.KeyProducts, err, "code", p.Code)
			continue
		}
		result.Products++
	}
}

func (m *Manager) migrateHistory(ctx context.Context, src *legacy.Store, result *MigrationResult) {
	history, ok, err := src.History()
	if err != nil {
		m.fail(result, legacy.KeyHistory, err)
		return
	}
	if !ok {
		return
	}
	for _, old := range history {
		t, err := old.ToModel()
		if err == nil {
			err = m.repos.Transactions.Save(ctx, t)
		}
		if err != nil {
			m.fail(result, legacy.KeyHistory, err, "id", old.ID)
			continue
		}
		result.Transactions++
	}
}

func (m *Manager) migrateStats(ctx context.Context, src *legacy.Store, result *MigrationResult) {
	stats, ok, err := src.Stats()
	if err == nil && ok {
		err = m.repos.DailyStats.Save(ctx, stats)
	}
	if err != nil {
		m.fail(result, legacy.KeyStats, err)
		return
	}
	result.Stats = ok
}

func (m *Manager) migrateCounter(ctx context.Context, src *legacy.Store, result *MigrationResult) {
	counter, ok, err := src.Counter()
	if err == nil && ok {
		err = m.repos.Settings.Set(ctx, model.SettingTransactionCounter, counter)
	}
	if err != nil {
		m.fail(result, legacy.KeyCounter, err)
		return
	}
	result.Counter = ok
}
