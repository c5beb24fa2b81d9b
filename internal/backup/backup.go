// Package backup implements whole-database export and import, the one-way
// migration from the legacy flat store, and inventory log retention.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/repo"
	"github.com/roach88/alata/internal/schema"
	"github.com/roach88/alata/internal/store"
)

// ExportLogLimit caps the inventory logs written by Export.
const ExportLogLimit = 1000

// RetentionMonths is how long Optimize keeps inventory logs.
const RetentionMonths = 6

// Document is the export layout: one array per collection plus metadata.
// Records are carried as raw JSON so fields unknown to this version
// round-trip unchanged.
type Document struct {
	Products      []json.RawMessage `json:"products"`
	Transactions  []json.RawMessage `json:"transactions"`
	Customers     []json.RawMessage `json:"customers"`
	Categories    []json.RawMessage `json:"categories"`
	DailyStats    []json.RawMessage `json:"dailyStats"`
	Settings      []json.RawMessage `json:"settings"`
	InventoryLogs []json.RawMessage `json:"inventoryLogs"`
	ExportDate    string            `json:"exportDate"`
	Version       int               `json:"version"`
}

// Manager runs bulk operations against one engine.
type Manager struct {
	engine store.Engine
	repos  *repo.Repos
	clock  model.Clock
	logger *slog.Logger
}

// New returns a manager. repos must wrap engine. A nil logger uses slog.Default().
func New(engine store.Engine, repos *repo.Repos, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{engine: engine, repos: repos, clock: repos.Clock(), logger: logger}
}

// Export reads every collection into a Document. Inventory logs are the
// ExportLogLimit most recent, newest first.
func (m *Manager) Export(ctx context.Context) (*Document, error) {
	doc := &Document{
		ExportDate: m.clock.Now().UTC().Format(time.RFC3339Nano),
		Version:    schema.Version,
	}
	targets := map[string]*[]json.RawMessage{
		schema.Products:      &doc.Products,
		schema.Transactions:  &doc.Transactions,
		schema.Customers:     &doc.Customers,
		schema.Categories:    &doc.Categories,
		schema.DailyStats:    &doc.DailyStats,
		schema.Settings:      &doc.Settings,
		schema.InventoryLogs: &doc.InventoryLogs,
	}
	for _, name := range schema.All {
		records, err := m.engine.GetAll(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", name, err)
		}
		*targets[name] = records
	}

	logs, err := recentLogs(doc.InventoryLogs, ExportLogLimit)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", schema.InventoryLogs, err)
	}
	doc.InventoryLogs = logs
	return doc, nil
}

// ExportJSON renders Export as JSON indented by two spaces.
func (m *Manager) ExportJSON(ctx context.Context) ([]byte, error) {
	doc, err := m.Export(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return out, nil
}

// recentLogs orders raw inventory log records newest first and keeps limit.
func recentLogs(records []json.RawMessage, limit int) ([]json.RawMessage, error) {
	logs := make([]model.InventoryLog, len(records))
	byID := make(map[int64]json.RawMessage, len(records))
	for i, raw := range records {
		if err := json.Unmarshal(raw, &logs[i]); err != nil {
			return nil, err
		}
		byID[logs[i].ID] = raw
	}
	repo.SortLogsNewestFirst(logs)
	if len(logs) > limit {
		logs = logs[:limit]
	}
	out := make([]json.RawMessage, 0, len(logs))
	for _, l := range logs {
		out = append(out, byID[l.ID])
	}
	return out, nil
}

// Optimize deletes inventory logs older than RetentionMonths and returns how
// many were removed. Other collections are untouched.
func (m *Manager) Optimize(ctx context.Context) (int, error) {
	cutoff := m.clock.Now().AddDate(0, -RetentionMonths, 0).UnixMilli()
	removed, err := m.repos.Inventory.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	m.logger.Info("database optimized", "removed_logs", removed)
	return removed, nil
}
