package backup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/alata/internal/schema"
)

// ImportResult counts the records written per collection.
type ImportResult struct {
	Counts map[string]int
}

// Import replaces the database contents with data.
//
// The document is parsed and validated against the export schema first and
// nothing changes if either step fails: text that is not JSON returns
// ErrInvalidImportFormat, JSON of the wrong shape ErrImportSchemaMismatch.
// Otherwise all seven collections are cleared and each collection present in
// the document is repopulated; absent collections stay empty. The writes are
// not one transaction: a failure after clearing starts returns a
// *PartialImportError describing how far the import got.
func (m *Manager) Import(ctx context.Context, data []byte) (ImportResult, error) {
	if !json.Valid(data) {
		return ImportResult{}, fmt.Errorf("%w: document is not JSON", ErrInvalidImportFormat)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrImportSchemaMismatch, err)
	}
	if err := schema.ValidateExport(data); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrImportSchemaMismatch, err)
	}

	arrays := make(map[string][]json.RawMessage, len(schema.All))
	for _, name := range schema.All {
		raw, ok := top[name]
		if !ok || string(raw) == "null" {
			continue
		}
		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return ImportResult{}, fmt.Errorf("%w: %s: %v", ErrImportSchemaMismatch, name, err)
		}
		arrays[name] = records
	}

	partial := &PartialImportError{}
	for _, name := range schema.All {
		if err := m.engine.Clear(ctx, name); err != nil {
			partial.Err = fmt.Errorf("clear %s: %w", name, err)
			return ImportResult{}, partial
		}
		partial.Cleared = append(partial.Cleared, name)
	}

	result := ImportResult{Counts: make(map[string]int, len(arrays))}
	for _, name := range schema.All {
		records, ok := arrays[name]
		if !ok {
			continue
		}
		for i, record := range records {
			var err error
			if name == schema.InventoryLogs {
				_, err = m.engine.Add(ctx, name, record)
			} else {
				_, err = m.engine.Put(ctx, name, record)
			}
			if err != nil {
				partial.Failed = name
				partial.Record = i + 1
				partial.Err = err
				m.logger.Error("import failed partway", "collection", name, "record", i+1, "error", err)
				return result, partial
			}
		}
		result.Counts[name] = len(records)
		partial.Restored = append(partial.Restored, name)
	}

	m.logger.Info("import complete", "counts", result.Counts)
	return result, nil
}
