package model

import (
	"encoding/json"
	"time"
)

// LogType says why a stock level changed.
type LogType string

const (
	LogManual     LogType = "manual"
	LogSale       LogType = "sale"
	LogAdjustment LogType = "adjustment"
)

// Valid reports whether t is a known log type.
func (t LogType) Valid() bool {
	switch t {
	case LogManual, LogSale, LogAdjustment:
		return true
	}
	return false
}

// InventoryLog is an append-only audit entry for one stock change.
type InventoryLog struct {
	ID          int64   `json:"id,omitempty"`
	ProductCode string  `json:"productCode"`
	ProductName string  `json:"productName"`
	OldStock    int     `json:"oldStock"`
	NewStock    int     `json:"newStock"`
	Change      int     `json:"change"`
	Type        LogType `json:"type"`
	Notes       string  `json:"notes"`
	Date        string  `json:"date"`
	Timestamp   int64   `json:"timestamp"`
}

// NewInventoryLog builds the audit entry for a stock change of p to newStock at now.
func NewInventoryLog(p Product, newStock int, typ LogType, notes string, now time.Time) InventoryLog {
	return InventoryLog{
		ProductCode: p.Code,
		ProductName: p.Name,
		OldStock:    p.StockLevel,
		NewStock:    newStock,
		Change:      newStock - p.StockLevel,
		Type:        typ,
		Notes:       notes,
		Date:        now.UTC().Format(time.RFC3339Nano),
		Timestamp:   now.UnixMilli(),
	}
}

// Setting is one process-wide key/value pair. Value holds arbitrary JSON.
type Setting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Well-known setting keys.
const (
	SettingTransactionCounter = "transactionCounter"
	SettingBusinessName       = "businessName"
	SettingBusinessAddress    = "businessAddress"
	SettingBusinessPhone      = "businessPhone"
	SettingLegacyMigrated     = "legacyMigrated"
)
