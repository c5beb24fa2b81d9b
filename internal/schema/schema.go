// Package schema defines the fixed collection layout of the point-of-sale
// database, its version-gated upgrade, the first-run seed catalog, and the
// CUE schema used to validate import documents.
package schema

import (
	"github.com/roach88/alata/internal/store"
)

// Name is the database name used for file naming and export metadata.
const Name = "AlataCraftPOS"

// Version is the current schema version. Bump it when adding collections or
// indexes and extend Upgrade accordingly.
const Version = 1

// Collection names.
const (
	Products      = "products"
	Transactions  = "transactions"
	Customers     = "customers"
	Categories    = "categories"
	DailyStats    = "dailyStats"
	Settings      = "settings"
	InventoryLogs = "inventoryLogs"
)

// All lists every collection in export/import order.
var All = []string{Products, Transactions, Customers, Categories, DailyStats, Settings, InventoryLogs}

// Collections returns the collection definitions for Version.
func Collections() []store.Collection {
	return []store.Collection{
		{
			Name:    Products,
			KeyPath: "code",
			Indexes: []store.Index{
				{Name: "name", Field: "name"},
				{Name: "category", Field: "category"},
				{Name: "price", Field: "unitPrice"},
			},
		},
		{
			Name:    Transactions,
			KeyPath: "id",
			Indexes: []store.Index{
				{Name: "date", Field: "date"},
				{Name: "customer", Field: "customer"},
				{Name: "total", Field: "total"},
				{Name: "paymentMethod", Field: "paymentMethod"},
			},
		},
		{
			Name:          Customers,
			KeyPath:       "id",
			AutoIncrement: true,
			Indexes: []store.Index{
				{Name: "name", Field: "name"},
				{Name: "phone", Field: "phone", Unique: true},
				{Name: "email", Field: "email", Unique: true},
			},
		},
		{
			Name:          Categories,
			KeyPath:       "id",
			AutoIncrement: true,
			Indexes: []store.Index{
				{Name: "name", Field: "name", Unique: true},
			},
		},
		{
			Name:    DailyStats,
			KeyPath: "date",
			Indexes: []store.Index{
				{Name: "totalSales", Field: "totalSales"},
				{Name: "totalTransactions", Field: "totalTransactions"},
			},
		},
		{
			Name:    Settings,
			KeyPath: "key",
		},
		{
			Name:          InventoryLogs,
			KeyPath:       "id",
			AutoIncrement: true,
			Indexes: []store.Index{
				{Name: "productCode", Field: "productCode"},
				{Name: "date", Field: "date"},
				{Name: "type", Field: "type"},
			},
		},
	}
}

// Upgrade creates every collection and index missing from the database.
// It is additive only and safe to run against any older version.
func Upgrade(u store.Upgrader, _, _ int) error {
	for _, c := range Collections() {
		if err := u.CreateCollection(c); err != nil {
			return err
		}
	}
	return nil
}
