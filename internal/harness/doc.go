// Package harness runs point-of-sale scenarios against a fresh in-memory
// session and checks the resulting trace and stored records.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: checkout_cash
//	description: "Cash sale decrements stock and updates daily stats"
//	start: "2025-01-15T09:00:00Z"
//	products:
//	  - { code: B001, name: Benang Rajut, category: Benang, unit: Gulung, stock: 10, price: 25000 }
//	setup:
//	  - action: Cart.add
//	    args: { code: B001, quantity: 2 }
//	flow:
//	  - invoke: Sales.checkout
//	    args: { payment: cash, cash: 60000 }
//	    expect:
//	      case: Success
//	      result: { total: 50000, change: 10000 }
//	assertions:
//	  - type: trace_contains
//	    action: Sales.checkout
//	    args: { payment: cash }
//	  - type: final_state
//	    table: products
//	    where: { code: B001 }
//	    expect: { stockLevel: 8 }
//
// Products listed under products are stored before the session opens, so
// the built-in seed catalog is not installed. Without a products list the
// session starts from the seed catalog.
//
// # Actions
//
//   - Catalog.create, Catalog.update: code, name, category, unit, stock, price
//   - Catalog.delete: code
//   - Catalog.addCategory: name
//   - Inventory.updateStock: code, level, type, notes
//   - Cart.add, Cart.set: code, quantity
//   - Cart.remove: code
//   - Cart.clear
//   - Sales.checkout: payment, cash, customer, address, shop
//   - Settings.set: key, value
//   - Clock.advance: duration (Go duration syntax)
//   - Backup.optimize
//
// # Assertion Types
//
//   - trace_contains: an action appears in the trace with matching args
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - final_state: exactly one record of a collection matches where, and
//     its fields include expect
//
// # Deterministic Testing
//
// Every run uses a manual clock starting at the scenario's start time (or
// testutil.Epoch), sequential transaction ids, and a fresh memory engine, so
// the same scenario always yields the same trace.
package harness
