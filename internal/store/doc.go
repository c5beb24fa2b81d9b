// Package store provides the embedded key-indexed document store that backs
// the point-of-sale core.
//
// The store exposes named collections of JSON documents:
//   - Each collection has a primary key taken from one top-level field (its key path)
//   - Collections declared AutoIncrement assign sequential integer keys on insert
//   - Secondary indexes are declared on top-level fields, unique or non-unique
//
// Two engines implement the same Engine contract:
//   - SQLite: one table per collection, indexes on json_extract expressions
//   - Memory: copy-on-write maps, used for fallback mode and tests
//
// # Contract
//
// Add fails with ErrDuplicateKey if the primary key exists. Put inserts or
// replaces by primary key. Get reports a miss as (false, nil), never as an
// error. Delete and Clear are idempotent. A unique index violation on Add or
// Put fails with ErrDuplicateKey.
//
// Every single operation is atomic. Update runs a function against a
// transaction-bound Ops and commits all of its writes or none of them.
//
// # Schema lifecycle
//
// Engines are opened with a version and an UpgradeFunc. The UpgradeFunc runs
// once per version increase and may only add collections and indexes. The
// SQLite engine stores the version in PRAGMA user_version and the collection
// definitions in the _collections table.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
