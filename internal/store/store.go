package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by WithDriver.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"

	// DriverPure is modernc.org/sqlite, for builds without cgo.
	DriverPure = "sqlite"
)

// SQLite is the persistent Engine: one table per collection holding JSON
// documents, with secondary indexes on json_extract expressions.
type SQLite struct {
	db      *sqlx.DB
	path    string
	driver  string
	version int
	cols    map[string]Collection
	closed  bool
}

type sqliteOptions struct {
	driver string
}

// Option configures OpenSQLite.
type Option func(*sqliteOptions)

// WithDriver selects the database/sql driver (DriverCGO or DriverPure).
func WithDriver(name string) Option {
	return func(o *sqliteOptions) {
		if name != "" {
			o.driver = name
		}
	}
}

// OpenSQLite creates or opens the database file at path and brings its schema
// to version, invoking upgrade once if the stored version is lower.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// Every failure is reported as ErrStorageUnavailable.
func OpenSQLite(ctx context.Context, path string, version int, upgrade UpgradeFunc, opts ...Option) (*SQLite, error) {
	o := sqliteOptions{driver: DriverCGO}
	for _, opt := range opts {
		opt(&o)
	}
	if version < 1 {
		return nil, newError(CodeStorageUnavailable, "open", "", nil, fmt.Errorf("version must be >= 1, got %d", version))
	}

	db, err := sqlx.Open(o.driver, path)
	if err != nil {
		return nil, newError(CodeStorageUnavailable, "open", "", nil, fmt.Errorf("failed to open database: %w", err))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, newError(CodeStorageUnavailable, "open", "", nil, fmt.Errorf("failed to connect to database: %w", err))
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, newError(CodeStorageUnavailable, "open", "", nil, fmt.Errorf("failed to apply pragmas: %w", err))
	}

	s := &SQLite{db: db, path: path, driver: o.driver, version: version}
	if err := s.runMigrations(ctx, version, upgrade); err != nil {
		db.Close()
		return nil, newError(CodeStorageUnavailable, "open", "", nil, err)
	}
	if err := s.loadCollections(ctx); err != nil {
		db.Close()
		return nil, newError(CodeStorageUnavailable, "open", "", nil, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil || s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// DB returns the underlying connection pool for direct queries.
// Use with caution - prefer Ops methods.
func (s *SQLite) DB() *sqlx.DB {
	return s.db
}

// Name implements Engine.
func (s *SQLite) Name() string { return "sqlite" }

// Version implements Engine.
func (s *SQLite) Version() int { return s.version }

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

// Collections implements Engine.
func (s *SQLite) Collections() []string {
	names := make([]string, 0, len(s.cols))
	for name := range s.cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// runMigrations compares PRAGMA user_version with version and runs upgrade
// inside one transaction if the database is older.
func (s *SQLite) runMigrations(ctx context.Context, version int, upgrade UpgradeFunc) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _collections (
			name TEXT PRIMARY KEY,
			def  TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("migrate: create catalog table: %w", err)
	}

	var stored int
	if err := tx.GetContext(ctx, &stored, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if stored > version {
		return fmt.Errorf("database version %d is newer than requested version %d", stored, version)
	}
	if stored == version {
		return tx.Commit()
	}

	if upgrade != nil {
		existing, err := readCollections(ctx, tx)
		if err != nil {
			return err
		}
		u := &sqliteUpgrader{ctx: ctx, tx: tx, existing: existing}
		if err := upgrade(u, stored, version); err != nil {
			return fmt.Errorf("upgrade %d -> %d: %w", stored, version, err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}
	return nil
}

func (s *SQLite) loadCollections(ctx context.Context) error {
	cols, err := readCollections(ctx, s.db)
	if err != nil {
		return err
	}
	s.cols = cols
	return nil
}

func readCollections(ctx context.Context, q sqlx.QueryerContext) (map[string]Collection, error) {
	var defs []string
	if err := sqlx.SelectContext(ctx, q, &defs, `SELECT def FROM _collections ORDER BY name`); err != nil {
		return nil, fmt.Errorf("read collections: %w", err)
	}
	cols := make(map[string]Collection, len(defs))
	for _, def := range defs {
		var c Collection
		if err := json.Unmarshal([]byte(def), &c); err != nil {
			return nil, fmt.Errorf("decode collection definition: %w", err)
		}
		cols[c.Name] = c
	}
	return cols, nil
}

// sqliteUpgrader applies additive DDL inside the migration transaction.
type sqliteUpgrader struct {
	ctx      context.Context
	tx       *sqlx.Tx
	existing map[string]Collection
}

func (u *sqliteUpgrader) HasCollection(name string) bool {
	_, ok := u.existing[name]
	return ok
}

func (u *sqliteUpgrader) CreateCollection(c Collection) error {
	if err := c.validate(); err != nil {
		return err
	}

	if prev, ok := u.existing[c.Name]; ok {
		if prev.KeyPath != c.KeyPath || prev.AutoIncrement != c.AutoIncrement {
			return fmt.Errorf("collection %s: primary key cannot change", c.Name)
		}
		c.Indexes = mergeIndexes(prev.Indexes, c.Indexes)
	}

	keyCol := "k TEXT PRIMARY KEY"
	if c.AutoIncrement {
		keyCol = "k INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s, doc TEXT NOT NULL)`, quoteIdent(c.Name), keyCol)
	if _, err := u.tx.ExecContext(u.ctx, ddl); err != nil {
		return fmt.Errorf("create collection %s: %w", c.Name, err)
	}

	for _, idx := range c.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		ddl := fmt.Sprintf(`CREATE %sINDEX IF NOT EXISTS %s ON %s (json_extract(doc, '$.%s'))`,
			unique, quoteIdent("idx_"+c.Name+"_"+idx.Name), quoteIdent(c.Name), idx.Field)
		if _, err := u.tx.ExecContext(u.ctx, ddl); err != nil {
			return fmt.Errorf("create index %s.%s: %w", c.Name, idx.Name, err)
		}
	}

	def, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode collection definition: %w", err)
	}
	if _, err := u.tx.ExecContext(u.ctx, `
		INSERT INTO _collections (name, def) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET def = excluded.def
	`, c.Name, string(def)); err != nil {
		return fmt.Errorf("record collection %s: %w", c.Name, err)
	}

	u.existing[c.Name] = c
	return nil
}

// quoteIdent quotes a validated identifier for SQL.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
