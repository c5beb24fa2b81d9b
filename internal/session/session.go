// Package session owns one open database for the life of the process: the
// engine, the repositories and services built on it, the legacy store, and
// the in-memory caches the host displays. When the database file cannot be
// opened the session runs in fallback mode on an in-memory engine.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/alata/internal/backup"
	"github.com/roach88/alata/internal/catalog"
	"github.com/roach88/alata/internal/config"
	"github.com/roach88/alata/internal/legacy"
	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/repo"
	"github.com/roach88/alata/internal/sales"
	"github.com/roach88/alata/internal/schema"
	"github.com/roach88/alata/internal/store"
)

// Mode tells whether the session runs on the database file or in memory.
type Mode string

const (
	ModeDatabase Mode = "database"
	ModeFallback Mode = "fallback"
)

// Session is the explicit owner of all persistence state.
type Session struct {
	cfg    config.Config
	mode   Mode
	engine store.Engine
	legacy *legacy.Store
	clock  model.Clock
	logger *slog.Logger

	Repos   *repo.Repos
	Catalog *catalog.Service
	Sales   *sales.Coordinator
	Backup  *backup.Manager

	mu            sync.RWMutex
	products      []model.Product
	counter       int
	counterStored bool
	today         model.DailyStats
}

type options struct {
	clock  model.Clock
	ids    model.IDGenerator
	logger *slog.Logger
	engine store.Engine
}

// Option configures Open.
type Option func(*options)

// WithClock sets the clock used for timestamps and "today".
func WithClock(c model.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator sets the transaction id source.
func WithIDGenerator(ids model.IDGenerator) Option {
	return func(o *options) { o.ids = ids }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEngine skips opening the database file and uses engine in database
// mode. The session takes ownership and closes it.
func WithEngine(e store.Engine) Option {
	return func(o *options) { o.engine = e }
}

// Open opens the database named by cfg, upgrading its schema, and brings it
// to a usable state: a fresh database is seeded, an existing one receives
// the legacy migration. If the file cannot be opened at all, Open returns a
// session in fallback mode instead of an error.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Session, error) {
	o := options{clock: model.SystemClock{}, ids: model.UUIDv7Generator{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{cfg: cfg, clock: o.clock, logger: o.logger}

	if cfg.Legacy.Path != "" {
		ls, err := legacy.Open(cfg.Legacy.Path)
		if err != nil {
			o.logger.Warn("legacy store unavailable", "path", cfg.Legacy.Path, "error", err)
		} else {
			s.legacy = ls
		}
	}

	engine := o.engine
	s.mode = ModeDatabase
	if engine == nil {
		sqlite, err := store.OpenSQLite(ctx, cfg.Database.Path, schema.Version, schema.Upgrade,
			store.WithDriver(cfg.Database.Driver))
		switch {
		case err == nil:
			engine = sqlite
		case store.IsStorageUnavailable(err):
			o.logger.Error("database unavailable, using fallback mode", "path", cfg.Database.Path, "error", err)
			mem, merr := store.OpenMemory(schema.Version, schema.Upgrade)
			if merr != nil {
				return nil, fmt.Errorf("open fallback store: %w", merr)
			}
			engine = mem
			s.mode = ModeFallback
		default:
			return nil, err
		}
	}

	s.engine = engine
	s.Repos = repo.New(engine, o.clock)
	s.Catalog = catalog.New(s.Repos, o.logger)
	s.Sales = sales.NewCoordinator(s.Repos, sales.WithIDGenerator(o.ids), sales.WithLogger(o.logger))
	s.Backup = backup.New(engine, s.Repos, o.logger)

	var err error
	if s.mode == ModeFallback {
		err = s.seedFallback(ctx)
	} else {
		err = s.Bootstrap(ctx)
	}
	if err != nil {
		engine.Close()
		return nil, err
	}

	if err := s.Reload(ctx); err != nil {
		engine.Close()
		return nil, err
	}
	o.logger.Info("session ready", "mode", s.mode, "engine", engine.Name(), "products", len(s.products))
	return s, nil
}

// Mode reports the session mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Engine returns the underlying store engine.
func (s *Session) Engine() store.Engine {
	return s.engine
}

// Legacy returns the legacy store, or nil if none is configured.
func (s *Session) Legacy() *legacy.Store {
	return s.legacy
}

// Close flushes and closes the engine.
func (s *Session) Close(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		s.logger.Warn("flush on close failed", "error", err)
	}
	return s.engine.Close()
}
