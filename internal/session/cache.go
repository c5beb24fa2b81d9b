package session

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/sales"
	"github.com/roach88/alata/internal/schema"
)

// Reload refreshes the caches from the engine.
func (s *Session) Reload(ctx context.Context) error {
	products, err := s.Repos.Products.List(ctx)
	if err != nil {
		return fmt.Errorf("reload products: %w", err)
	}
	counter := 1
	counterStored, err := s.Repos.Settings.Get(ctx, model.SettingTransactionCounter, &counter)
	if err != nil {
		return fmt.Errorf("reload counter: %w", err)
	}
	today, err := s.Sales.TodayStats(ctx)
	if err != nil {
		return fmt.Errorf("reload stats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
	s.counter = counter
	s.counterStored = counterStored
	s.today = today
	return nil
}

// Products returns the cached catalog.
func (s *Session) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Counter returns the cached transaction counter.
func (s *Session) Counter() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counter
}

// Today returns the cached statistics for the current day.
func (s *Session) Today() model.DailyStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.today
}

// Checkout runs a checkout and refreshes the caches. A refresh failure is
// logged; the checkout result is returned as is.
func (s *Session) Checkout(ctx context.Context, cart *sales.Cart, req sales.CheckoutRequest) (model.Transaction, error) {
	t, err := s.Sales.Checkout(ctx, cart, req)
	if rerr := s.Reload(ctx); rerr != nil {
		s.logger.Warn("refresh after checkout", "error", rerr)
	}
	return t, err
}

// Flush writes the session state out. In database mode the engine already
// holds every committed change and only a stored counter is rewritten; a
// database without one, such as after importing a document with no
// settings, is left as it is. In
// fallback mode the products, counter, and today's statistics are copied to
// the legacy store so they survive the process.
func (s *Session) Flush(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	counter, counterStored := s.counter, s.counterStored
	s.mu.RUnlock()

	if s.mode == ModeDatabase {
		if !counterStored {
			return nil
		}
		return s.Repos.Settings.Set(ctx, model.SettingTransactionCounter, counter)
	}
	if s.legacy == nil {
		return nil
	}
	if err := s.legacy.SetProducts(s.Products()); err != nil {
		return err
	}
	if err := s.legacy.SetCounter(counter); err != nil {
		return err
	}
	return s.legacy.SetStats(s.Today())
}

// RunAutosave flushes every interval until ctx is done, then flushes once
// more. Failures are logged and never stop the loop. interval <= 0 disables
// the periodic flush but keeps the final one.
func (s *Session) RunAutosave(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			if err := s.Flush(ctx); err != nil {
				s.logger.Warn("autosave failed", "error", err)
			} else {
				s.logger.Debug("autosave complete")
			}
		case <-ctx.Done():
			if err := s.Flush(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("exit flush failed", "error", err)
			}
			return
		}
	}
}

// Info describes the open database.
type Info struct {
	Mode    Mode           `json:"mode"`
	Engine  string         `json:"engine"`
	Name    string         `json:"name"`
	Version int            `json:"version"`
	Path    string         `json:"path,omitempty"`
	Counts  map[string]int `json:"counts"`
}

// Info reports the session mode, engine, schema version, and per-collection
// record counts.
func (s *Session) Info(ctx context.Context) (Info, error) {
	info := Info{
		Mode:    s.mode,
		Engine:  s.engine.Name(),
		Name:    schema.Name,
		Version: s.engine.Version(),
		Counts:  make(map[string]int, len(schema.All)),
	}
	if s.mode == ModeDatabase {
		info.Path = s.cfg.Database.Path
	}
	for _, name := range schema.All {
		n, err := s.engine.Count(ctx, name)
		if err != nil {
			return Info{}, fmt.Errorf("info: %w", err)
		}
		info.Counts[name] = n
	}
	return info, nil
}
