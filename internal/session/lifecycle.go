package session

import (
	"context"
	"fmt"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/repo"
	"github.com/roach88/alata/internal/schema"
)

// Bootstrap prepares an opened database. An empty product collection means
// first run: the seed catalog, its categories, and the initial settings are
// written together. Otherwise the legacy store, if any, is migrated once;
// the legacyMigrated setting records that it ran.
func (s *Session) Bootstrap(ctx context.Context) error {
	n, err := s.engine.Count(ctx, schema.Products)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if n == 0 {
		products, err := schema.SeedProducts()
		if err != nil {
			return err
		}
		if err := s.install(ctx, products, 1); err != nil {
			return fmt.Errorf("bootstrap: seed: %w", err)
		}
		s.logger.Info("first run: seed catalog installed", "products", len(products))
		return nil
	}

	if s.legacy == nil {
		return nil
	}
	var migrated bool
	if _, err := s.Repos.Settings.Get(ctx, model.SettingLegacyMigrated, &migrated); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if migrated {
		return nil
	}
	if _, err := s.Backup.MigrateLegacy(ctx, s.legacy); err != nil {
		s.logger.Warn("legacy migration failed", "error", err)
		return nil
	}
	if err := s.Repos.Settings.Set(ctx, model.SettingLegacyMigrated, true); err != nil {
		s.logger.Warn("record legacy migration", "error", err)
	}
	return nil
}

// install writes products, their derived categories, the counter, and the
// business identity in one transaction.
func (s *Session) install(ctx context.Context, products []model.Product, counter int) error {
	return s.Repos.Atomic(ctx, func(tx *repo.Repos) error {
		for _, p := range products {
			if err := tx.Products.Save(ctx, p); err != nil {
				return err
			}
		}
		for _, c := range schema.SeedCategories(products) {
			if _, err := tx.Categories.Save(ctx, c); err != nil {
				return err
			}
		}
		settings := []struct {
			key   string
			value any
		}{
			{model.SettingTransactionCounter, counter},
			{model.SettingBusinessName, s.cfg.Business.Name},
			{model.SettingBusinessAddress, s.cfg.Business.Address},
			{model.SettingBusinessPhone, s.cfg.Business.Phone},
		}
		for _, kv := range settings {
			if err := tx.Settings.Set(ctx, kv.key, kv.value); err != nil {
				return err
			}
		}
		return nil
	})
}

// seedFallback fills the in-memory engine from the legacy store, falling
// back to the seed catalog when the legacy store holds no products.
func (s *Session) seedFallback(ctx context.Context) error {
	var (
		products []model.Product
		counter  = 1
	)
	if s.legacy != nil {
		if saved, ok, err := s.legacy.Products(); err != nil {
			s.logger.Warn("legacy products unreadable", "error", err)
		} else if ok {
			products = saved
		}
		if n, ok, err := s.legacy.Counter(); err != nil {
			s.logger.Warn("legacy counter unreadable", "error", err)
		} else if ok {
			counter = n
		}
	}
	if len(products) == 0 {
		seed, err := schema.SeedProducts()
		if err != nil {
			return err
		}
		products = seed
	}

	if err := s.install(ctx, products, counter); err != nil {
		return fmt.Errorf("seed fallback store: %w", err)
	}

	if s.legacy != nil {
		stats, ok, err := s.legacy.Stats()
		switch {
		case err != nil:
			s.logger.Warn("legacy stats unreadable", "error", err)
		case ok && stats.Date == model.DayOf(s.clock.Now()):
			if err := s.Repos.DailyStats.Save(ctx, stats); err != nil {
				s.logger.Warn("restore today's stats", "error", err)
			}
		}
	}
	return nil
}
