package session

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/alata/internal/config"
	"github.com/roach88/alata/internal/legacy"
	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/sales"
	"github.com/roach88/alata/internal/schema"
	"github.com/roach88/alata/internal/store"
	"github.com/roach88/alata/internal/testutil"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "pos.db")
	cfg.Legacy.Path = filepath.Join(dir, "legacy.json")
	return cfg
}

func open(t *testing.T, cfg config.Config, clock *testutil.Clock) *Session {
	t.Helper()
	s, err := Open(context.Background(), cfg,
		WithClock(clock),
		WithIDGenerator(testutil.NewSequenceIDs("")),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	require.NoError(t, err)
	return s
}

func TestOpen_FirstRunSeeds(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	s := open(t, cfg, testutil.NewClock(testutil.Epoch))
	defer s.Close(ctx)

	assert.Equal(t, ModeDatabase, s.Mode())
	assert.Len(t, s.Products(), 13)
	assert.Equal(t, 1, s.Counter())

	categories, err := s.Repos.Categories.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, categories)
	assert.Equal(t, int64(1), categories[0].ID)

	name, err := s.Repos.Settings.String(ctx, model.SettingBusinessName, "")
	require.NoError(t, err)
	assert.Equal(t, "Alata Craft", name)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	clock := testutil.NewClock(testutil.Epoch)

	s := open(t, cfg, clock)
	require.NoError(t, s.Repos.Products.Delete(ctx, "PRD013"))
	require.NoError(t, s.Close(ctx))

	s = open(t, cfg, clock)
	defer s.Close(ctx)
	assert.Len(t, s.Products(), 12)
}

func TestOpen_MigratesLegacyOnce(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	clock := testutil.NewClock(testutil.Epoch)

	// First open seeds; the legacy store is written afterwards, as an
	// older installation would have left it.
	s := open(t, cfg, clock)
	require.NoError(t, s.Close(ctx))

	ls, err := legacy.Open(cfg.Legacy.Path)
	require.NoError(t, err)
	require.NoError(t, ls.SetCounter(42))

	s = open(t, cfg, clock)
	assert.Equal(t, 42, s.Counter())
	require.NoError(t, s.Repos.Settings.Set(ctx, model.SettingTransactionCounter, 43))
	require.NoError(t, s.Close(ctx))

	s = open(t, cfg, clock)
	defer s.Close(ctx)
	assert.Equal(t, 43, s.Counter())
}

func TestOpen_FallbackSeedsFromCatalog(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Database.Path = filepath.Join(t.TempDir(), "missing", "dir", "pos.db")

	s := open(t, cfg, testutil.NewClock(testutil.Epoch))
	defer s.Close(ctx)

	assert.Equal(t, ModeFallback, s.Mode())
	assert.Equal(t, "memory", s.Engine().Name())
	assert.Len(t, s.Products(), 13)

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeFallback, info.Mode)
	assert.Empty(t, info.Path)
	assert.Equal(t, 13, info.Counts[schema.Products])
}

func TestOpen_FallbackRestoresFromLegacy(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Database.Path = filepath.Join(t.TempDir(), "missing", "pos.db")
	clock := testutil.NewClock(testutil.Epoch)

	ls, err := legacy.Open(cfg.Legacy.Path)
	require.NoError(t, err)
	require.NoError(t, ls.SetProducts([]model.Product{
		{Code: "X1", Name: "Tas Anyaman", Category: "Kerajinan", Unit: "pcs", StockLevel: 3, UnitPrice: 150000},
	}))
	require.NoError(t, ls.SetCounter(8))
	require.NoError(t, ls.SetStats(model.DailyStats{Date: "2025-01-15", TotalSales: 150000, TotalTransactions: 1, TotalItems: 1, AverageTransaction: 150000}))

	s := open(t, cfg, clock)
	defer s.Close(ctx)

	require.Len(t, s.Products(), 1)
	assert.Equal(t, 8, s.Counter())
	assert.Equal(t, 150000.0, s.Today().TotalSales)

	categories, err := s.Repos.Categories.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Category{{ID: 1, Name: "Kerajinan"}}, categories)
}

func TestOpen_FallbackIgnoresStaleStats(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Database.Path = filepath.Join(t.TempDir(), "missing", "pos.db")

	ls, err := legacy.Open(cfg.Legacy.Path)
	require.NoError(t, err)
	require.NoError(t, ls.SetStats(model.DailyStats{Date: "2025-01-14", TotalSales: 1, TotalTransactions: 1}))

	s := open(t, cfg, testutil.NewClock(testutil.Epoch))
	defer s.Close(ctx)
	assert.Zero(t, s.Today().TotalTransactions)
}

func TestFlush_FallbackWritesLegacy(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Database.Path = filepath.Join(t.TempDir(), "missing", "pos.db")

	s := open(t, cfg, testutil.NewClock(testutil.Epoch))

	p := s.Products()[0]
	cart := sales.NewCart()
	require.NoError(t, cart.Add(p, 1))
	_, err := s.Checkout(ctx, cart, sales.CheckoutRequest{PaymentMethod: model.PaymentTransfer})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Counter())
	assert.Equal(t, 1, s.Today().TotalTransactions)

	require.NoError(t, s.Close(ctx))

	ls, err := legacy.Open(cfg.Legacy.Path)
	require.NoError(t, err)
	counter, ok, err := ls.Counter()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, counter)

	products, _, err := ls.Products()
	require.NoError(t, err)
	require.Len(t, products, 13)
	assert.Equal(t, p.StockLevel-1, products[0].StockLevel)

	stats, ok, err := ls.Stats()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p.UnitPrice, stats.TotalSales)
}

func TestCheckout_RefreshesCaches(t *testing.T) {
	ctx := context.Background()
	s := open(t, testConfig(t), testutil.NewClock(testutil.Epoch))
	defer s.Close(ctx)

	p := s.Products()[0]
	cart := sales.NewCart()
	require.NoError(t, cart.Add(p, 2))
	trx, err := s.Checkout(ctx, cart, sales.CheckoutRequest{PaymentMethod: model.PaymentCash, CashAmount: 10_000_000})
	require.NoError(t, err)
	assert.Equal(t, "001", trx.ReceiptNo)

	assert.Equal(t, p.StockLevel-2, s.Products()[0].StockLevel)
	assert.Equal(t, 2, s.Counter())
	assert.Equal(t, 2, s.Today().TotalItems)
}

func TestInfo_DatabaseMode(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	s := open(t, cfg, testutil.NewClock(testutil.Epoch))
	defer s.Close(ctx)

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeDatabase, info.Mode)
	assert.Equal(t, "sqlite", info.Engine)
	assert.Equal(t, schema.Name, info.Name)
	assert.Equal(t, schema.Version, info.Version)
	assert.Equal(t, cfg.Database.Path, info.Path)
	assert.Equal(t, 4, info.Counts[schema.Settings])
	assert.Len(t, info.Counts, len(schema.All))
}

func TestRunAutosave_FlushesOnExit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Path = filepath.Join(t.TempDir(), "missing", "pos.db")
	s := open(t, cfg, testutil.NewClock(testutil.Epoch))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunAutosave(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("autosave did not stop")
	}

	ls, err := legacy.Open(cfg.Legacy.Path)
	require.NoError(t, err)
	assert.Contains(t, ls.Keys(), legacy.KeyProducts)
}

func TestClose_KeepsImportWithoutSettings(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	s := open(t, cfg, testutil.NewClock(testutil.Epoch))

	data, err := s.Backup.ExportJSON(ctx)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	delete(doc, schema.Settings)
	data, err = json.Marshal(doc)
	require.NoError(t, err)

	_, err = s.Backup.Import(ctx, data)
	require.NoError(t, err)
	require.NoError(t, s.Reload(ctx))

	require.NoError(t, s.Flush(ctx))
	settings, err := s.Repos.Settings.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings)
	require.NoError(t, s.Close(ctx))

	db, err := store.OpenSQLite(ctx, cfg.Database.Path, schema.Version, schema.Upgrade)
	require.NoError(t, err)
	defer db.Close()
	n, err := db.Count(ctx, schema.Settings)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFlush_RewritesStoredCounter(t *testing.T) {
	ctx := context.Background()
	s := open(t, testConfig(t), testutil.NewClock(testutil.Epoch))
	defer s.Close(ctx)

	require.NoError(t, s.Repos.Settings.Set(ctx, model.SettingTransactionCounter, 9))
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 9, s.Counter())

	n, err := s.Repos.Settings.Int(ctx, model.SettingTransactionCounter, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestWithEngine(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	s := open(t, cfg, testutil.NewClock(testutil.Epoch))
	require.NoError(t, s.Close(ctx))

	mem := testutil.MemoryStore(t)
	s, err := Open(ctx, cfg, WithEngine(mem), WithClock(testutil.NewClock(testutil.Epoch)))
	require.NoError(t, err)
	assert.Equal(t, ModeDatabase, s.Mode())
	assert.Equal(t, "memory", s.Engine().Name())
	assert.Len(t, s.Products(), 13)
}
