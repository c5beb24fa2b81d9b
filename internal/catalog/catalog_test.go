package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/repo"
	"github.com/roach88/alata/internal/testutil"
)

func newService(t *testing.T) (*Service, *repo.Repos) {
	t.Helper()
	ctx := context.Background()
	repos := repo.New(testutil.MemoryStore(t), testutil.NewClock(testutil.Epoch))
	svc := New(repos, nil)

	_, err := svc.AddCategory(ctx, "Alat Tulis")
	require.NoError(t, err)
	require.NoError(t, repos.Products.Save(ctx, model.Product{
		Code: "PRD001", Name: "Pensil", Category: "Alat Tulis", Unit: "Pcs", StockLevel: 15, UnitPrice: 30000,
	}))
	return svc, repos
}

func TestExistsByCode_IgnoresCase(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, code := range []string{"PRD001", "prd001", " Prd001 "} {
		exists, err := svc.ExistsByCode(ctx, code)
		require.NoError(t, err)
		assert.True(t, exists, code)
	}

	exists, err := svc.ExistsByCode(ctx, "PRD002")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreate(t *testing.T) {
	svc, repos := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, model.Product{Code: " PRD002 ", Name: "Penghapus", Category: "Alat Tulis", Unit: "Pcs", StockLevel: 8, UnitPrice: 2000})
	require.NoError(t, err)
	assert.Equal(t, "PRD002", p.Code)

	got, found, err := repos.Products.Get(ctx, "PRD002")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, p, got)
}

func TestCreate_Rejects(t *testing.T) {
	valid := model.Product{Code: "PRD009", Name: "Spidol", Category: "Alat Tulis", Unit: "Pcs", StockLevel: 1, UnitPrice: 1000}

	tests := []struct {
		name   string
		mutate func(*model.Product)
		want   error
	}{
		{"duplicate code other case", func(p *model.Product) { p.Code = "prd001" }, ErrProductExists},
		{"unknown category", func(p *model.Product) { p.Category = "Makanan" }, ErrUnknownCategory},
		{"missing unit", func(p *model.Product) { p.Unit = "" }, model.ErrInvalidRecord},
		{"zero price", func(p *model.Product) { p.UnitPrice = 0 }, model.ErrInvalidRecord},
		{"negative stock", func(p *model.Product) { p.StockLevel = -2 }, model.ErrInvalidRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repos := newService(t)
			p := valid
			tt.mutate(&p)

			_, err := svc.Create(context.Background(), p)
			require.ErrorIs(t, err, tt.want)

			all, err := repos.Products.List(context.Background())
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestUpdate_AuditsStockChange(t *testing.T) {
	svc, repos := newService(t)
	ctx := context.Background()

	p, err := svc.Update(ctx, model.Product{Code: "PRD001", Name: "Pensil 2B", Category: "Alat Tulis", Unit: "Pcs", StockLevel: 20, UnitPrice: 32000})
	require.NoError(t, err)
	assert.Equal(t, "Pensil 2B", p.Name)
	assert.Equal(t, 20, p.StockLevel)

	logs, err := repos.Inventory.List(ctx, "PRD001", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.LogAdjustment, logs[0].Type)
	assert.Equal(t, 5, logs[0].Change)
	assert.Equal(t, "Pensil 2B", logs[0].ProductName)
}

func TestUpdate_NoStockChangeNoLog(t *testing.T) {
	svc, repos := newService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, model.Product{Code: "PRD001", Name: "Pensil", Category: "Alat Tulis", Unit: "Box", StockLevel: 15, UnitPrice: 30000})
	require.NoError(t, err)

	logs, err := repos.Inventory.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestUpdate_MissingProduct(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Update(context.Background(), model.Product{Code: "X", Name: "X", Category: "Alat Tulis", Unit: "Pcs"})
	assert.ErrorIs(t, err, repo.ErrProductNotFound)
}

func TestListByStatus(t *testing.T) {
	svc, repos := newService(t)
	ctx := context.Background()
	require.NoError(t, repos.Products.Save(ctx, model.Product{Code: "L", Name: "Low", Category: "Alat Tulis", Unit: "Pcs", StockLevel: 5, UnitPrice: 1}))
	require.NoError(t, repos.Products.Save(ctx, model.Product{Code: "O", Name: "Out", Category: "Alat Tulis", Unit: "Pcs", StockLevel: 0, UnitPrice: 1}))

	for status, want := range map[model.StockStatus]string{
		model.StockLow:    "L",
		model.StockOut:    "O",
		model.StockNormal: "PRD001",
	} {
		got, err := svc.ListByStatus(ctx, status)
		require.NoError(t, err)
		require.Len(t, got, 1, status)
		assert.Equal(t, want, got[0].Code)
	}
}

func TestAddCategory(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	c, err := svc.AddCategory(ctx, "Kertas")
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.ID)

	_, err = svc.AddCategory(ctx, "Kertas")
	assert.ErrorIs(t, err, ErrCategoryExists)

	_, err = svc.AddCategory(ctx, "  ")
	assert.ErrorIs(t, err, model.ErrInvalidRecord)
}
