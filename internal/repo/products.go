package repo

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/schema"
	"github.com/roach88/alata/internal/store"
)

// ErrProductNotFound is returned when an operation requires an existing product.
var ErrProductNotFound = fmt.Errorf("product not found: %w", store.ErrRecordNotFound)

// Products is the product catalog repository.
type Products struct {
	ops   store.Ops
	run   runner
	clock model.Clock
}

// List returns every product ordered by code.
func (r *Products) List(ctx context.Context) ([]model.Product, error) {
	return listAll[model.Product](ctx, r.ops, schema.Products)
}

// Get returns the product with code. found is false if it does not exist.
func (r *Products) Get(ctx context.Context, code string) (p model.Product, found bool, err error) {
	found, err = r.ops.Get(ctx, schema.Products, code, &p)
	if err != nil {
		return model.Product{}, false, fmt.Errorf("get product %s: %w", code, err)
	}
	return p, found, nil
}

// Exists reports whether a product with exactly this code is stored.
func (r *Products) Exists(ctx context.Context, code string) (bool, error) {
	_, found, err := r.Get(ctx, code)
	return found, err
}

// Save inserts or replaces p. It does not check whether the code is new;
// create-only semantics are the caller's responsibility.
func (r *Products) Save(ctx context.Context, p model.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := r.ops.Put(ctx, schema.Products, p); err != nil {
		return fmt.Errorf("save product %s: %w", p.Code, err)
	}
	return nil
}

// Delete removes the product. Deleting a missing product is not an error.
func (r *Products) Delete(ctx context.Context, code string) error {
	if err := r.ops.Delete(ctx, schema.Products, code); err != nil {
		return fmt.Errorf("delete product %s: %w", code, err)
	}
	return nil
}

// FindByCategory returns products whose category equals category exactly.
func (r *Products) FindByCategory(ctx context.Context, category string) ([]model.Product, error) {
	docs, err := r.ops.GetAllByIndex(ctx, schema.Products, "category", category)
	if err != nil {
		return nil, fmt.Errorf("find products by category: %w", err)
	}
	return decodeAll[model.Product](docs)
}

// Search returns products whose name, code, or category contains term,
// ignoring case. An empty term matches every product.
func (r *Products) Search(ctx context.Context, term string) ([]model.Product, error) {
	products, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	lower := cases.Lower(language.Und)
	needle := lower.String(term)

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(lower.String(p.Name), needle) ||
			strings.Contains(lower.String(p.Code), needle) ||
			strings.Contains(lower.String(p.Category), needle) {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpdateStock sets the product's stock level to newLevel and appends an
// inventory log entry recording the change. Both writes happen in one
// transaction. An empty logType is recorded as manual.
func (r *Products) UpdateStock(ctx context.Context, code string, newLevel int, logType model.LogType, notes string) (model.Product, model.InventoryLog, error) {
	if logType == "" {
		logType = model.LogManual
	}
	if !logType.Valid() {
		return model.Product{}, model.InventoryLog{}, fmt.Errorf("%w: unknown log type %q", model.ErrInvalidRecord, logType)
	}
	if newLevel < 0 {
		return model.Product{}, model.InventoryLog{}, fmt.Errorf("%w: product %s: stock level %d is negative", model.ErrInvalidRecord, code, newLevel)
	}

	var (
		product model.Product
		entry   model.InventoryLog
	)
	err := r.run(ctx, func(tx store.Ops) error {
		found, err := tx.Get(ctx, schema.Products, code, &product)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrProductNotFound, code)
		}

		entry = model.NewInventoryLog(product, newLevel, logType, notes, r.clock.Now())
		product.StockLevel = newLevel

		if _, err := tx.Put(ctx, schema.Products, product); err != nil {
			return err
		}
		key, err := tx.Add(ctx, schema.InventoryLogs, entry)
		if err != nil {
			return err
		}
		entry.ID, _ = key.(int64)
		return nil
	})
	if err != nil {
		return model.Product{}, model.InventoryLog{}, fmt.Errorf("update stock %s: %w", code, err)
	}
	return product, entry, nil
}
