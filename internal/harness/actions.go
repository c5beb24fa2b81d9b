package harness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/repo"
	"github.com/roach88/alata/internal/sales"
)

// actionFunc runs one scenario action and returns its completion result.
type actionFunc func(ctx context.Context, h *Harness, args argSet) (map[string]interface{}, error)

var actions map[string]actionFunc

func init() {
	actions = map[string]actionFunc{
		"Catalog.create":        catalogCreate,
		"Catalog.update":        catalogUpdate,
		"Catalog.delete":        catalogDelete,
		"Catalog.addCategory":   catalogAddCategory,
		"Inventory.updateStock": inventoryUpdateStock,
		"Cart.add":              cartAdd,
		"Cart.set":              cartSet,
		"Cart.remove":           cartRemove,
		"Cart.clear":            cartClear,
		"Sales.checkout":        salesCheckout,
		"Settings.set":          settingsSet,
		"Clock.advance":         clockAdvance,
		"Backup.optimize":       backupOptimize,
	}
}

// Actions returns the names of the supported actions.
func Actions() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	return names
}

func productArgs(args argSet) (model.Product, error) {
	if err := args.require("code"); err != nil {
		return model.Product{}, err
	}
	stock, err := args.int("stock")
	if err != nil {
		return model.Product{}, err
	}
	price, err := args.float("price")
	if err != nil {
		return model.Product{}, err
	}
	return model.Product{
		Code:       args.str("code"),
		Name:       args.str("name"),
		Category:   args.str("category"),
		Unit:       args.str("unit"),
		StockLevel: stock,
		UnitPrice:  price,
	}, nil
}

func productResult(p model.Product) map[string]interface{} {
	return map[string]interface{}{
		"code":       p.Code,
		"stockLevel": p.StockLevel,
		"status":     string(p.StockStatus()),
	}
}

func catalogCreate(ctx context.Context, h *Harness, args argSet) (map[string]interface{}, error) {
	p, err := productArgs(args)
	if err != nil {
		return nil, err
	}
	created, err := h.session.Catalog.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	return productResult(created), h.session.Reload(ctx)
}

func catalogUpdate(ctx context.Context, h *Harness, args argSet) (map[string]interface{}, error) {
	p, err := productArgs(args)
	if err != nil {
		return nil, err
	}
	updated, err := h.session.Catalog.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	return productResult(updated), h.session.Reload(ctx)
}

func catalogDelete(ctx context.Context, h *Harness, args argSet) (map[string]interface{}, error) {
	if err := args.require("code"); err != nil {
		return nil, err
	}
	code := args.str("code")
	if err := h.session.Repos.Products.Delete(ctx, code); err != nil {
		return nil, err
	}
	return map[string]interface{}{"code": code}, h.session.Reload(ctx)
}

func catalogAddCategory(ctx context.Context, h *Harness, args argSet) (map[string]interface{}, error) {
	if err := args.require("name"); err != nil {
		return nil, err
	}
	c, err := h.session.Catalog.AddCategory(ctx, args.str("name"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"id": c.ID, "name": c.Name}, nil
}

func inventoryUpdateStock(ctx context.Context, h *Harness, args argSet) (map[string]interface{}, error) {
	if err := args.require("code", "level"); err != nil {
		return nil, err
	}
	level, err := args.int("level")
	if err != nil {
		return nil, err
	}
	_, entry, err := h.session.Repos.Products.UpdateStock(ctx, args.str("code"), level,
		model.LogType(args.str("type")), args.str("notes"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"code":     entry.ProductCode,
		"oldStock": entry.OldStock,
		"newStock": entry.NewStock,
		"change":   entry.Change,
		"type":     string(entry.Type),
	}, h.session.Reload(ctx)
}

// cartProduct loads the product named by the code argument.
func cartProduct(ctx context.Context, h *Harness, args argSet) (model.Product, error) {
	if err := args.require("code"); err != nil {
		return model.Product{}, err
	}
	code := args.str("code")
	p, found, err := h.session.Repos.Products.Get(ctx, code)
	if err != nil {
		return model.Product{}, err
	}
	if !found {
		return model.Product{}, fmt.Errorf("%w: %s", repo.ErrProductNotFound, code)
	}
	return p, nil
}

func cartResult(c *sales.Cart) map[string]interface{} {
	return map[string]interface{}{
		"lines": len(c.Items()),
		"items": c.ItemCount(),
		"total": c.Total(),
	}
}

func cartAdd(ctx context.Context, h *Harness, args argSet) (map[string]interface{}, error) {
	p, err := cartProduct(ctx, h, args)
	if err != nil {
		return nil, err
	}
	qty, err := args.intDefault("quantity", 1)
	if err != nil {
		return nil, err
	}
	if err := h.cart.Add(p, qty); err != nil {
		return nil, err
	}
	return cartResult(h.cart), nil
}

func cartSet(ctx context.Context, h *Harness, args argSet) (map[string]interface{}, error) {
	p, err := cartProduct(ctx, h, args)
	if err != nil {
		return nil, err
	}
	qty, err := args.int("quantity")
	if err != nil {
		return nil, err
	}
	if err := h.cart.SetQuantity(p, qty); err != nil {
		return nil, err
	}
	return cartResult(h.cart), nil
}

func cartRemove(_ context.Context, h *Harness, args argSet) (map[string]interface{}, error) {
	if err := args.require("code"); err != nil {
		return nil, err
	}
	h.cart.Remove(args.str("code"))
	return cartResult(h.cart), nil
}

func cartClear(_ context.Context, h *Harness, _ argSet) (map[string]interface{}, error) {
	h.cart.Clear()
	return cartResult(h.cart), nil
}

func salesCheckout(ctx context.Context, h *Harness, args argSet) (map[string]interface{}, error) {
	cash, err := args.float("cash")
	if err != nil {
		return nil, err
	}
	method := model.PaymentMethod(args.str("payment"))
	if method == "" {
		method = model.PaymentCash
	}
	t, err := h.session.Checkout(ctx, h.cart, sales.CheckoutRequest{
		Customer:        args.str("customer"),
		CustomerAddress: args.str("address"),
		ShopName:        args.str("shop"),
		PaymentMethod:   method,
		CashAmount:      cash,
	})
	var stockErr *sales.StockUpdateError
	if err != nil && !errors.As(err, &stockErr) {
		return nil, err
	}
	return map[string]interface{}{
		"id":         t.ID,
		"receiptNo":  t.ReceiptNo,
		"day":        t.Day(),
		"customer":   t.Customer,
		"total":      t.Total,
		"cashAmount": t.CashAmount,
		"change":     t.Change,
		"items":      t.ItemCount(),
	}, err
}

func settingsSet(ctx context.Context, h *Harness, args argSet) (map[string]interface{}, error) {
	if err := args.require("key", "value"); err != nil {
		return nil, err
	}
	key := args.str("key")
	if err := h.session.Repos.Settings.Set(ctx, key, args["value"]); err != nil {
		return nil, err
	}
	return map[string]interface{}{"key": key}, h.session.Reload(ctx)
}

func clockAdvance(ctx context.Context, h *Harness, args argSet) (map[string]interface{}, error) {
	if err := args.require("duration"); err != nil {
		return nil, err
	}
	d, err := time.ParseDuration(args.str("duration"))
	if err != nil {
		return nil, fmt.Errorf("duration: %w", err)
	}
	now := h.clock.Advance(d)
	return map[string]interface{}{
		"now": now.Format(time.RFC3339),
		"day": model.DayOf(now),
	}, h.session.Reload(ctx)
}

func backupOptimize(ctx context.Context, h *Harness, _ argSet) (map[string]interface{}, error) {
	n, err := h.session.Backup.Optimize(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"pruned": n}, nil
}

// argSet is the decoded YAML argument map of a step.
type argSet map[string]interface{}

func (a argSet) require(keys ...string) error {
	for _, k := range keys {
		if _, ok := a[k]; !ok {
			return fmt.Errorf("%w: argument %q is required", model.ErrInvalidRecord, k)
		}
	}
	return nil
}

func (a argSet) str(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (a argSet) float(key string) (float64, error) {
	switch v := a[key].(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: argument %q: %v is not a number", model.ErrInvalidRecord, key, v)
	}
}

func (a argSet) int(key string) (int, error) {
	return a.intDefault(key, 0)
}

func (a argSet) intDefault(key string, def int) (int, error) {
	if _, ok := a[key]; !ok {
		return def, nil
	}
	f, err := a.float(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: argument %q: %v is not an integer", model.ErrInvalidRecord, key, f)
	}
	return int(f), nil
}
