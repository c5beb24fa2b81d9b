package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/schema"
	"github.com/roach88/alata/internal/store"
)

// Customers is the customer directory. Ids are assigned by the store.
type Customers struct {
	ops store.Ops
}

// Save inserts c when c.ID is zero, otherwise replaces the record with that
// id. It returns the stored customer with its id set. Phone and email are
// unique across customers; a clash fails with store.ErrDuplicateKey.
func (r *Customers) Save(ctx context.Context, c model.Customer) (model.Customer, error) {
	if err := c.Validate(); err != nil {
		return model.Customer{}, err
	}
	key, err := r.ops.Put(ctx, schema.Customers, c)
	if err != nil {
		return model.Customer{}, fmt.Errorf("save customer %q: %w", c.Name, err)
	}
	c.ID, _ = key.(int64)
	return c, nil
}

// Get returns the customer with id.
func (r *Customers) Get(ctx context.Context, id int64) (c model.Customer, found bool, err error) {
	found, err = r.ops.Get(ctx, schema.Customers, id, &c)
	if err != nil {
		return model.Customer{}, false, fmt.Errorf("get customer %d: %w", id, err)
	}
	return c, found, nil
}

// List returns every customer in id order.
func (r *Customers) List(ctx context.Context) ([]model.Customer, error) {
	return listAll[model.Customer](ctx, r.ops, schema.Customers)
}

// FindByPhone returns the first customer, in id order, whose phone equals phone.
// An empty phone matches nobody.
func (r *Customers) FindByPhone(ctx context.Context, phone string) (model.Customer, bool, error) {
	if strings.TrimSpace(phone) == "" {
		return model.Customer{}, false, nil
	}
	return r.find(ctx, func(c model.Customer) bool { return c.Phone == phone })
}

// FindByEmail returns the first customer, in id order, whose email equals email.
// An empty email matches nobody.
func (r *Customers) FindByEmail(ctx context.Context, email string) (model.Customer, bool, error) {
	if strings.TrimSpace(email) == "" {
		return model.Customer{}, false, nil
	}
	return r.find(ctx, func(c model.Customer) bool { return c.Email == email })
}

func (r *Customers) find(ctx context.Context, match func(model.Customer) bool) (model.Customer, bool, error) {
	customers, err := r.List(ctx)
	if err != nil {
		return model.Customer{}, false, err
	}
	for _, c := range customers {
		if match(c) {
			return c, true, nil
		}
	}
	return model.Customer{}, false, nil
}

// Categories is the category list. Ids are assigned by the store.
type Categories struct {
	ops store.Ops
}

// List returns every category in id order.
func (r *Categories) List(ctx context.Context) ([]model.Category, error) {
	return listAll[model.Category](ctx, r.ops, schema.Categories)
}

// Save inserts c when c.ID is zero, otherwise replaces it. Names are unique.
func (r *Categories) Save(ctx context.Context, c model.Category) (model.Category, error) {
	if err := c.Validate(); err != nil {
		return model.Category{}, err
	}
	key, err := r.ops.Put(ctx, schema.Categories, c)
	if err != nil {
		return model.Category{}, fmt.Errorf("save category %q: %w", c.Name, err)
	}
	c.ID, _ = key.(int64)
	return c, nil
}

// FindByName returns the category named name.
func (r *Categories) FindByName(ctx context.Context, name string) (model.Category, bool, error) {
	docs, err := r.ops.GetAllByIndex(ctx, schema.Categories, "name", name)
	if err != nil {
		return model.Category{}, false, fmt.Errorf("find category %q: %w", name, err)
	}
	found, err := decodeAll[model.Category](docs)
	if err != nil || len(found) == 0 {
		return model.Category{}, false, err
	}
	return found[0], true, nil
}
