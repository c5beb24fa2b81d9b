package sales

import (
	"github.com/roach88/alata/internal/model"
)

// Cart is an in-progress order. It is not persisted and not safe for
// concurrent use.
type Cart struct {
	items []model.LineItem
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// Add puts qty more units of p in the cart. The resulting line quantity may
// not exceed p.StockLevel.
func (c *Cart) Add(p model.Product, qty int) error {
	if qty <= 0 {
		return nil
	}
	current := 0
	if i := c.index(p.Code); i >= 0 {
		current = c.items[i].Quantity
	}
	return c.SetQuantity(p, current+qty)
}

// SetQuantity sets the line for p to qty units. qty <= 0 removes the line.
func (c *Cart) SetQuantity(p model.Product, qty int) error {
	if qty <= 0 {
		c.Remove(p.Code)
		return nil
	}
	if qty > p.StockLevel {
		return &StockError{Code: p.Code, Requested: qty, Available: p.StockLevel}
	}

	line := model.LineItem{
		Code:      p.Code,
		Name:      p.Name,
		Category:  p.Category,
		Unit:      p.Unit,
		Quantity:  qty,
		UnitPrice: p.UnitPrice,
		Total:     float64(qty) * p.UnitPrice,
	}
	if i := c.index(p.Code); i >= 0 {
		c.items[i] = line
	} else {
		c.items = append(c.items, line)
	}
	return nil
}

// Remove drops the line for code, if any.
func (c *Cart) Remove(code string) {
	if i := c.index(code); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the lines in the order they were first added.
func (c *Cart) Items() []model.LineItem {
	out := make([]model.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Total is the sum of line totals.
func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.items {
		total += item.Total
	}
	return total
}

// ItemCount is the sum of line quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

func (c *Cart) index(code string) int {
	for i, item := range c.items {
		if item.Code == code {
			return i
		}
	}
	return -1
}
