package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRecord is returned by Validate methods.
var ErrInvalidRecord = errors.New("invalid record")

// LowStockThreshold is the stock level at or below which a product is "low".
const LowStockThreshold = 5

// StockStatus classifies a product's stock level for display and filtering.
type StockStatus string

const (
	StockOut    StockStatus = "out"
	StockLow    StockStatus = "low"
	StockNormal StockStatus = "normal"
)

// Product is a catalog entry keyed by its user-assigned code.
type Product struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Unit       string  `json:"unit"`
	StockLevel int     `json:"stockLevel"`
	UnitPrice  float64 `json:"unitPrice"`
}

// Validate checks the fields every stored product must satisfy.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("%w: product code is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product %q: name is required", ErrInvalidRecord, p.Code)
	}
	if p.StockLevel < 0 {
		return fmt.Errorf("%w: product %q: stock level %d is negative", ErrInvalidRecord, p.Code, p.StockLevel)
	}
	if p.UnitPrice < 0 {
		return fmt.Errorf("%w: product %q: unit price %v is negative", ErrInvalidRecord, p.Code, p.UnitPrice)
	}
	return nil
}

// StockStatus reports whether the product is out of stock, low, or normal.
func (p Product) StockStatus() StockStatus {
	switch {
	case p.StockLevel <= 0:
		return StockOut
	case p.StockLevel <= LowStockThreshold:
		return StockLow
	default:
		return StockNormal
	}
}

// Category is a named product grouping. Products reference it by name.
type Category struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Validate checks that the category has a name.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrInvalidRecord)
	}
	return nil
}

// Customer is a known buyer. Phone and email are unique when present.
type Customer struct {
	ID      int64  `json:"id,omitempty"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// Validate checks that the customer has a name.
func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidRecord)
	}
	return nil
}
