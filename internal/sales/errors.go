package sales

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientStock means a requested quantity exceeds the stock on hand.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInsufficientCash means a cash payment does not cover the total.
	ErrInsufficientCash = errors.New("insufficient cash")

	// ErrUnknownPaymentMethod means a transaction carries a method other than
	// cash or transfer.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")

	// ErrEmptyCart means checkout was attempted with no items.
	ErrEmptyCart = errors.New("cart is empty")
)

// StockError reports a quantity that the product's stock cannot cover.
type StockError struct {
	Code      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Code, e.Requested, e.Available)
}

// Is matches ErrInsufficientStock.
func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// LineFailure is one line item whose stock update failed.
type LineFailure struct {
	Code     string
	Quantity int
	Err      error
}

// StockUpdateError is returned by Checkout when the sale was recorded but
// one or more stock decrements failed. Lines not listed were applied.
type StockUpdateError struct {
	TransactionID string
	Failures      []LineFailure
}

func (e *StockUpdateError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Code, f.Err))
	}
	return fmt.Sprintf("transaction %s recorded, %d stock update(s) failed: %s",
		e.TransactionID, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes each line's error to errors.Is and errors.As.
func (e *StockUpdateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
