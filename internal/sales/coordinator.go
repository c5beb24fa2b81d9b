// Package sales implements the checkout protocol: the cart, the atomic
// sale record that keeps transactions and daily statistics in step, the
// audited stock decrement per line, and the reporting queries over sales.
package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/repo"
)

// DefaultCustomer is the customer name recorded when none is given.
const DefaultCustomer = "Customer"

// Coordinator records sales across the transaction, stats, product and
// inventory log collections.
type Coordinator struct {
	repos  *repo.Repos
	clock  model.Clock
	ids    model.IDGenerator
	logger *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithIDGenerator sets the transaction id source.
func WithIDGenerator(ids model.IDGenerator) Option {
	return func(c *Coordinator) { c.ids = ids }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// NewCoordinator returns a coordinator using the repositories' clock.
func NewCoordinator(repos *repo.Repos, opts ...Option) *Coordinator {
	c := &Coordinator{
		repos:  repos,
		clock:  repos.Clock(),
		ids:    model.UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordSale persists t and folds it into today's DailyStats in a single
// transaction. It returns the updated stats.
func (c *Coordinator) RecordSale(ctx context.Context, t model.Transaction) (model.DailyStats, error) {
	if err := t.Validate(); err != nil {
		return model.DailyStats{}, err
	}

	day := model.DayOf(c.clock.Now())
	var stats model.DailyStats
	err := c.repos.Atomic(ctx, func(tx *repo.Repos) error {
		current, found, err := tx.DailyStats.Get(ctx, day)
		if err != nil {
			return err
		}
		if !found {
			current = model.NewDailyStats(day)
		}
		current.Apply(t)

		if err := tx.Transactions.Save(ctx, t); err != nil {
			return err
		}
		if err := tx.DailyStats.Save(ctx, current); err != nil {
			return err
		}
		stats = current
		return nil
	})
	if err != nil {
		return model.DailyStats{}, fmt.Errorf("record sale %s: %w", t.ID, err)
	}
	c.logger.Debug("sale recorded", "id", t.ID, "total", t.Total, "day", day)
	return stats, nil
}

// CheckoutRequest carries the payment and customer details of a checkout.
type CheckoutRequest struct {
	Customer        string
	CustomerAddress string
	ShopName        string
	PaymentMethod   model.PaymentMethod
	// CashAmount is the cash tendered. Ignored for transfers.
	CashAmount float64
	// Date is the sale date written on the transaction; zero means now.
	// Daily statistics are always keyed by the day the sale is recorded.
	Date time.Time
}

// Checkout turns the cart into a recorded sale.
//
// Nothing is written if the cart is empty, the payment is invalid, or a line
// exceeds current stock. Once the sale is recorded each line's stock is
// decremented independently; if any decrement fails the returned error is a
// *StockUpdateError and the returned transaction is still valid. The
// transaction counter advances and the cart is cleared in both cases.
func (c *Coordinator) Checkout(ctx context.Context, cart *Cart, req CheckoutRequest) (model.Transaction, error) {
	if cart.Empty() {
		return model.Transaction{}, ErrEmptyCart
	}
	total := cart.Total()

	var cash, change float64
	switch req.PaymentMethod {
	case model.PaymentCash:
		if req.CashAmount < total {
			return model.Transaction{}, fmt.Errorf("%w: total %v, tendered %v", ErrInsufficientCash, total, req.CashAmount)
		}
		cash, change = req.CashAmount, req.CashAmount-total
	case model.PaymentTransfer:
		cash, change = total, 0
	default:
		return model.Transaction{}, fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, req.PaymentMethod)
	}

	items := cart.Items()
	if err := c.checkStock(ctx, items); err != nil {
		return model.Transaction{}, err
	}

	counter, err := c.repos.Settings.Int(ctx, model.SettingTransactionCounter, 1)
	if err != nil {
		return model.Transaction{}, err
	}
	shop := strings.TrimSpace(req.ShopName)
	if shop == "" {
		if shop, err = c.repos.Settings.String(ctx, model.SettingBusinessName, ""); err != nil {
			return model.Transaction{}, err
		}
	}
	customer := strings.TrimSpace(req.Customer)
	if customer == "" {
		customer = DefaultCustomer
	}

	date := req.Date
	if date.IsZero() {
		date = c.clock.Now()
	}

	t := model.Transaction{
		ID:              c.ids.Generate(),
		ReceiptNo:       model.ReceiptNumber(counter),
		Date:            date.UTC(),
		Customer:        customer,
		CustomerAddress: strings.TrimSpace(req.CustomerAddress),
		ShopName:        shop,
		Items:           items,
		Total:           total,
		PaymentMethod:   req.PaymentMethod,
		CashAmount:      cash,
		Change:          change,
	}
	if _, err := c.RecordSale(ctx, t); err != nil {
		return model.Transaction{}, err
	}

	var stockErr *StockUpdateError
	for _, item := range items {
		if err := c.decrement(ctx, item); err != nil {
			c.logger.Error("stock update failed", "transaction", t.ID, "code", item.Code, "error", err)
			if stockErr == nil {
				stockErr = &StockUpdateError{TransactionID: t.ID}
			}
			stockErr.Failures = append(stockErr.Failures, LineFailure{Code: item.Code, Quantity: item.Quantity, Err: err})
		}
	}

	if err := c.repos.Settings.Set(ctx, model.SettingTransactionCounter, counter+1); err != nil {
		c.logger.Error("advance transaction counter", "error", err)
	}
	cart.Clear()
	c.logger.Info("checkout complete", "id", t.ID, "receipt", t.ReceiptNo, "total", t.Total, "items", t.ItemCount())

	if stockErr != nil {
		return t, stockErr
	}
	return t, nil
}

// checkStock verifies every line against the stored stock level.
func (c *Coordinator) checkStock(ctx context.Context, items []model.LineItem) error {
	for _, item := range items {
		p, found, err := c.repos.Products.Get(ctx, item.Code)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %s", repo.ErrProductNotFound, item.Code)
		}
		if item.Quantity > p.StockLevel {
			return &StockError{Code: item.Code, Requested: item.Quantity, Available: p.StockLevel}
		}
	}
	return nil
}

// decrement lowers the line's product stock by its quantity, reading the
// current level inside the same transaction.
func (c *Coordinator) decrement(ctx context.Context, item model.LineItem) error {
	return c.repos.Atomic(ctx, func(tx *repo.Repos) error {
		p, found, err := tx.Products.Get(ctx, item.Code)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %s", repo.ErrProductNotFound, item.Code)
		}
		if item.Quantity > p.StockLevel {
			return &StockError{Code: item.Code, Requested: item.Quantity, Available: p.StockLevel}
		}
		notes := fmt.Sprintf("Sold %d units", item.Quantity)
		_, _, err = tx.Products.UpdateStock(ctx, item.Code, p.StockLevel-item.Quantity, model.LogSale, notes)
		return err
	})
}
