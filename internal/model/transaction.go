package model

import (
	"fmt"
	"strings"
	"time"
)

// PaymentMethod is how a transaction was paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentTransfer
}

// LineItem is one product line of a finalized cart.
type LineItem struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Category  string  `json:"category,omitempty"`
	Unit      string  `json:"unit,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Total     float64 `json:"total"`
}

// Transaction is a persisted sale. It is immutable once written, except by a
// full overwrite under the same id.
type Transaction struct {
	ID              string        `json:"id"`
	ReceiptNo       string        `json:"receiptNo,omitempty"`
	Date            time.Time     `json:"date"`
	Customer        string        `json:"customer"`
	CustomerAddress string        `json:"customerAddress,omitempty"`
	ShopName        string        `json:"shopName,omitempty"`
	Items           []LineItem    `json:"items"`
	Total           float64       `json:"total"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	CashAmount      float64       `json:"cashAmount"`
	Change          float64       `json:"change"`
}

// ItemCount returns the sum of line item quantities.
func (t Transaction) ItemCount() int {
	n := 0
	for _, item := range t.Items {
		n += item.Quantity
	}
	return n
}

// Day returns the calendar day the transaction is dated on.
func (t Transaction) Day() string {
	return DayOf(t.Date)
}

// Validate checks the fields a transaction must carry before it is recorded.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: transaction id is required", ErrInvalidRecord)
	}
	if !t.PaymentMethod.Valid() {
		return fmt.Errorf("%w: transaction %s: unknown payment method %q", ErrInvalidRecord, t.ID, t.PaymentMethod)
	}
	for i, item := range t.Items {
		if item.Code == "" {
			return fmt.Errorf("%w: transaction %s: item %d has no product code", ErrInvalidRecord, t.ID, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: transaction %s: item %s has quantity %d", ErrInvalidRecord, t.ID, item.Code, item.Quantity)
		}
	}
	return nil
}

// DailyStats aggregates one calendar day of sales.
type DailyStats struct {
	Date               string  `json:"date"`
	TotalSales         float64 `json:"totalSales"`
	TotalTransactions  int     `json:"totalTransactions"`
	TotalItems         int     `json:"totalItems"`
	AverageTransaction float64 `json:"averageTransaction"`
}

// NewDailyStats returns an empty aggregate for day.
func NewDailyStats(day string) DailyStats {
	return DailyStats{Date: day}
}

// Apply adds one transaction to the aggregate and recomputes the average.
func (s *DailyStats) Apply(t Transaction) {
	s.TotalSales += t.Total
	s.TotalTransactions++
	s.TotalItems += t.ItemCount()
	s.AverageTransaction = s.TotalSales / float64(s.TotalTransactions)
}
