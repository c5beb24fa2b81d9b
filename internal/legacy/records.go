package legacy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/alata/internal/model"
)

// Product is a catalog entry in the legacy field naming.
type Product struct {
	Kode     string  `json:"kode"`
	Nama     string  `json:"nama"`
	Kategori string  `json:"kategori"`
	Satuan   string  `json:"satuan"`
	Volume   int     `json:"volume"`
	Harga    float64 `json:"harga"`
}

// ToModel converts to the structured product.
func (p Product) ToModel() model.Product {
	return model.Product{
		Code:       p.Kode,
		Name:       p.Nama,
		Category:   p.Kategori,
		Unit:       p.Satuan,
		StockLevel: p.Volume,
		UnitPrice:  p.Harga,
	}
}

// FromModel converts a structured product to the legacy naming.
func FromModel(p model.Product) Product {
	return Product{
		Kode:     p.Code,
		Nama:     p.Name,
		Kategori: p.Category,
		Satuan:   p.Unit,
		Volume:   p.StockLevel,
		Harga:    p.UnitPrice,
	}
}

// LineItem is a cart line as stored in the legacy history: the product's
// fields plus quantity and line total.
type LineItem struct {
	Product
	Quantity int     `json:"quantity"`
	Total    float64 `json:"total"`
}

// Transaction is a history entry in the legacy layout.
type Transaction struct {
	ID              string     `json:"id"`
	ReceiptNo       string     `json:"receiptNo,omitempty"`
	Date            string     `json:"date"`
	Customer        string     `json:"customer"`
	CustomerAddress string     `json:"customerAddress,omitempty"`
	ShopName        string     `json:"shopName,omitempty"`
	Items           []LineItem `json:"items"`
	Total           float64    `json:"total"`
	PaymentMethod   string     `json:"paymentMethod"`
	CashAmount      float64    `json:"cashAmount"`
	Change          float64    `json:"change"`
}

// ToModel converts to the structured transaction. The date must be an
// RFC 3339 timestamp.
func (t Transaction) ToModel() (model.Transaction, error) {
	date, err := time.Parse(time.RFC3339Nano, t.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: date %q: %w", t.ID, t.Date, err)
	}
	items := make([]model.LineItem, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, model.LineItem{
			Code:      it.Kode,
			Name:      it.Nama,
			Category:  it.Kategori,
			Unit:      it.Satuan,
			Quantity:  it.Quantity,
			UnitPrice: it.Harga,
			Total:     it.Total,
		})
	}
	return model.Transaction{
		ID:              t.ID,
		ReceiptNo:       t.ReceiptNo,
		Date:            date.UTC(),
		Customer:        t.Customer,
		CustomerAddress: t.CustomerAddress,
		ShopName:        t.ShopName,
		Items:           items,
		Total:           t.Total,
		PaymentMethod:   model.PaymentMethod(t.PaymentMethod),
		CashAmount:      t.CashAmount,
		Change:          t.Change,
	}, nil
}

// Stats is the legacy snapshot of one day's totals. Older snapshots carry
// only sales and transaction count.
type Stats struct {
	Date               string  `json:"date"`
	TotalSales         float64 `json:"totalSales"`
	TotalTransactions  int     `json:"totalTransactions"`
	TotalItems         int     `json:"totalItems,omitempty"`
	AverageTransaction float64 `json:"averageTransaction,omitempty"`
}

// ToModel converts to DailyStats, deriving the average when absent.
func (s Stats) ToModel() model.DailyStats {
	out := model.DailyStats{
		Date:               s.Date,
		TotalSales:         s.TotalSales,
		TotalTransactions:  s.TotalTransactions,
		TotalItems:         s.TotalItems,
		AverageTransaction: s.AverageTransaction,
	}
	if out.AverageTransaction == 0 && out.TotalTransactions > 0 {
		out.AverageTransaction = out.TotalSales / float64(out.TotalTransactions)
	}
	return out
}

// StatsFromModel converts DailyStats to the legacy snapshot.
func StatsFromModel(s model.DailyStats) Stats {
	return Stats(s)
}

// Products decodes the product list. ok is false when the key is absent.
func (s *Store) Products() (products []model.Product, ok bool, err error) {
	var raw []Product
	if ok, err = s.getJSON(KeyProducts, &raw); !ok || err != nil {
		return nil, ok, err
	}
	products = make([]model.Product, 0, len(raw))
	for _, p := range raw {
		products = append(products, p.ToModel())
	}
	return products, true, nil
}

// SetProducts replaces the product list.
func (s *Store) SetProducts(products []model.Product) error {
	raw := make([]Product, 0, len(products))
	for _, p := range products {
		raw = append(raw, FromModel(p))
	}
	return s.setJSON(KeyProducts, raw)
}

// History decodes the transaction history. ok is false when the key is absent.
func (s *Store) History() (history []Transaction, ok bool, err error) {
	ok, err = s.getJSON(KeyHistory, &history)
	return history, ok, err
}

// Stats decodes the daily stats snapshot. ok is false when the key is absent.
func (s *Store) Stats() (stats model.DailyStats, ok bool, err error) {
	var raw Stats
	if ok, err = s.getJSON(KeyStats, &raw); !ok || err != nil {
		return model.DailyStats{}, ok, err
	}
	return raw.ToModel(), true, nil
}

// SetStats replaces the daily stats snapshot.
func (s *Store) SetStats(stats model.DailyStats) error {
	return s.setJSON(KeyStats, StatsFromModel(stats))
}

// Counter returns the transaction counter. ok is false when the key is absent.
func (s *Store) Counter() (n int, ok bool, err error) {
	v, ok := s.GetItem(KeyCounter)
	if !ok {
		return 0, false, nil
	}
	n, err = strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, true, fmt.Errorf("legacy %s: %w", KeyCounter, err)
	}
	return n, true, nil
}

// SetCounter stores the transaction counter.
func (s *Store) SetCounter(n int) error {
	return s.SetItem(KeyCounter, strconv.Itoa(n))
}

func (s *Store) getJSON(key string, dst any) (bool, error) {
	v, ok := s.GetItem(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(v), dst); err != nil {
		return true, fmt.Errorf("legacy %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("legacy %s: %w", key, err)
	}
	return s.SetItem(key, string(data))
}
