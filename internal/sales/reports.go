package sales

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/alata/internal/model"
)

// DefaultTopLimit is used by TopSellingProducts when limit <= 0.
const DefaultTopLimit = 10

// GetTransaction returns the transaction with id.
func (c *Coordinator) GetTransaction(ctx context.Context, id string) (model.Transaction, bool, error) {
	return c.repos.Transactions.Get(ctx, id)
}

// ListTransactions returns every transaction, newest first.
func (c *Coordinator) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	all, err := c.repos.Transactions.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })
	return all, nil
}

// TransactionsOn returns transactions whose calendar day is day (YYYY-MM-DD).
func (c *Coordinator) TransactionsOn(ctx context.Context, day string) ([]model.Transaction, error) {
	return c.TransactionsInRange(ctx, day, day)
}

// TransactionsInRange returns transactions whose calendar day falls within
// [start, end], both inclusive.
func (c *Coordinator) TransactionsInRange(ctx context.Context, start, end string) ([]model.Transaction, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	all, err := c.repos.Transactions.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Transaction, 0, len(all))
	for _, t := range all {
		if d := t.Day(); d >= start && d <= end {
			out = append(out, t)
		}
	}
	return out, nil
}

// StatsRange returns the daily aggregates within [start, end], ordered by day.
func (c *Coordinator) StatsRange(ctx context.Context, start, end string) ([]model.DailyStats, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	all, err := c.repos.DailyStats.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.DailyStats, 0, len(all))
	for _, s := range all {
		if s.Date >= start && s.Date <= end {
			out = append(out, s)
		}
	}
	return out, nil
}

// DailyStats returns the aggregate for day, or a zero aggregate for that day
// when nothing was sold.
func (c *Coordinator) DailyStats(ctx context.Context, day string) (model.DailyStats, error) {
	if _, err := model.ParseDay(day); err != nil {
		return model.DailyStats{}, err
	}
	s, found, err := c.repos.DailyStats.Get(ctx, day)
	if err != nil {
		return model.DailyStats{}, err
	}
	if !found {
		return model.NewDailyStats(day), nil
	}
	return s, nil
}

// TodayStats returns DailyStats for the clock's current day.
func (c *Coordinator) TodayStats(ctx context.Context) (model.DailyStats, error) {
	return c.DailyStats(ctx, model.DayOf(c.clock.Now()))
}

// ProductSales aggregates one product across all transactions.
type ProductSales struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	Revenue      float64 `json:"revenue"`
	Transactions int     `json:"transactions"`
}

// TopSellingProducts ranks products by quantity sold, descending. Ties keep
// the order in which products were first encountered.
func (c *Coordinator) TopSellingProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	all, err := c.repos.Transactions.List(ctx)
	if err != nil {
		return nil, err
	}

	var ranked []ProductSales
	index := make(map[string]int)
	for _, t := range all {
		for _, item := range t.Items {
			i, ok := index[item.Code]
			if !ok {
				i = len(ranked)
				index[item.Code] = i
				ranked = append(ranked, ProductSales{Code: item.Code, Name: item.Name})
			}
			ranked[i].Quantity += item.Quantity
			ranked[i].Revenue += item.Total
			ranked[i].Transactions++
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Quantity > ranked[j].Quantity })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if ranked == nil {
		ranked = []ProductSales{}
	}
	return ranked, nil
}

// MethodTotals is the share of one payment method in a report.
type MethodTotals struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// PaymentBreakdown splits a report by the two supported payment methods.
type PaymentBreakdown struct {
	Cash     MethodTotals `json:"cash"`
	Transfer MethodTotals `json:"transfer"`
}

// DayTotals is one day of a report.
type DayTotals struct {
	Date         string  `json:"date"`
	Transactions int     `json:"transactions"`
	Revenue      float64 `json:"revenue"`
	Items        int     `json:"items"`
}

// SalesReport summarizes transactions over an inclusive day range.
type SalesReport struct {
	Start              string           `json:"start"`
	End                string           `json:"end"`
	TotalTransactions  int              `json:"totalTransactions"`
	TotalRevenue       float64          `json:"totalRevenue"`
	TotalItems         int              `json:"totalItems"`
	AverageTransaction float64          `json:"averageTransaction"`
	PaymentMethods     PaymentBreakdown `json:"paymentMethods"`
	Daily              []DayTotals      `json:"daily"`
}

// SalesReport builds the report for [start, end]. A transaction with a
// payment method other than cash or transfer fails the whole report.
func (c *Coordinator) SalesReport(ctx context.Context, start, end string) (SalesReport, error) {
	txs, err := c.TransactionsInRange(ctx, start, end)
	if err != nil {
		return SalesReport{}, err
	}

	report := SalesReport{Start: start, End: end, Daily: []DayTotals{}}
	days := make(map[string]*DayTotals)
	for _, t := range txs {
		var method *MethodTotals
		switch t.PaymentMethod {
		case model.PaymentCash:
			method = &report.PaymentMethods.Cash
		case model.PaymentTransfer:
			method = &report.PaymentMethods.Transfer
		default:
			return SalesReport{}, fmt.Errorf("sales report: transaction %s: %w: %q", t.ID, ErrUnknownPaymentMethod, t.PaymentMethod)
		}
		method.Count++
		method.Total += t.Total

		items := t.ItemCount()
		report.TotalTransactions++
		report.TotalRevenue += t.Total
		report.TotalItems += items

		d, ok := days[t.Day()]
		if !ok {
			d = &DayTotals{Date: t.Day()}
			days[t.Day()] = d
		}
		d.Transactions++
		d.Revenue += t.Total
		d.Items += items
	}
	if report.TotalTransactions > 0 {
		report.AverageTransaction = report.TotalRevenue / float64(report.TotalTransactions)
	}

	for _, d := range days {
		report.Daily = append(report.Daily, *d)
	}
	sort.Slice(report.Daily, func(i, j int) bool { return report.Daily[i].Date < report.Daily[j].Date })
	return report, nil
}

func checkRange(start, end string) error {
	if _, err := model.ParseDay(start); err != nil {
		return err
	}
	if _, err := model.ParseDay(end); err != nil {
		return err
	}
	if start > end {
		return fmt.Errorf("invalid range: %s is after %s", start, end)
	}
	return nil
}
