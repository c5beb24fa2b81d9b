package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/repo"
	"github.com/roach88/alata/internal/sales"
	"github.com/roach88/alata/internal/session"
)

// SaleOptions holds flags for the sale command.
type SaleOptions struct {
	*RootOptions
	Items    []string // CODE=QTY
	Payment  string
	Cash     float64
	Customer string
	Address  string
	Date     string // YYYY-MM-DD, empty for today
}

// NewSaleCommand creates the sale command.
func NewSaleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sale",
		Short: "Check out a cart",
		Long: `Build a cart from --item flags and check it out.

The sale is recorded together with today's statistics, then each line's
stock is decremented with a "sale" inventory log entry. A line whose stock
update fails is reported without undoing the sale or the other lines.

--date writes an earlier sale date on the transaction. The sale still
counts toward today's statistics.

Exit codes:
  0 - Sale recorded
  1 - Sale rejected (empty cart, insufficient stock or cash) or a stock update failed
  2 - Command error

Examples:
  alata sale --item PRD001=3 --cash 100000
  alata sale --item PRD003=2 --item PRD012=1 --payment transfer --customer "Ani"
  alata sale --item PRD001=1 --cash 50000 --date 2025-01-12`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSale(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Items, "item", "i", nil, "cart line as CODE=QTY (repeatable)")
	cmd.Flags().StringVarP(&opts.Payment, "payment", "p", string(model.PaymentCash), "payment method (cash|transfer)")
	cmd.Flags().Float64Var(&opts.Cash, "cash", 0, "cash tendered")
	cmd.Flags().StringVar(&opts.Customer, "customer", "", "customer name")
	cmd.Flags().StringVar(&opts.Address, "address", "", "customer address")
	cmd.Flags().StringVar(&opts.Date, "date", "", "sale date as YYYY-MM-DD (default today)")

	return cmd
}

// cartLine is one parsed --item flag.
type cartLine struct {
	code string
	qty  int
}

func parseItems(items []string) ([]cartLine, error) {
	lines := make([]cartLine, 0, len(items))
	for _, item := range items {
		code, qtyText, ok := strings.Cut(item, "=")
		if !ok {
			code, qtyText = item, "1"
		}
		qty, err := strconv.Atoi(qtyText)
		if err != nil || strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("invalid item %q: want CODE=QTY", item)
		}
		lines = append(lines, cartLine{code: strings.TrimSpace(code), qty: qty})
	}
	return lines, nil
}

// parseSaleDate reads the --date flag. An empty value is the zero time.
func parseSaleDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(model.DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

func runSale(opts *SaleOptions, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)
	lines, err := parseItems(opts.Items)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid cart", err)
	}
	date, err := parseSaleDate(opts.Date)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid sale date", err)
	}

	return withSession(opts.RootOptions, cmd, func(ctx context.Context, sess *session.Session) error {
		cart := sales.NewCart()
		for _, line := range lines {
			p, found, err := sess.Repos.Products.Get(ctx, line.code)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read product", err)
			}
			if !found {
				return fail(f, "sale rejected", fmt.Errorf("%w: %s", repo.ErrProductNotFound, line.code))
			}
			if err := cart.Add(p, line.qty); err != nil {
				return fail(f, "sale rejected", err)
			}
		}

		f.VerboseLog("cart: %d lines, %d items, total %s", len(cart.Items()), cart.ItemCount(), Rupiah(cart.Total()))

		t, err := sess.Checkout(ctx, cart, sales.CheckoutRequest{
			Customer:        opts.Customer,
			CustomerAddress: opts.Address,
			PaymentMethod:   model.PaymentMethod(opts.Payment),
			CashAmount:      opts.Cash,
			Date:            date,
		})
		var stockErr *sales.StockUpdateError
		if errors.As(err, &stockErr) {
			if f.Format != "json" {
				_ = receipt(t).WriteText(f.Writer)
			}
			return fail(f, "sale recorded with stock update failures", err)
		}
		if err != nil {
			return fail(f, "sale rejected", err)
		}
		return f.Success(receipt(t))
	})
}

// receipt renders a transaction the way the shop prints it.
type receipt model.Transaction

func (r receipt) WriteText(w io.Writer) error {
	t := model.Transaction(r)
	if t.ShopName != "" {
		fmt.Fprintln(w, t.ShopName)
	}
	fmt.Fprintf(w, "Receipt %s  %s\n", t.ReceiptNo, t.Date.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Transaction %s\n", t.ID)
	fmt.Fprintf(w, "Customer: %s\n\n", t.Customer)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, item := range t.Items {
		fmt.Fprintf(tw, "%s\t%d x %s\t%s\n", item.Name, item.Quantity, Rupiah(item.UnitPrice), Rupiah(item.Total))
	}
	fmt.Fprintf(tw, "\t\t\n")
	fmt.Fprintf(tw, "TOTAL\t%d items\t%s\n", t.ItemCount(), Rupiah(t.Total))
	fmt.Fprintf(tw, "Paid (%s)\t\t%s\n", t.PaymentMethod, Rupiah(t.CashAmount))
	fmt.Fprintf(tw, "Change\t\t%s\n", Rupiah(t.Change))
	return tw.Flush()
}
