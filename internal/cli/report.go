package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/sales"
	"github.com/roach88/alata/internal/session"
)

// NewReportCommand creates the report command group.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Sales history and statistics",
		Long: `Read-only views over recorded sales. Days are calendar days in UTC,
written as YYYY-MM-DD; ranges include both ends.`,
	}
	cmd.AddCommand(newReportDayCommand(rootOpts))
	cmd.AddCommand(newReportRangeCommand(rootOpts))
	cmd.AddCommand(newReportStatsCommand(rootOpts))
	cmd.AddCommand(newReportTopCommand(rootOpts))
	cmd.AddCommand(newReportHistoryCommand(rootOpts))
	cmd.AddCommand(newReportTransactionCommand(rootOpts))
	return cmd
}

// dayReport is one day's stats with the transactions behind them.
type dayReport struct {
	Stats        model.DailyStats    `json:"stats"`
	Transactions []model.Transaction `json:"transactions"`
}

func (d dayReport) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%s: %d transactions, %d items, %s (average %s)\n",
		d.Stats.Date, d.Stats.TotalTransactions, d.Stats.TotalItems,
		Rupiah(d.Stats.TotalSales), Rupiah(d.Stats.AverageTransaction))
	if len(d.Transactions) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	return transactionList(d.Transactions).WriteText(w)
}

type transactionList []model.Transaction

func (l transactionList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No transactions.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECEIPT\tDATE\tID\tCUSTOMER\tITEMS\tPAYMENT\tTOTAL")
	for _, t := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			t.ReceiptNo, t.Date.Format("2006-01-02 15:04"), t.ID, t.Customer, t.ItemCount(), t.PaymentMethod, Rupiah(t.Total))
	}
	return tw.Flush()
}

type statsList []model.DailyStats

func (l statsList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No statistics.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTRANSACTIONS\tITEMS\tSALES\tAVERAGE")
	for _, s := range l {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
			s.Date, s.TotalTransactions, s.TotalItems, Rupiah(s.TotalSales), Rupiah(s.AverageTransaction))
	}
	return tw.Flush()
}

type topList []sales.ProductSales

func (l topList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No sales.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCODE\tNAME\tQUANTITY\tREVENUE\tTRANSACTIONS")
	for i, p := range l {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%d\n", i+1, p.Code, p.Name, p.Quantity, Rupiah(p.Revenue), p.Transactions)
	}
	return tw.Flush()
}

type salesReport sales.SalesReport

func (r salesReport) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Sales %s to %s\n", r.Start, r.End)
	fmt.Fprintf(w, "  Transactions: %d\n", r.TotalTransactions)
	fmt.Fprintf(w, "  Items:        %d\n", r.TotalItems)
	fmt.Fprintf(w, "  Revenue:      %s\n", Rupiah(r.TotalRevenue))
	fmt.Fprintf(w, "  Average:      %s\n", Rupiah(r.AverageTransaction))
	fmt.Fprintf(w, "  Cash:         %d (%s)\n", r.PaymentMethods.Cash.Count, Rupiah(r.PaymentMethods.Cash.Total))
	fmt.Fprintf(w, "  Transfer:     %d (%s)\n", r.PaymentMethods.Transfer.Count, Rupiah(r.PaymentMethods.Transfer.Total))
	if len(r.Daily) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTRANSACTIONS\tITEMS\tREVENUE")
	for _, d := range r.Daily {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", d.Date, d.Transactions, d.Items, Rupiah(d.Revenue))
	}
	return tw.Flush()
}

func newReportDayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "day [YYYY-MM-DD]",
		Short:         "Statistics and transactions for one day (default today)",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				day := model.DayOf(sess.Repos.Clock().Now())
				if len(args) == 1 {
					parsed, err := model.ParseDay(args[0])
					if err != nil {
						return WrapExitError(ExitCommandError, "invalid day", err)
					}
					day = parsed
				}
				stats, err := sess.Sales.DailyStats(ctx, day)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read statistics", err)
				}
				txs, err := sess.Sales.TransactionsOn(ctx, day)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read transactions", err)
				}
				return f.Success(dayReport{Stats: stats, Transactions: txs})
			})
		},
	}
}

func newReportRangeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "range <start> <end>",
		Short: "Sales report over a day range",
		Long: `Totals, payment method breakdown, and per-day totals for transactions
dated within [start, end].

Example:
  alata report range 2025-01-01 2025-01-31 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				report, err := sess.Sales.SalesReport(ctx, args[0], args[1])
				if err != nil {
					return fail(f, "failed to build report", err)
				}
				return f.Success(salesReport(report))
			})
		},
	}
}

func newReportStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats <start> <end>",
		Short:         "Stored daily statistics over a day range",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				stats, err := sess.Sales.StatsRange(ctx, args[0], args[1])
				if err != nil {
					return fail(f, "failed to read statistics", err)
				}
				return f.Success(statsList(stats))
			})
		},
	}
}

func newReportTopCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "top",
		Short:         "Best-selling products by quantity",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				top, err := sess.Sales.TopSellingProducts(ctx, limit)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to rank products", err)
				}
				return f.Success(topList(top))
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", sales.DefaultTopLimit, "maximum products")
	return cmd
}

func newReportHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "Transactions, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				txs, err := sess.Sales.ListTransactions(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read transactions", err)
				}
				if limit > 0 && len(txs) > limit {
					txs = txs[:limit]
				}
				return f.Success(transactionList(txs))
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum transactions (0 for all)")
	return cmd
}

func newReportTransactionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "transaction <id>",
		Short:         "Show one transaction as a receipt",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				t, found, err := sess.Sales.GetTransaction(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read transaction", err)
				}
				if !found {
					return NewExitError(ExitFailure, fmt.Sprintf("transaction not found: %s", args[0]))
				}
				return f.Success(receipt(t))
			})
		},
	}
}
