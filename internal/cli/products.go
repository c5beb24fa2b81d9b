package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/repo"
	"github.com/roach88/alata/internal/session"
)

// NewProductsCommand creates the products command group.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the product catalog",
	}
	cmd.AddCommand(newProductsListCommand(rootOpts))
	cmd.AddCommand(newProductsGetCommand(rootOpts))
	cmd.AddCommand(newProductsCreateCommand(rootOpts))
	cmd.AddCommand(newProductsUpdateCommand(rootOpts))
	cmd.AddCommand(newProductsDeleteCommand(rootOpts))
	cmd.AddCommand(newProductsStockCommand(rootOpts))
	cmd.AddCommand(newProductsLogsCommand(rootOpts))
	return cmd
}

type productList []model.Product

func (l productList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No products.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tCATEGORY\tUNIT\tSTOCK\tPRICE\tSTATUS")
	for _, p := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			p.Code, p.Name, p.Category, p.Unit, p.StockLevel, Rupiah(p.UnitPrice), p.StockStatus())
	}
	return tw.Flush()
}

type logList []model.InventoryLog

func (l logList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No inventory logs.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCODE\tTYPE\tOLD\tNEW\tCHANGE\tNOTES")
	for _, e := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%+d\t%s\n",
			e.Date, e.ProductCode, e.Type, e.OldStock, e.NewStock, e.Change, e.Notes)
	}
	return tw.Flush()
}

func newProductsListCommand(rootOpts *RootOptions) *cobra.Command {
	var status, category, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Long: `List the catalog, optionally filtered.

Examples:
  alata products list
  alata products list --status low
  alata products list --category "Alat Produksi"
  alata products list --search benang`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				var (
					products []model.Product
					err      error
				)
				switch {
				case search != "":
					products, err = sess.Repos.Products.Search(ctx, search)
				case category != "":
					products, err = sess.Repos.Products.FindByCategory(ctx, category)
				case status != "":
					products, err = sess.Catalog.ListByStatus(ctx, model.StockStatus(status))
				default:
					products = sess.Products()
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list products", err)
				}
				return f.Success(productList(products))
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by stock status (out|low|normal)")
	cmd.Flags().StringVar(&category, "category", "", "filter by category name")
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive match on code, name, or category")
	return cmd
}

func newProductsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <code>",
		Short:         "Show one product",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				p, found, err := sess.Repos.Products.Get(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read product", err)
				}
				if !found {
					return fail(f, "product lookup failed", fmt.Errorf("%w: %s", repo.ErrProductNotFound, args[0]))
				}
				return f.Success(productList{p})
			})
		},
	}
}

// productFlags binds the descriptive product fields to flags.
type productFlags struct {
	name, category, unit string
	stock                int
	price                float64
}

func (pf *productFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pf.name, "name", "", "product name")
	cmd.Flags().StringVar(&pf.category, "category", "", "category name (must exist)")
	cmd.Flags().StringVar(&pf.unit, "unit", "", "unit of sale")
	cmd.Flags().IntVar(&pf.stock, "stock", 0, "stock level")
	cmd.Flags().Float64Var(&pf.price, "price", 0, "unit price")
}

// apply overrides p with every flag the user set.
func (pf *productFlags) apply(cmd *cobra.Command, p model.Product) model.Product {
	if cmd.Flags().Changed("name") {
		p.Name = pf.name
	}
	if cmd.Flags().Changed("category") {
		p.Category = pf.category
	}
	if cmd.Flags().Changed("unit") {
		p.Unit = pf.unit
	}
	if cmd.Flags().Changed("stock") {
		p.StockLevel = pf.stock
	}
	if cmd.Flags().Changed("price") {
		p.UnitPrice = pf.price
	}
	return p
}

func newProductsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var pf productFlags

	cmd := &cobra.Command{
		Use:   "create <code>",
		Short: "Add a new product",
		Long: `Add a product under a new code. The code is compared without regard to
case and must not exist yet; the category must already exist.

Example:
  alata products create PRD014 --name "Benang Katun" --category "Bahan Produksi" --unit gulung --stock 10 --price 18000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				p := pf.apply(cmd, model.Product{Code: args[0]})
				created, err := sess.Catalog.Create(ctx, p)
				if err != nil {
					return fail(f, "failed to create product", err)
				}
				return f.Success(productList{created})
			})
		},
	}
	pf.bind(cmd)
	return cmd
}

func newProductsUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var pf productFlags

	cmd := &cobra.Command{
		Use:   "update <code>",
		Short: "Edit an existing product",
		Long: `Edit the fields given as flags. A changed --stock is recorded in the
inventory log as an adjustment.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				current, found, err := sess.Repos.Products.Get(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read product", err)
				}
				if !found {
					return fail(f, "failed to update product", fmt.Errorf("%w: %s", repo.ErrProductNotFound, args[0]))
				}
				updated, err := sess.Catalog.Update(ctx, pf.apply(cmd, current))
				if err != nil {
					return fail(f, "failed to update product", err)
				}
				return f.Success(productList{updated})
			})
		},
	}
	pf.bind(cmd)
	return cmd
}

func newProductsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <code>",
		Short:         "Remove a product",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				if err := sess.Repos.Products.Delete(ctx, args[0]); err != nil {
					return WrapExitError(ExitCommandError, "failed to delete product", err)
				}
				if f.Format == "json" {
					return f.Success(map[string]string{"deleted": args[0]})
				}
				return f.Success(fmt.Sprintf("Deleted %s", args[0]))
			})
		},
	}
}

func newProductsStockCommand(rootOpts *RootOptions) *cobra.Command {
	var logType, notes string

	cmd := &cobra.Command{
		Use:   "stock <code> <level>",
		Short: "Set a product's stock level",
		Long: `Set the stock level and append an inventory log entry with the change.

Example:
  alata products stock PRD001 20 --type manual --notes "Restock"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			level, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid stock level", err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				_, entry, err := sess.Repos.Products.UpdateStock(ctx, args[0], level, model.LogType(logType), notes)
				if err != nil {
					return fail(f, "failed to update stock", err)
				}
				return f.Success(logList{entry})
			})
		},
	}

	cmd.Flags().StringVar(&logType, "type", string(model.LogManual), "log type (manual|sale|adjustment)")
	cmd.Flags().StringVar(&notes, "notes", "", "log notes")
	return cmd
}

func newProductsLogsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "logs [code]",
		Short:         "Show inventory log entries, newest first",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			code := ""
			if len(args) == 1 {
				code = args[0]
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				logs, err := sess.Repos.Inventory.List(ctx, code, limit)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read inventory logs", err)
				}
				return f.Success(logList(logs))
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", repo.DefaultLogLimit, "maximum entries")
	return cmd
}
