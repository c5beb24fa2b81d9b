package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/session"
)

// NewCategoriesCommand creates the categories command group.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List and add product categories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List categories",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				categories, err := sess.Repos.Categories.List(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list categories", err)
				}
				return f.Success(categoryList(categories))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "add <name>",
		Short:         "Add a category",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				c, err := sess.Catalog.AddCategory(ctx, args[0])
				if err != nil {
					return fail(f, "failed to add category", err)
				}
				return f.Success(categoryList{c})
			})
		},
	})

	return cmd
}

type categoryList []model.Category

func (l categoryList) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, c := range l {
		fmt.Fprintf(tw, "%d\t%s\n", c.ID, c.Name)
	}
	return tw.Flush()
}

// NewCustomersCommand creates the customers command group.
func NewCustomersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Manage customer records",
	}
	cmd.AddCommand(newCustomersListCommand(rootOpts))
	cmd.AddCommand(newCustomersAddCommand(rootOpts))
	cmd.AddCommand(newCustomersFindCommand(rootOpts))
	return cmd
}

type customerList []model.Customer

func (l customerList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No customers.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tEMAIL\tADDRESS")
	for _, c := range l {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Phone, c.Email, c.Address)
	}
	return tw.Flush()
}

func newCustomersListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List customers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				customers, err := sess.Repos.Customers.List(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list customers", err)
				}
				return f.Success(customerList(customers))
			})
		},
	}
}

func newCustomersAddCommand(rootOpts *RootOptions) *cobra.Command {
	var c model.Customer

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or replace a customer",
		Long: `Save a customer. Without --id a new id is assigned; phone and email
must be unique across customers.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			c.Name = args[0]
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				saved, err := sess.Repos.Customers.Save(ctx, c)
				if err != nil {
					return fail(f, "failed to save customer", err)
				}
				return f.Success(customerList{saved})
			})
		},
	}

	cmd.Flags().Int64Var(&c.ID, "id", 0, "existing customer id to replace")
	cmd.Flags().StringVar(&c.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&c.Email, "email", "", "email address")
	cmd.Flags().StringVar(&c.Address, "address", "", "postal address")
	return cmd
}

func newCustomersFindCommand(rootOpts *RootOptions) *cobra.Command {
	var phone, email string

	cmd := &cobra.Command{
		Use:   "find [id]",
		Short: "Look up a customer by id, phone, or email",
		Long: `Look up one customer. Phone and email lookups return the first match in
insertion order.

Examples:
  alata customers find 3
  alata customers find --phone 08123456789
  alata customers find --email ani@example.com`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			if len(args) == 0 && phone == "" && email == "" {
				return NewExitError(ExitCommandError, "one of id, --phone, or --email is required")
			}
			var id int64
			if len(args) == 1 {
				n, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid customer id", err)
				}
				id = n
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				var (
					c     model.Customer
					found bool
					err   error
				)
				switch {
				case len(args) == 1:
					c, found, err = sess.Repos.Customers.Get(ctx, id)
				case phone != "":
					c, found, err = sess.Repos.Customers.FindByPhone(ctx, phone)
				default:
					c, found, err = sess.Repos.Customers.FindByEmail(ctx, email)
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to look up customer", err)
				}
				if !found {
					return NewExitError(ExitFailure, "no matching customer")
				}
				return f.Success(customerList{c})
			})
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}
