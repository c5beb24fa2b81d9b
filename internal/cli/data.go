package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/alata/internal/backup"
	"github.com/roach88/alata/internal/legacy"
	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/session"
)

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write key/value settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List every setting",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				settings, err := sess.Repos.Settings.List(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list settings", err)
				}
				return f.Success(settingList(settings))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "get <key>",
		Short:         "Print one setting's value",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				var value json.RawMessage
				found, err := sess.Repos.Settings.Get(ctx, args[0], &value)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read setting", err)
				}
				if !found {
					return NewExitError(ExitFailure, fmt.Sprintf("setting not found: %s", args[0]))
				}
				return f.Success(settingList{{Key: args[0], Value: value}})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Long: `Store a setting. A value that parses as JSON is stored as that JSON
value; anything else is stored as a string.

Examples:
  alata settings set businessName "Alata Craft"
  alata settings set transactionCounter 42`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			value := settingValue(args[1])
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				if err := sess.Repos.Settings.Set(ctx, args[0], value); err != nil {
					return WrapExitError(ExitCommandError, "failed to store setting", err)
				}
				if err := sess.Reload(ctx); err != nil {
					return WrapExitError(ExitCommandError, "failed to refresh session", err)
				}
				return f.Success(settingList{{Key: args[0], Value: value}})
			})
		},
	})

	return cmd
}

// settingValue keeps valid JSON as is and quotes everything else.
func settingValue(text string) json.RawMessage {
	if json.Valid([]byte(text)) {
		return json.RawMessage(text)
	}
	quoted, _ := json.Marshal(text)
	return quoted
}

type settingList []model.Setting

func (l settingList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No settings.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE")
	for _, s := range l {
		fmt.Fprintf(tw, "%s\t%s\n", s.Key, s.Value)
	}
	return tw.Flush()
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of every collection",
		Long: `Export the products, transactions, daily statistics, settings,
categories, customers, and the most recent inventory logs as one JSON
document. Without --out the document is written to stdout.

Example:
  alata export --out backup.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				data, err := sess.Backup.ExportJSON(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to export", err)
				}
				if out == "" {
					_, err := cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write export", err)
				}
				return formatter(rootOpts, cmd).Success(fmt.Sprintf("Exported to %s", out))
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

// importSummary lists records written per collection.
type importSummary struct {
	Counts map[string]int `json:"counts"`
}

func (s importSummary) WriteText(w io.Writer) error {
	names := make([]string, 0, len(s.Counts))
	for name := range s.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Import complete.")
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %d\n", name, s.Counts[name])
	}
	return nil
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the database with a JSON backup",
		Long: `Replace every collection with the contents of an export document.

A document that is not valid JSON or does not match the export layout is
rejected before anything changes. A failure after clearing has begun is
reported as a partial import naming the collections affected.

Exit codes:
  0 - Import complete
  1 - Invalid document or partial import
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read import file", err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				result, err := sess.Backup.Import(ctx, data)
				if err != nil {
					if isPartialImport(err) {
						slog.Warn("database was partially replaced; import the file again or restore a backup", "file", args[0])
					}
					return fail(f, "import failed", err)
				}
				if err := sess.Reload(ctx); err != nil {
					return WrapExitError(ExitCommandError, "failed to refresh session", err)
				}
				return f.Success(importSummary{Counts: result.Counts})
			})
		},
	}
}

// migrationSummary renders a legacy migration result.
type migrationSummary struct {
	Skipped      bool `json:"skipped"`
	Products     int  `json:"products"`
	Transactions int  `json:"transactions"`
	Stats        bool `json:"stats"`
	Counter      bool `json:"counter"`
	Failures     int  `json:"failures"`
}

func (m migrationSummary) WriteText(w io.Writer) error {
	if m.Skipped {
		_, err := fmt.Fprintln(w, "Migration skipped: the database has no products.")
		return err
	}
	fmt.Fprintf(w, "Migrated %d products and %d transactions.\n", m.Products, m.Transactions)
	fmt.Fprintf(w, "  Stats:    %t\n", m.Stats)
	fmt.Fprintf(w, "  Counter:  %t\n", m.Counter)
	fmt.Fprintf(w, "  Failures: %d\n", m.Failures)
	return nil
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var legacyPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy legacy key/value data into the database",
		Long: `Copy products, history, today's statistics, and the transaction counter
from the legacy key/value store into the database. Records that fail are
logged and counted; the rest are still copied.

The migration only runs when the database already holds products.

Examples:
  alata migrate
  alata migrate --legacy ./old-browser-export.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				src := sess.Legacy()
				if legacyPath != "" {
					opened, err := legacy.Open(legacyPath)
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to open legacy store", err)
					}
					src = opened
				}
				if src == nil {
					return NewExitError(ExitCommandError, "no legacy store configured; pass --legacy")
				}

				result, err := sess.Backup.MigrateLegacy(ctx, src)
				if err != nil {
					return WrapExitError(ExitCommandError, "migration failed", err)
				}
				if err := sess.Reload(ctx); err != nil {
					return WrapExitError(ExitCommandError, "failed to refresh session", err)
				}
				return f.Success(migrationSummary(result))
			})
		},
	}

	cmd.Flags().StringVar(&legacyPath, "legacy", "", "legacy store file (default from config)")
	return cmd
}

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Prune old inventory log entries",
		Long: `Delete inventory log entries older than the retention window. Products,
transactions, and statistics are kept.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				pruned, err := sess.Backup.Optimize(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to optimize", err)
				}
				if f.Format == "json" {
					return f.Success(map[string]int{"pruned": pruned})
				}
				return f.Success(fmt.Sprintf("Pruned %d inventory log entries", pruned))
			})
		},
	}
}

type infoView session.Info

func (i infoView) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Mode:     %s\n", i.Mode)
	fmt.Fprintf(w, "Engine:   %s\n", i.Engine)
	fmt.Fprintf(w, "Database: %s v%d\n", i.Name, i.Version)
	if i.Path != "" {
		fmt.Fprintf(w, "Path:     %s\n", i.Path)
	}
	names := make([]string, 0, len(i.Counts))
	for name := range i.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Records:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %d\n", name, i.Counts[name])
	}
	return nil
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "info",
		Short:         "Show the database mode, schema version, and record counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, sess *session.Session) error {
				info, err := sess.Info(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read database info", err)
				}
				return f.Success(infoView(info))
			})
		},
	}
}

// isPartialImport reports whether err left the database half replaced.
func isPartialImport(err error) bool {
	return errors.Is(err, backup.ErrPartialImport)
}
