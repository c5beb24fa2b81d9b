package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	// Interval overrides the configured autosave interval when non-zero.
	Interval time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep the database open with periodic autosave",
		Long: `Open the database (bootstrapping or migrating it as needed) and keep it
open, flushing session state every autosave interval. On SIGINT or SIGTERM
the state is flushed once more and the database is closed.

In fallback mode the flush writes to the legacy key/value store instead.

Example:
  alata run
  alata run --interval 10s --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "autosave interval (default from config)")

	return cmd
}

func runSession(opts *RunOptions, cmd *cobra.Command) error {
	parentCtx := commandContext(cmd)
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sess, cfg, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sess.Close(context.WithoutCancel(ctx)); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	interval := cfg.AutosaveInterval
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("session started", "mode", sess.Mode(), "db", cfg.Database.Path, "autosave", interval)
	fmt.Fprintf(cmd.OutOrStdout(), "Database open (%s mode). Autosave every %s.\n", sess.Mode(), interval)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	sess.RunAutosave(ctx, interval)

	slog.Info("session stopped gracefully")
	return nil
}
