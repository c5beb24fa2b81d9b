package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/alata/internal/backup"
	"github.com/roach88/alata/internal/catalog"
	"github.com/roach88/alata/internal/config"
	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/repo"
	"github.com/roach88/alata/internal/sales"
	"github.com/roach88/alata/internal/session"
	"github.com/roach88/alata/internal/store"
)

// loadConfig reads the configuration named by the global flags.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config, opts.EnvFile)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newLogger builds the process logger: a text handler on w at the configured
// level, or Debug with --verbose. It also becomes the slog default.
func newLogger(opts *RootOptions, cfg config.Config, w io.Writer) *slog.Logger {
	level, _ := cfg.SlogLevel() // validated by config.Load
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// openSession loads config and opens a session. Callers must close it.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session.Session, config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, config.Config{}, err
	}
	logger := newLogger(opts, cfg, cmd.ErrOrStderr())

	sess, err := session.Open(ctx, cfg, session.WithLogger(logger))
	if err != nil {
		return nil, config.Config{}, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	if sess.Mode() == session.ModeFallback {
		logger.Warn("running in fallback mode; changes are kept in the legacy store only", "legacy", cfg.Legacy.Path)
	}
	return sess, cfg, nil
}

// withSession opens a session, runs fn, and closes the session. A close
// failure is logged; fn's error wins.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, sess *session.Session) error) error {
	ctx := commandContext(cmd)
	sess, _, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(ctx); cerr != nil {
			slog.Error("error closing database", "error", cerr)
		}
	}()
	return fn(ctx, sess)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// errorCode names the domain failure behind err for JSON output.
func errorCode(err error) string {
	var stockUpdate *sales.StockUpdateError
	switch {
	case errors.As(err, &stockUpdate):
		return "STOCK_UPDATE_FAILED"
	case errors.Is(err, sales.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, sales.ErrInsufficientCash):
		return "INSUFFICIENT_CASH"
	case errors.Is(err, sales.ErrUnknownPaymentMethod):
		return "UNKNOWN_PAYMENT_METHOD"
	case errors.Is(err, sales.ErrEmptyCart):
		return "EMPTY_CART"
	case errors.Is(err, catalog.ErrProductExists):
		return "PRODUCT_EXISTS"
	case errors.Is(err, catalog.ErrUnknownCategory):
		return "UNKNOWN_CATEGORY"
	case errors.Is(err, catalog.ErrCategoryExists):
		return "CATEGORY_EXISTS"
	case errors.Is(err, repo.ErrProductNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, backup.ErrInvalidImportFormat):
		return "INVALID_IMPORT_FORMAT"
	case errors.Is(err, backup.ErrImportSchemaMismatch):
		return "IMPORT_SCHEMA_MISMATCH"
	case errors.Is(err, backup.ErrPartialImport):
		return "PARTIAL_IMPORT"
	case errors.Is(err, model.ErrInvalidRecord):
		return "INVALID_RECORD"
	}
	var serr *store.Error
	if errors.As(err, &serr) {
		return string(serr.Code)
	}
	return "ERROR"
}

// fail reports a rejected operation. JSON output gets an error response on
// stdout; in both formats the command exits with ExitFailure.
func fail(f *OutputFormatter, message string, err error) error {
	if f.Format == "json" {
		_ = f.Error(errorCode(err), err.Error(), nil)
	}
	return WrapExitError(ExitFailure, message, err)
}
