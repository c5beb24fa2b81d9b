package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/alata/internal/catalog"
	"github.com/roach88/alata/internal/config"
	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/repo"
	"github.com/roach88/alata/internal/sales"
	"github.com/roach88/alata/internal/schema"
	"github.com/roach88/alata/internal/session"
	"github.com/roach88/alata/internal/store"
	"github.com/roach88/alata/internal/testutil"
)

// Output cases reported in completions.
const (
	CaseSuccess              = "Success"
	CaseEmptyCart            = "EmptyCart"
	CaseInsufficientStock    = "InsufficientStock"
	CaseInsufficientCash     = "InsufficientCash"
	CaseUnknownPaymentMethod = "UnknownPaymentMethod"
	CaseStockUpdateFailed    = "StockUpdateFailed"
	CaseProductNotFound      = "ProductNotFound"
	CaseProductExists        = "ProductExists"
	CaseUnknownCategory      = "UnknownCategory"
	CaseCategoryExists       = "CategoryExists"
	CaseDuplicateKey         = "DuplicateKey"
	CaseInvalidRecord        = "InvalidRecord"
	CaseError                = "Error"
)

// Harness executes one scenario against a session.
type Harness struct {
	session *session.Session
	clock   *testutil.Clock
	cart    *sales.Cart
	seq     int64
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh memory engine with a manual clock and
// sequential transaction ids, so results are reproducible. Setup failures
// and infrastructure errors are returned as errors; expectation and
// assertion failures are recorded in the result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	start, err := scenario.StartTime()
	if err != nil {
		return nil, err
	}
	clock := testutil.NewClock(start)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine, err := store.OpenMemory(schema.Version, schema.Upgrade)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}
	if err := preload(ctx, engine, clock, scenario.Products); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	cfg := config.Default()
	cfg.Legacy.Path = ""
	sess, err := session.Open(ctx, cfg,
		session.WithEngine(engine),
		session.WithClock(clock),
		session.WithIDGenerator(testutil.NewSequenceIDs(scenario.IDPrefix)),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer sess.Close(ctx)

	h := &Harness{
		session: sess,
		clock:   clock,
		cart:    sales.NewCart(),
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	h.executeFlow(ctx, scenario.Flow, result)

	actx := &AssertionContext{Engine: engine, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// preload stores the scenario catalog and its categories before the session
// opens, which keeps the seed catalog out.
func preload(ctx context.Context, engine store.Engine, clock model.Clock, seeds []SeedProduct) error {
	if len(seeds) == 0 {
		return nil
	}
	products := make([]model.Product, 0, len(seeds))
	for _, s := range seeds {
		products = append(products, s.Model())
	}
	repos := repo.New(engine, clock)
	return repos.Atomic(ctx, func(tx *repo.Repos) error {
		for _, p := range products {
			if err := tx.Products.Save(ctx, p); err != nil {
				return err
			}
		}
		for _, c := range schema.SeedCategories(products) {
			if _, err := tx.Categories.Save(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// executeSetup runs all setup steps. Any failure aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		if _, err := h.invoke(ctx, step.Action, step.Args, result); err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Action, err)
		}
	}
	return nil
}

// executeFlow runs the flow steps and checks each completion against its
// expect clause.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) {
	for i, step := range flow {
		res, err := h.invoke(ctx, step.Invoke, step.Args, result)
		got := classify(err)

		if step.Expect == nil {
			if err != nil {
				result.AddError(fmt.Sprintf("flow step %d (%s): unexpected %s: %v", i, step.Invoke, got, err))
			}
			continue
		}
		if got != step.Expect.Case {
			msg := fmt.Sprintf("flow step %d (%s): expected case %q, got %q", i, step.Invoke, step.Expect.Case, got)
			if err != nil {
				msg += fmt.Sprintf(" (%v)", err)
			}
			result.AddError(msg)
			continue
		}
		if len(step.Expect.Result) > 0 && !matchArgs(normalize(res), step.Expect.Result) {
			result.AddError(fmt.Sprintf("flow step %d (%s): result mismatch: expected %v, got %v",
				i, step.Invoke, step.Expect.Result, res))
		}
	}
}

// invoke traces and runs one action.
func (h *Harness) invoke(ctx context.Context, action string, args map[string]interface{}, result *Result) (map[string]interface{}, error) {
	h.seq++
	result.AddInvocationTrace(action, traceArgs(args), h.seq)

	fn, ok := actions[action]
	var (
		res map[string]interface{}
		err error
	)
	if !ok {
		err = fmt.Errorf("unknown action %q", action)
	} else {
		res, err = fn(ctx, h, argSet(args))
	}

	h.seq++
	var traced interface{}
	if res != nil {
		traced = res
	}
	result.AddCompletionTrace(classify(err), traced, h.seq)
	return res, err
}

func traceArgs(args map[string]interface{}) interface{} {
	if len(args) == 0 {
		return nil
	}
	return args
}

// classify maps an action error to its output case.
func classify(err error) string {
	var stockUpdate *sales.StockUpdateError
	switch {
	case err == nil:
		return CaseSuccess
	case errors.As(err, &stockUpdate):
		return CaseStockUpdateFailed
	case errors.Is(err, sales.ErrEmptyCart):
		return CaseEmptyCart
	case errors.Is(err, sales.ErrInsufficientStock):
		return CaseInsufficientStock
	case errors.Is(err, sales.ErrInsufficientCash):
		return CaseInsufficientCash
	case errors.Is(err, sales.ErrUnknownPaymentMethod):
		return CaseUnknownPaymentMethod
	case errors.Is(err, catalog.ErrProductExists):
		return CaseProductExists
	case errors.Is(err, catalog.ErrUnknownCategory):
		return CaseUnknownCategory
	case errors.Is(err, catalog.ErrCategoryExists):
		return CaseCategoryExists
	case errors.Is(err, store.ErrRecordNotFound):
		return CaseProductNotFound
	case errors.Is(err, store.ErrDuplicateKey):
		return CaseDuplicateKey
	case errors.Is(err, model.ErrInvalidRecord), errors.Is(err, store.ErrInvalidRecord):
		return CaseInvalidRecord
	default:
		return CaseError
	}
}
