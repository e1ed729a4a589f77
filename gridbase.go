// Package gridbase is an in-memory table engine with two entry points:
// a restricted SELECT dialect evaluated over per-call table snapshots,
// and user-authored functions compiled and run in a sandboxed scripting
// language under a wall-clock budget. Nothing is persisted; every call
// carries the tables, views and functions it may see.
package gridbase

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/kartikbazzad/gridbase/catalog"
	"github.com/kartikbazzad/gridbase/internal/config"
	"github.com/kartikbazzad/gridbase/internal/logger"
	"github.com/kartikbazzad/gridbase/internal/metrics"
	"github.com/kartikbazzad/gridbase/internal/pool"
	"github.com/kartikbazzad/gridbase/internal/query"
	"github.com/kartikbazzad/gridbase/internal/sandbox"
	"github.com/kartikbazzad/gridbase/value"
)

// Result is an executed query: ordered column names plus ordered rows.
type Result = query.Result

// Request is the catalog one call may see. The engine never retains the
// tables past the call; mutation between calls is the caller's business.
type Request struct {
	Tables    []*catalog.Table
	Views     []*catalog.Table
	Functions []*catalog.FunctionDefinition
}

func (r Request) catalog() (*catalog.Catalog, error) {
	return catalog.New(r.Tables, r.Views, r.Functions)
}

// Engine evaluates queries and function calls. Safe for concurrent use.
type Engine struct {
	cfg      *config.Config
	log      *slog.Logger
	sandbox  *sandbox.Sandbox
	executor *query.Executor
	invoker  *pool.Invoker
}

// Option adjusts engine construction.
type Option func(*config.Config)

// WithBudget overrides the wall-clock budget for sandboxed functions.
func WithBudget(d time.Duration) Option {
	return func(c *config.Config) { c.Sandbox.Budget = d }
}

// WithFuel overrides the interpreter step limit per function call.
func WithFuel(n int64) Option {
	return func(c *config.Config) { c.Sandbox.Fuel = n }
}

// WithPoolSize overrides the goroutine pool used for FN projections.
// A size of zero disables the pool; projections run sequentially.
func WithPoolSize(n int) Option {
	return func(c *config.Config) { c.Pool.Size = n }
}

// New builds an engine from environment configuration plus options.
func New(opts ...Option) (*Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logger.Get()

	var invoker *pool.Invoker
	if cfg.Pool.Size > 0 {
		invoker, err = pool.NewInvoker(cfg.Pool.Size, cfg.Pool.ParallelThreshold)
		if err != nil {
			return nil, err
		}
	}

	return &Engine{
		cfg:      cfg,
		log:      log,
		sandbox:  sandbox.New(cfg.Sandbox, log),
		executor: query.NewExecutor(log, invoker),
		invoker:  invoker,
	}, nil
}

// Close releases the projection pool. The engine is unusable afterward.
func (e *Engine) Close() {
	if e.invoker != nil {
		e.invoker.Release()
	}
}

// Query parses and executes one SELECT statement against the request's
// catalog. FN projections resolve through the request's functions and
// run in the sandbox; a failed invocation nulls its cell only.
func (e *Engine) Query(ctx context.Context, req Request, text string) (*Result, error) {
	start := time.Now()
	cat, err := req.catalog()
	if err != nil {
		metrics.RecordQuery("catalog_error", time.Since(start))
		return nil, err
	}

	plan, err := query.Parse(text)
	if err != nil {
		metrics.RecordQuery("parse_error", time.Since(start))
		return nil, err
	}

	res, err := e.executor.Execute(ctx, plan, cat, e.functionInvoker(cat))
	if err != nil {
		metrics.RecordQuery("error", time.Since(start))
		return nil, err
	}
	metrics.RecordQuery("ok", time.Since(start))
	e.log.Debug("query executed",
		"from", plan.From, "rows", len(res.Rows), "elapsed", time.Since(start))
	return res, nil
}

// CallFunction runs one function from the request's catalog by name.
func (e *Engine) CallFunction(ctx context.Context, req Request, name string, args ...any) (value.Value, error) {
	cat, err := req.catalog()
	if err != nil {
		return value.Null(), err
	}
	def, ok := cat.Function(name)
	if !ok {
		return value.Null(), &UnknownFunctionError{Name: name, Available: cat.FunctionNames()}
	}
	return e.sandbox.Execute(ctx, def, args, cat, 0)
}

// Eval dispatches raw input: "=name(...)" evaluates as a standalone
// call expression, anything else as a query. Call results come back as
// a single-row, single-column result so both paths render the same way.
func (e *Engine) Eval(ctx context.Context, req Request, input string) (*Result, error) {
	if sandbox.IsCallExpression(input) {
		cat, err := req.catalog()
		if err != nil {
			return nil, err
		}
		v, err := e.sandbox.EvalCall(ctx, input, cat, 0)
		if err != nil {
			return nil, err
		}
		row := value.NewObject()
		row.Set("result", v)
		return &Result{Columns: []string{"result"}, Rows: []*value.Object{row}}, nil
	}
	return e.Query(ctx, req, input)
}

// functionInvoker adapts the sandbox to the executor's FN interface.
func (e *Engine) functionInvoker(cat *catalog.Catalog) query.FunctionInvoker {
	return query.InvokerFunc(func(ctx context.Context, name string, args []value.Value) (value.Value, error) {
		def, ok := cat.Function(name)
		if !ok {
			return value.Null(), &UnknownFunctionError{Name: name, Available: cat.FunctionNames()}
		}
		raw := make([]any, len(args))
		for i, v := range args {
			raw[i] = v
		}
		return e.sandbox.Execute(ctx, def, raw, cat, 0)
	})
}

// MetricsHandler exposes the Prometheus metrics endpoint.
func MetricsHandler() http.Handler {
	return metrics.Handler()
}
