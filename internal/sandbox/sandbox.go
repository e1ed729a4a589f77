package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kartikbazzad/gridbase/catalog"
	"github.com/kartikbazzad/gridbase/internal/config"
	"github.com/kartikbazzad/gridbase/internal/metrics"
	"github.com/kartikbazzad/gridbase/value"
)

// Sandbox compiles and runs function bodies under a wall-clock budget.
// Safe for concurrent use; each call gets its own interpreter.
type Sandbox struct {
	cache    *programCache
	budget   time.Duration
	fuel     int64
	maxDepth int
	log      *slog.Logger
}

func New(cfg config.SandboxConfig, log *slog.Logger) *Sandbox {
	if log == nil {
		log = slog.Default()
	}
	budget := cfg.Budget
	if budget <= 0 {
		budget = 5 * time.Second
	}
	fuel := cfg.Fuel
	if fuel <= 0 {
		fuel = 50_000_000
	}
	return &Sandbox{
		cache:    newProgramCache(cfg.CacheSize),
		budget:   budget,
		fuel:     fuel,
		maxDepth: cfg.MaxCallDepth,
		log:      log,
	}
}

type execResult struct {
	val value.Value
	err error
}

// Execute compiles (or reuses) the body, binds arguments against the
// catalog and runs the program. A non-positive budget falls back to the
// configured default. The returned error is terminal for this call
// only.
func (s *Sandbox) Execute(ctx context.Context, def *catalog.FunctionDefinition, args []any, cat *catalog.Catalog, budget time.Duration) (value.Value, error) {
	prog, ok := s.cache.get(def.Name, def.Body)
	if !ok {
		var err error
		prog, err = Compile(def.Body)
		if err != nil {
			metrics.RecordInvocation("compile_error")
			return value.Null(), err
		}
		s.cache.put(def.Name, def.Body, prog)
	}

	bound, err := PrepareArguments(def, args, cat)
	if err != nil {
		metrics.RecordInvocation("bind_error")
		return value.Null(), err
	}

	if budget <= 0 {
		budget = s.budget
	}
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	id := uuid.NewString()
	start := time.Now()
	done := make(chan execResult, 1)
	go func() {
		in := newInterp(runCtx, s.fuel, s.maxDepth, bound)
		v, err := in.run(prog)
		done <- execResult{val: v, err: err}
	}()

	var res execResult
	select {
	case res = <-done:
	case <-runCtx.Done():
		// The interpreter observes the context within a few hundred
		// steps and exits on its own; the call is already lost.
		metrics.RecordInvocation("timeout")
		metrics.IncTimeout()
		s.log.Warn("function execution timed out",
			"fn", def.Name, "invocation", id, "budget", budget)
		return value.Null(), ErrExecutionTimeout
	}

	elapsed := time.Since(start)
	if res.err != nil {
		status := "error"
		switch {
		case errors.Is(res.err, ErrExecutionTimeout), errors.Is(res.err, ErrFuelExhausted):
			status = "timeout"
			metrics.IncTimeout()
		case errors.Is(res.err, ErrReadOnlyViolation):
			status = "readonly_violation"
		}
		metrics.RecordInvocation(status)
		s.log.Debug("function execution failed",
			"fn", def.Name, "invocation", id, "elapsed", elapsed, "error", res.err)
		return value.Null(), res.err
	}

	metrics.RecordInvocation("ok")
	s.log.Debug("function executed",
		"fn", def.Name, "invocation", id, "elapsed", elapsed)
	return res.val, nil
}
