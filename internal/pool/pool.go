// Package pool runs per-row function projections on a bounded goroutine
// pool. Each task writes its result by row index, so output ordering
// always matches input ordering regardless of scheduling.
package pool

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Invoker wraps an ants pool with an order-preserving fan-out helper.
type Invoker struct {
	pool      *ants.Pool
	threshold int
}

// NewInvoker creates an invoker with the given pool size. Jobs below
// threshold rows run sequentially on the caller's goroutine.
func NewInvoker(size, threshold int) (*Invoker, error) {
	if size <= 0 {
		size = 1
	}
	if threshold <= 0 {
		threshold = 1
	}
	p, err := ants.NewPool(size, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	return &Invoker{pool: p, threshold: threshold}, nil
}

// Map runs fn(i) for every i in [0, n). fn must write its own result
// slot; Map only coordinates scheduling. Cancellation is cooperative:
// tasks already submitted run to completion, fn is expected to observe
// ctx itself.
func (iv *Invoker) Map(ctx context.Context, n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if iv == nil || n < iv.threshold {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				return
			}
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		wg.Add(1)
		if err := iv.pool.Submit(func() {
			defer wg.Done()
			fn(i)
		}); err != nil {
			// Pool saturated or released: degrade to inline execution.
			fn(i)
			wg.Done()
		}
	}
	wg.Wait()
}

// Running returns the number of busy pool goroutines.
func (iv *Invoker) Running() int {
	if iv == nil {
		return 0
	}
	return iv.pool.Running()
}

// Release shuts the pool down.
func (iv *Invoker) Release() {
	if iv != nil {
		iv.pool.Release()
	}
}
