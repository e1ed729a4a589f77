package pool

import (
	"context"
	"testing"
)

func TestMapPreservesOrder(t *testing.T) {
	iv, err := NewInvoker(4, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer iv.Release()

	const n = 500
	out := make([]int, n)
	iv.Map(context.Background(), n, func(i int) {
		out[i] = i * 2
	})

	for i := 0; i < n; i++ {
		if out[i] != i*2 {
			t.Fatalf("slot %d = %d, want %d", i, out[i], i*2)
		}
	}
}

func TestMapSequentialBelowThreshold(t *testing.T) {
	iv, err := NewInvoker(4, 1000)
	if err != nil {
		t.Fatal(err)
	}
	defer iv.Release()

	order := make([]int, 0, 10)
	iv.Map(context.Background(), 10, func(i int) {
		// Sequential path: no data race appending without a lock.
		order = append(order, i)
	})
	for i, got := range order {
		if got != i {
			t.Fatalf("sequential path ran out of order: %v", order)
		}
	}
}

func TestMapCancelledContext(t *testing.T) {
	iv, err := NewInvoker(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer iv.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := 0
	iv.Map(ctx, 100, func(i int) { ran++ })
	if ran == 100 {
		t.Error("cancelled context should stop submission early")
	}
}

func TestNilInvokerRunsInline(t *testing.T) {
	var iv *Invoker
	sum := 0
	iv.Map(context.Background(), 5, func(i int) { sum += i })
	if sum != 10 {
		t.Errorf("expected inline execution, sum=%d", sum)
	}
}
