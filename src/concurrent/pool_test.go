package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestParallelMapPreservesOrder(t *testing.T) {
	items := []int{5, 3, 1, 4, 2}
	got, err := ParallelMap(context.Background(), items, func(n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	}, 5)
	if err != nil {
		t.Fatal(err)
	}
	for i, n := range items {
		if got[i] != n*10 {
			t.Fatalf("got[%d] = %d, want %d", i, got[i], n*10)
		}
	}
}

func TestParallelMapEmptyInput(t *testing.T) {
	got, err := ParallelMap(context.Background(), nil, func(int) (int, error) { return 0, nil }, 4)
	if err != nil || got != nil {
		t.Fatalf("got %v, %v; want nil, nil", got, err)
	}
}

func TestParallelMapReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	_, err := ParallelMap(context.Background(), []int{1, 2, 3}, func(n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	}, 2)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestParallelMapRespectsConcurrencyLimit(t *testing.T) {
	var current, peak atomic.Int64
	items := make([]int, 20)
	_, err := ParallelMap(context.Background(), items, func(int) (int, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return 0, nil
	}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 3 {
		t.Fatalf("observed %d concurrent tasks, limit is 3", peak.Load())
	}
}

func TestParallelMapCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// The first task to run cancels the context while holding the only
	// slot, so the queued task must fail with the context error.
	_, err := ParallelMap(ctx, []int{1, 2}, func(n int) (int, error) {
		cancel()
		time.Sleep(20 * time.Millisecond)
		return n, nil
	}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
