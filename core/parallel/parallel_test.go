package parallel

import (
	"sync/atomic"
	"testing"
)

func TestParallelizeCoversEveryItem(t *testing.T) {
	const items = 1000

	var visited [items]int32
	Parallelize(items, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&visited[i], 1)
		}
	})

	for i, count := range visited {
		if count != 1 {
			t.Fatalf("item %d visited %d times, want exactly once", i, count)
		}
	}
}

func TestParallelizeZeroItems(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) {
		called = true
	})
	if called {
		t.Error("fn should not run for zero items")
	}
}

func TestParallelizeWithThresholdSequentialBelow(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		if start != 0 || end != 10 {
			t.Errorf("sequential path should cover the full range, got (%d, %d)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("expected one sequential call, got %d", calls)
	}
}

func TestParallelizeWithThresholdParallelAbove(t *testing.T) {
	const items = 500

	var total int64
	ParallelizeWithThreshold(items, 100, func(start, end int) {
		atomic.AddInt64(&total, int64(end-start))
	})

	if total != items {
		t.Errorf("covered %d items, want %d", total, items)
	}
}
