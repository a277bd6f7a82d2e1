package barrier

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunAllRunsEveryWorker(t *testing.T) {
	const workers = 8
	b := New(workers)
	b.SetSettleInterval(10 * time.Millisecond)

	var mu sync.Mutex
	seen := make(map[int]int)

	b.RunAll(func(wID int) {
		b.Wait()
		mu.Lock()
		seen[wID]++
		mu.Unlock()
	})

	if len(seen) != workers {
		t.Fatalf("saw %d worker ids, want %d", len(seen), workers)
	}
	for w, n := range seen {
		if n != 1 {
			t.Errorf("worker %d ran %d times, want 1", w, n)
		}
	}
}

func TestWaitBlocksUntilAllSpawned(t *testing.T) {
	const workers = 16
	b := New(workers)
	b.SetSettleInterval(50 * time.Millisecond)

	var spawned atomic.Int32
	var premature atomic.Int32

	b.RunAll(func(wID int) {
		spawned.Add(1)
		b.Wait()
		// After release every goroutine must already exist.
		if int(spawned.Load()) != workers {
			premature.Add(1)
		}
	})

	if n := premature.Load(); n != 0 {
		t.Errorf("%d workers released before all were spawned", n)
	}
}

func TestRunOneVsRestSplit(t *testing.T) {
	const workers = 8
	b := New(workers)
	b.SetSettleInterval(10 * time.Millisecond)

	var mu sync.Mutex
	var soloIDs, restIDs []int

	b.RunOneVsRest(
		func(wID int) {
			b.Wait()
			mu.Lock()
			soloIDs = append(soloIDs, wID)
			mu.Unlock()
		},
		func(wID int) {
			b.Wait()
			mu.Lock()
			restIDs = append(restIDs, wID)
			mu.Unlock()
		},
	)

	if len(soloIDs) != 1 || soloIDs[0] != workers-1 {
		t.Errorf("solo ids = %v, want [%d]", soloIDs, workers-1)
	}
	if len(restIDs) != workers-1 {
		t.Fatalf("rest ran %d workers, want %d", len(restIDs), workers-1)
	}
	seen := make(map[int]bool)
	for _, id := range restIDs {
		if id < 0 || id >= workers-1 || seen[id] {
			t.Errorf("unexpected or duplicate rest id %d", id)
		}
		seen[id] = true
	}
}
