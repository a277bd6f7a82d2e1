// Package barrier provides the two-phase start barrier for concurrent
// verification workers.
//
// Phase one spawns every worker goroutine; each worker builds its purely local
// state (id sequences, scan bounds) and then blocks on Wait. Phase two, after
// a fixed settle interval that lets every goroutine reach its wait point,
// flips a shared ready flag and broadcasts, releasing all workers at
// approximately the same instant. Exact simultaneity is not required: the
// index's own concurrency control is what is under test, not the barrier.
//
// The barrier carries no data; all shared state a worker touches after release
// belongs to the index under test or to explicitly synchronized collectors.
package barrier

import (
	"sync"
	"time"
)

// SettleInterval is how long the coordinator waits between spawning workers
// and releasing them, so that every goroutine reaches its Wait call first.
const SettleInterval = 100 * time.Millisecond

// StartBarrier releases a group of workers simultaneously.
//
// A StartBarrier is single-use: RunAll or RunOneVsRest creates the worker
// group, releases it, and joins it. There is no timeout on the join; a worker
// that never returns hangs the run, which is the desired failure mode when
// the index under test livelocks.
type StartBarrier struct {
	workers int
	settle  time.Duration

	mu    sync.Mutex
	cond  *sync.Cond
	ready bool
}

// New returns a barrier for the given number of workers.
func New(workers int) *StartBarrier {
	b := &StartBarrier{
		workers: workers,
		settle:  SettleInterval,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// SetSettleInterval overrides the settle interval. Tests use a shorter value.
func (b *StartBarrier) SetSettleInterval(d time.Duration) {
	b.settle = d
}

// Wait blocks the calling worker until the barrier is released. Workers must
// call Wait after building local state and before the first operation on the
// index under test.
func (b *StartBarrier) Wait() {
	b.mu.Lock()
	for !b.ready {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// RunAll spawns one worker goroutine per index in [0, workers), each running
// fn with its worker id, releases them together, and blocks until all return.
func (b *StartBarrier) RunAll(fn func(wID int)) {
	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func(wID int) {
			defer wg.Done()
			fn(wID)
		}(i)
	}
	b.release()
	wg.Wait()
}

// RunOneVsRest runs the distinguished worker (id workers-1) under solo and
// every other worker under rest, with the same release semantics as RunAll.
func (b *StartBarrier) RunOneVsRest(solo, rest func(wID int)) {
	var wg sync.WaitGroup
	for i := 0; i < b.workers-1; i++ {
		wg.Add(1)
		go func(wID int) {
			defer wg.Done()
			rest(wID)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		solo(b.workers - 1)
	}()
	b.release()
	wg.Wait()
}

func (b *StartBarrier) release() {
	time.Sleep(b.settle)
	b.mu.Lock()
	b.ready = true
	b.mu.Unlock()
	b.cond.Broadcast()
}
