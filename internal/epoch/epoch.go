// Package epoch implements the global epoch counter and reader guards used
// for snapshot reads and safe version reclamation.
//
// The global epoch is a monotonic watermark: every mutation is stamped with
// the epoch current at write time. A reader that needs a stable view creates
// a guard, which pins the epoch current at creation until the guard is
// released. Reclamation must never touch versions still visible at a pinned
// epoch.
package epoch

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Manager owns the global epoch and the registry of live guards.
// All methods are safe for concurrent use.
type Manager struct {
	global atomic.Uint64

	mu     sync.Mutex
	guards map[*Guard]struct{}
}

// NewManager returns a manager with the global epoch at 1.
func NewManager() *Manager {
	m := &Manager{guards: make(map[*Guard]struct{})}
	m.global.Store(1)
	return m
}

// GlobalEpoch returns the current global epoch.
func (m *Manager) GlobalEpoch() uint64 {
	return m.global.Load()
}

// Forward advances the global epoch and returns the new value.
func (m *Manager) Forward() uint64 {
	return m.global.Add(1)
}

// CreateGuard pins the current epoch and returns the guard holding the pin.
// The caller must release the guard on every exit path, or reclamation stalls.
func (m *Manager) CreateGuard() *Guard {
	g := &Guard{mgr: m, epoch: m.global.Load()}
	m.mu.Lock()
	m.guards[g] = struct{}{}
	m.mu.Unlock()
	return g
}

// ProtectedEpochs returns a fresh guard plus the descending, deduplicated
// list of epochs some reader may still observe: the current epoch, its
// predecessor, and the pinned epoch of every live guard. The returned guard
// itself pins the current epoch; the last element of the list is the oldest
// protected epoch, which snapshot operations use as their view.
func (m *Manager) ProtectedEpochs() (*Guard, []uint64) {
	g := m.CreateGuard()

	m.mu.Lock()
	set := make(map[uint64]struct{}, len(m.guards)+2)
	for live := range m.guards {
		set[live.epoch] = struct{}{}
	}
	m.mu.Unlock()

	current := m.global.Load()
	set[current] = struct{}{}
	if current > 1 {
		set[current-1] = struct{}{}
	}

	epochs := make([]uint64, 0, len(set))
	for e := range set {
		epochs = append(epochs, e)
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] > epochs[j] })
	return g, epochs
}

// MinProtected returns the oldest epoch any live reader may observe.
// Versions only visible below this epoch are safe to reclaim.
func (m *Manager) MinProtected() uint64 {
	min := m.global.Load()
	m.mu.Lock()
	for g := range m.guards {
		if g.epoch < min {
			min = g.epoch
		}
	}
	m.mu.Unlock()
	return min
}

// Guard pins one epoch for its lifetime.
type Guard struct {
	mgr      *Manager
	epoch    uint64
	released atomic.Bool
}

// Epoch returns the pinned epoch.
func (g *Guard) Epoch() uint64 {
	return g.epoch
}

// Release drops the pin. Safe to call more than once.
func (g *Guard) Release() {
	if g.released.Swap(true) {
		return
	}
	g.mgr.mu.Lock()
	delete(g.mgr.guards, g)
	g.mgr.mu.Unlock()
}
