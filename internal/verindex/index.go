package verindex

import (
	"math"
	"sync"

	"github.com/aalhour/indexharness/internal/epoch"
	"github.com/aalhour/indexharness/internal/sut"
)

// liveView makes every stamped version visible.
const liveView = uint64(math.MaxUint64)

// Index is an epoch-versioned ordered key-value index. All operations are
// safe for concurrent use; thread safety is entirely internal, callers never
// lock around it.
type Index struct {
	list *skiplist
	mgr  *epoch.Manager
}

// New returns an empty index using the given comparator and epoch manager.
func New(cmp Comparator, mgr *epoch.Manager) *Index {
	return &Index{list: newSkiplist(cmp), mgr: mgr}
}

// Write upserts key with payload, stamping the current global epoch.
func (idx *Index) Write(key, payload []byte, keyLen, payLen int) int {
	n := idx.list.getOrCreate(key[:keyLen])
	return n.apply(opWrite, idx.mgr.GlobalEpoch(), clone(payload[:payLen]), idx.mgr.MinProtected())
}

// Insert adds key; fails with a nonzero code if a live version exists.
func (idx *Index) Insert(key, payload []byte, keyLen, payLen int) int {
	n := idx.list.getOrCreate(key[:keyLen])
	return n.apply(opInsert, idx.mgr.GlobalEpoch(), clone(payload[:payLen]), idx.mgr.MinProtected())
}

// Update replaces key's payload; fails with a nonzero code if key is absent.
func (idx *Index) Update(key, payload []byte, keyLen, payLen int) int {
	n := idx.list.find(key[:keyLen])
	if n == nil {
		return 1
	}
	return n.apply(opUpdate, idx.mgr.GlobalEpoch(), clone(payload[:payLen]), idx.mgr.MinProtected())
}

// Delete appends a tombstone; fails with a nonzero code if key is absent.
func (idx *Index) Delete(key []byte, keyLen int) int {
	n := idx.list.find(key[:keyLen])
	if n == nil {
		return 1
	}
	return n.apply(opDelete, idx.mgr.GlobalEpoch(), nil, idx.mgr.MinProtected())
}

// Read returns the newest payload for key.
func (idx *Index) Read(key []byte, keyLen int) ([]byte, bool) {
	n := idx.list.find(key[:keyLen])
	if n == nil {
		return nil, false
	}
	return n.readAt(liveView)
}

// SnapshotRead returns the payload visible at the guard's pinned epoch.
// Mutations stamped at or after the capture epoch must not surface, even
// though they run concurrently with this read. The protected set is the
// reclamation contract: versions visible at any listed epoch are retained.
func (idx *Index) SnapshotRead(key []byte, guard *epoch.Guard, protected []uint64, keyLen int) ([]byte, bool) {
	n := idx.list.find(key[:keyLen])
	if n == nil {
		return nil, false
	}
	return n.readAt(snapshotView(guard, protected))
}

// Scan returns a cursor over live entries within [begin, end) bounds, in
// ascending key order. Nil bounds are unbounded.
func (idx *Index) Scan(begin, end *sut.Bound) sut.Cursor {
	return idx.newCursor(begin, end, liveView)
}

// SnapshotScan scans at the epoch snapshot described by the protected set.
func (idx *Index) SnapshotScan(guard *epoch.Guard, protected []uint64, begin, end *sut.Bound) sut.Cursor {
	return idx.newCursor(begin, end, snapshotView(guard, protected))
}

// ScanAll returns a full-range cursor over live entries. The guard keeps the
// cursor's versions protected from reclamation while the caller iterates.
func (idx *Index) ScanAll(guard *epoch.Guard) sut.Cursor {
	return idx.newCursor(nil, nil, liveView)
}

// Bulkload builds the index from entries pre-sorted by key. Payload
// preparation fans out over the given parallelism; linking is sequential.
// Defined only while no concurrent mutation is in flight.
func (idx *Index) Bulkload(entries []sut.Entry, parallelism int) int {
	if parallelism < 1 {
		parallelism = 1
	}
	stamp := idx.mgr.GlobalEpoch()

	prepared := make([]version, len(entries))
	chunk := (len(entries) + parallelism - 1) / parallelism
	var wg sync.WaitGroup
	for p := 0; p < parallelism && p*chunk < len(entries); p++ {
		lo, hi := p*chunk, (p+1)*chunk
		if hi > len(entries) {
			hi = len(entries)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				prepared[i] = version{
					epoch:   stamp,
					payload: clone(entries[i].Payload[:entries[i].PayLen]),
				}
			}
		}(lo, hi)
	}
	wg.Wait()

	for i, e := range entries {
		n := idx.list.getOrCreate(clone(e.Key[:e.KeyLen]))
		n.mu.Lock()
		n.versions = append([]version{prepared[i]}, n.versions...)
		n.mu.Unlock()
	}
	return 0
}

// snapshotView derives the visibility epoch for a snapshot operation: the
// epoch pinned at capture time. Visibility is strict (version epoch < view),
// so versions stamped during or after the capture epoch stay hidden.
func snapshotView(guard *epoch.Guard, protected []uint64) uint64 {
	if guard != nil {
		return guard.Epoch()
	}
	if len(protected) > 0 {
		return protected[0]
	}
	return liveView
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// cursor walks level 0 of the skiplist, surfacing entries visible at its view
// epoch. Forward-only; Key and Payload are valid after Next returns true.
type cursor struct {
	list *skiplist
	end  *sut.Bound
	view uint64

	node    *node
	started bool
	key     []byte
	payload []byte
}

func (idx *Index) newCursor(begin, end *sut.Bound, view uint64) *cursor {
	c := &cursor{list: idx.list, end: end, view: view}
	if begin == nil {
		c.node = idx.list.head.loadNext(0)
	} else {
		c.node = idx.list.findGreaterOrEqual(begin.Key[:begin.Len], nil)
		if c.node != nil && !begin.Inclusive && idx.list.compare(c.node.key, begin.Key[:begin.Len]) == 0 {
			c.node = c.node.loadNext(0)
		}
	}
	return c
}

// Next advances to the next visible entry, returning false at the end bound
// or list end. An exhausted cursor keeps returning false.
func (c *cursor) Next() bool {
	for {
		if c.started {
			if c.node == nil {
				return false
			}
			c.node = c.node.loadNext(0)
		}
		c.started = true
		if c.node == nil {
			return false
		}
		if c.end != nil {
			cmp := c.list.compare(c.node.key, c.end.Key[:c.end.Len])
			if cmp > 0 || (cmp == 0 && !c.end.Inclusive) {
				c.node = nil
				return false
			}
		}
		payload, ok := c.node.readAt(c.view)
		if !ok {
			continue
		}
		c.key = c.node.key
		c.payload = payload
		return true
	}
}

// Key returns the key at the cursor position.
func (c *cursor) Key() []byte { return c.key }

// Payload returns the payload at the cursor position.
func (c *cursor) Payload() []byte { return c.payload }
