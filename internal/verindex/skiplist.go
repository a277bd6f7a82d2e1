// Package verindex implements an epoch-versioned concurrent ordered index.
//
// It is the reference system-under-test for the verification harness: a
// skiplist keyed by user bytes where every key carries a chain of versions,
// each stamped with the global epoch current at write time. Point reads and
// scans are lock-free over the skiplist structure; version chains are guarded
// by short per-node critical sections. Nodes are never unlinked — a delete
// appends a tombstone version — so cursors stay valid under concurrent
// structural modification.
package verindex

import (
	"math/rand"
	"sync"
	"sync/atomic"
)

const (
	maxHeight       = 12
	branchingFactor = 4
)

// Comparator returns a three-way comparison of two keys.
type Comparator func(a, b []byte) int

// version is one entry in a node's chain, newest first.
type version struct {
	epoch     uint64
	payload   []byte
	tombstone bool
}

// opKind selects the mutation applied to a version chain.
type opKind int

const (
	opWrite opKind = iota
	opInsert
	opUpdate
	opDelete
)

type node struct {
	key  []byte
	next []atomic.Pointer[node]

	mu       sync.Mutex
	versions []version // newest first
}

func newNode(key []byte, height int) *node {
	return &node{
		key:  key,
		next: make([]atomic.Pointer[node], height),
	}
}

func (n *node) loadNext(level int) *node {
	return n.next[level].Load()
}

func (n *node) storeNext(level int, to *node) {
	n.next[level].Store(to)
}

// apply mutates the version chain, returning 0 on success and 1 when the
// operation's existence precondition fails. Versions no reader can observe
// anymore are pruned in the same critical section.
func (n *node) apply(kind opKind, epoch uint64, payload []byte, minProtected uint64) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	live := len(n.versions) > 0 && !n.versions[0].tombstone
	switch kind {
	case opInsert:
		if live {
			return 1
		}
	case opUpdate, opDelete:
		if !live {
			return 1
		}
	}

	v := version{epoch: epoch, tombstone: kind == opDelete}
	if !v.tombstone {
		v.payload = payload
	}
	n.versions = append([]version{v}, n.versions...)
	n.prune(minProtected)
	return 0
}

// prune drops versions older than the newest one a reader pinned at
// minProtected could still observe. Requires n.mu.
func (n *node) prune(minProtected uint64) {
	for i, v := range n.versions {
		if v.epoch < minProtected {
			n.versions = n.versions[:i+1]
			return
		}
	}
}

// readAt returns the newest payload stamped strictly before the view epoch.
// Strict visibility keeps mutations issued during the capture epoch out of
// the snapshot. A tombstone or an empty chain reads as not found.
func (n *node) readAt(view uint64) ([]byte, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, v := range n.versions {
		if v.epoch < view {
			if v.tombstone {
				return nil, false
			}
			return v.payload, true
		}
	}
	return nil, false
}

// skiplist is the ordered node store. Reads are lock-free; structural inserts
// are serialized by writeMu. Adapted from a lock-free-read skiplist with
// externally synchronized writes.
type skiplist struct {
	head      *node
	height    atomic.Int32
	compare   Comparator
	writeMu   sync.Mutex
	rng       *rand.Rand
	scaledInv uint32
}

func newSkiplist(cmp Comparator) *skiplist {
	sl := &skiplist{
		head:      newNode(nil, maxHeight),
		compare:   cmp,
		rng:       rand.New(rand.NewSource(0xDEADBEEF)),
		scaledInv: uint32(0xFFFFFFFF) / uint32(branchingFactor),
	}
	sl.height.Store(1)
	return sl
}

// findGreaterOrEqual returns the first node with key >= target, filling prev
// with the predecessor at each level when non-nil.
func (sl *skiplist) findGreaterOrEqual(key []byte, prev []*node) *node {
	x := sl.head
	level := sl.maxLevel() - 1
	for {
		next := x.loadNext(level)
		if next != nil && sl.compare(key, next.key) > 0 {
			x = next
			continue
		}
		if prev != nil {
			prev[level] = x
		}
		if level == 0 {
			return next
		}
		level--
	}
}

// getOrCreate returns the node for key, inserting it if absent.
func (sl *skiplist) getOrCreate(key []byte) *node {
	if n := sl.find(key); n != nil {
		return n
	}

	sl.writeMu.Lock()
	defer sl.writeMu.Unlock()

	prev := make([]*node, maxHeight)
	x := sl.findGreaterOrEqual(key, prev)
	if x != nil && sl.compare(key, x.key) == 0 {
		return x
	}

	height := sl.randomHeight()
	maxH := sl.maxLevel()
	if height > maxH {
		for i := maxH; i < height; i++ {
			prev[i] = sl.head
		}
		sl.height.Store(int32(height))
	}

	n := newNode(key, height)
	for i := 0; i < height; i++ {
		n.storeNext(i, prev[i].loadNext(i))
		prev[i].storeNext(i, n)
	}
	return n
}

// find returns the node for key, or nil.
func (sl *skiplist) find(key []byte) *node {
	x := sl.findGreaterOrEqual(key, nil)
	if x != nil && sl.compare(key, x.key) == 0 {
		return x
	}
	return nil
}

func (sl *skiplist) maxLevel() int {
	h := int(sl.height.Load())
	if h < 1 {
		return 1
	}
	return h
}

// randomHeight requires writeMu: the generator is not safe for concurrent use.
func (sl *skiplist) randomHeight() int {
	height := 1
	for height < maxHeight && sl.rng.Uint32() < sl.scaledInv {
		height++
	}
	return height
}
