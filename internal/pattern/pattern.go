// Package pattern builds the deterministic per-worker id sequences that drive
// index verification.
//
// The global id space is [0, KeyNum(cfg)). Each worker owns the strided slice
// {threadNum*k + wID : k = 1..execNum}, so no two workers ever touch the same
// id and every scenario's id-to-worker partition is a bijection. Sequences are
// reproducible: the Random pattern and the structural-modification sampler use
// a pseudo-random generator with a fixed seed, never reseeded per run.
package pattern

import (
	"golang.org/x/exp/rand"
)

// Seed is the fixed seed for all shuffled and sampled sequences.
const Seed = 10

// AccessPattern determines the order in which a worker visits its ids.
type AccessPattern int

const (
	// Sequential visits ids in ascending order.
	Sequential AccessPattern = iota
	// Reverse visits ids in descending order.
	Reverse
	// Random visits ids in a seeded shuffle of the ascending order.
	Random
)

// String returns the pattern name.
func (p AccessPattern) String() string {
	switch p {
	case Sequential:
		return "Sequential"
	case Reverse:
		return "Reverse"
	case Random:
		return "Random"
	default:
		return "Unknown"
	}
}

// Generator produces id sequences for a fixed (execNum, threadNum) pair.
type Generator struct {
	execNum   int
	threadNum int
	seed      uint64
}

// NewGenerator returns a generator for the given per-worker operation count
// and worker count, using the fixed default seed.
func NewGenerator(execNum, threadNum int) *Generator {
	return NewSeededGenerator(execNum, threadNum, Seed)
}

// NewSeededGenerator is NewGenerator with an explicit seed, for runs that
// want fresh shuffles. The id partition does not depend on the seed, only
// the visit order and the structural-modification sample do.
func NewSeededGenerator(execNum, threadNum int, seed uint64) *Generator {
	return &Generator{execNum: execNum, threadNum: threadNum, seed: seed}
}

// KeyNum returns the size of the id universe. Two extra strides keep every
// scenario's highest id (bulkload uses execNum+1 strides) inside the universe.
func (g *Generator) KeyNum() int {
	return (g.execNum + 2) * g.threadNum
}

// TargetIDs returns the ordered id sequence for one worker:
// threadNum*k + wID for k in 1..execNum, ordered by the access pattern.
func (g *Generator) TargetIDs(wID int, p AccessPattern) []int {
	ids := make([]int, 0, g.execNum)
	if p == Reverse {
		for k := g.execNum; k > 0; k-- {
			ids = append(ids, g.threadNum*k+wID)
		}
	} else {
		for k := 1; k <= g.execNum; k++ {
			ids = append(ids, g.threadNum*k+wID)
		}
	}

	if p == Random {
		rng := rand.New(rand.NewSource(g.seed))
		rng.Shuffle(len(ids), func(i, j int) {
			ids[i], ids[j] = ids[j], ids[i]
		})
	}
	return ids
}

// FullRange returns the flat sequence 0..n-1, used for full-space reads.
func (g *Generator) FullRange(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// SMOTargetIDs samples execNum ids concentrated in the first half of the
// worker-indexed slots: threadNum*U(1,execNum) + U(0,threadNum/2-1). Writers
// and deleters hammer that half while readers and scanners observe a key range
// that stays structurally hot but logically stable.
func (g *Generator) SMOTargetIDs() []int {
	rng := rand.New(rand.NewSource(g.seed))
	ids := make([]int, 0, g.execNum)
	for i := 0; i < g.execNum; i++ {
		stride := 1 + rng.Intn(g.execNum)
		slot := rng.Intn(g.threadNum / 2)
		ids = append(ids, g.threadNum*stride+slot)
	}
	return ids
}
