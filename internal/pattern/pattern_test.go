package pattern

import (
	"sort"
	"testing"
)

const (
	testExecNum   = 50
	testThreadNum = 8
)

func TestTargetIDsSequential(t *testing.T) {
	g := NewGenerator(testExecNum, testThreadNum)
	ids := g.TargetIDs(3, Sequential)

	if len(ids) != testExecNum {
		t.Fatalf("got %d ids, want %d", len(ids), testExecNum)
	}
	for k := 1; k <= testExecNum; k++ {
		want := testThreadNum*k + 3
		if ids[k-1] != want {
			t.Errorf("ids[%d] = %d, want %d", k-1, ids[k-1], want)
		}
	}
}

func TestTargetIDsReverse(t *testing.T) {
	g := NewGenerator(testExecNum, testThreadNum)
	seq := g.TargetIDs(5, Sequential)
	rev := g.TargetIDs(5, Reverse)

	for i := range seq {
		if rev[i] != seq[len(seq)-1-i] {
			t.Fatalf("rev[%d] = %d, want %d", i, rev[i], seq[len(seq)-1-i])
		}
	}
}

func TestTargetIDsRandomDeterministic(t *testing.T) {
	g := NewGenerator(testExecNum, testThreadNum)
	first := g.TargetIDs(2, Random)
	second := g.TargetIDs(2, Random)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("shuffle not deterministic at %d: %d vs %d", i, first[i], second[i])
		}
	}

	// Same membership as the sequential sequence.
	sorted := append([]int(nil), first...)
	sort.Ints(sorted)
	for i, id := range g.TargetIDs(2, Sequential) {
		if sorted[i] != id {
			t.Fatalf("shuffled sequence lost id %d", id)
		}
	}
}

func TestPartitionIsBijection(t *testing.T) {
	g := NewGenerator(testExecNum, testThreadNum)

	seen := make(map[int]int)
	for w := 0; w < testThreadNum; w++ {
		for _, id := range g.TargetIDs(w, Sequential) {
			if prev, ok := seen[id]; ok {
				t.Fatalf("id %d assigned to workers %d and %d", id, prev, w)
			}
			seen[id] = w
			if id < 0 || id >= g.KeyNum() {
				t.Fatalf("id %d outside universe [0,%d)", id, g.KeyNum())
			}
		}
	}
	if len(seen) != testExecNum*testThreadNum {
		t.Errorf("covered %d ids, want %d", len(seen), testExecNum*testThreadNum)
	}
}

func TestSeededGeneratorKeepsPartition(t *testing.T) {
	g := NewSeededGenerator(testExecNum, testThreadNum, 7)
	ids := g.TargetIDs(4, Random)

	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	for i, id := range NewGenerator(testExecNum, testThreadNum).TargetIDs(4, Sequential) {
		if sorted[i] != id {
			t.Fatalf("seed changed the id partition: lost id %d", id)
		}
	}
}

func TestFullRange(t *testing.T) {
	g := NewGenerator(testExecNum, testThreadNum)
	ids := g.FullRange(10)
	for i, id := range ids {
		if id != i {
			t.Fatalf("ids[%d] = %d, want %d", i, id, i)
		}
	}
}

func TestSMOTargetIDsBounds(t *testing.T) {
	g := NewGenerator(testExecNum, testThreadNum)
	ids := g.SMOTargetIDs()

	if len(ids) != testExecNum {
		t.Fatalf("got %d ids, want %d", len(ids), testExecNum)
	}
	for i, id := range ids {
		slot := id % testThreadNum
		stride := id / testThreadNum
		if slot >= testThreadNum/2 {
			t.Errorf("ids[%d] = %d targets slot %d, want < %d", i, id, slot, testThreadNum/2)
		}
		if stride < 1 || stride > testExecNum {
			t.Errorf("ids[%d] = %d has stride %d outside [1,%d]", i, id, stride, testExecNum)
		}
	}

	again := g.SMOTargetIDs()
	for i := range ids {
		if ids[i] != again[i] {
			t.Fatalf("sampling not deterministic at %d", i)
		}
	}
}
