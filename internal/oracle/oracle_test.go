package oracle

import (
	"sync"
	"testing"

	"github.com/aalhour/indexharness/internal/dataset"
)

// sliceCursor replays fixed (key, payload) pairs.
type sliceCursor struct {
	keys, pays [][]byte
	pos        int
}

func (c *sliceCursor) Next() bool {
	if c.pos >= len(c.keys) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Key() []byte     { return c.keys[c.pos-1] }
func (c *sliceCursor) Payload() []byte { return c.pays[c.pos-1] }

func newTestOracle(n int) (*Oracle, *Collector, [][]byte, [][]byte) {
	u := dataset.NewUniverse(dataset.U64)
	keys := u.Prepare(n)
	pays := u.Prepare(n)
	col := NewCollector()
	return New(u, u, keys, pays, col), col, keys, pays
}

func TestCheckCode(t *testing.T) {
	o, col, _, _ := newTestOracle(4)

	o.CheckCode("Write", 0, 0, true)
	o.CheckCode("Insert", 1, 1, false)
	if col.Len() != 0 {
		t.Fatalf("expected no violations, got %v", col.Violations())
	}

	o.CheckCode("Write", 2, 1, true)
	o.CheckCode("Insert", 3, 0, false)
	got := col.Violations()
	if len(got) != 2 {
		t.Fatalf("got %d violations, want 2", len(got))
	}
	for _, v := range got {
		if v.Kind != UnexpectedCode {
			t.Errorf("violation kind = %s, want UnexpectedCode", v.Kind)
		}
	}
}

func TestCheckRead(t *testing.T) {
	o, col, _, pays := newTestOracle(4)

	o.CheckRead(0, 0, pays[0], true, true)
	o.CheckRead(1, 1, nil, false, false)
	if col.Len() != 0 {
		t.Fatalf("expected no violations, got %v", col.Violations())
	}

	o.CheckRead(0, 0, nil, false, true) // missing
	o.CheckRead(1, 1, pays[2], true, true)
	o.CheckRead(2, 2, pays[2], true, false) // unexpected presence

	got := col.Violations()
	if len(got) != 3 {
		t.Fatalf("got %d violations, want 3: %v", len(got), got)
	}
	wantKinds := []Kind{MissingKey, WrongPayload, UnexpectedKey}
	for i, v := range got {
		if v.Kind != wantKinds[i] {
			t.Errorf("violation %d kind = %s, want %s", i, v.Kind, wantKinds[i])
		}
	}
}

func TestCheckScanExact(t *testing.T) {
	o, col, keys, pays := newTestOracle(10)

	cur := &sliceCursor{keys: keys[2:8], pays: pays[2:8]}
	o.CheckScan(cur, 2, 8, func(id int) int { return id })
	if col.Len() != 0 {
		t.Fatalf("clean scan reported violations: %v", col.Violations())
	}
}

func TestCheckScanGapAndExtra(t *testing.T) {
	o, col, keys, pays := newTestOracle(10)

	// Entry 5 missing: cursor jumps from 4 to 6.
	short := &sliceCursor{
		keys: [][]byte{keys[2], keys[3], keys[4], keys[6]},
		pays: [][]byte{pays[2], pays[3], pays[4], pays[6]},
	}
	o.CheckScan(short, 2, 8, func(id int) int { return id })
	if col.Len() == 0 {
		t.Error("gapped scan should report violations")
	}

	col.Drain()
	long := &sliceCursor{keys: keys[2:9], pays: pays[2:9]}
	o.CheckScan(long, 2, 8, func(id int) int { return id })
	found := false
	for _, v := range col.Violations() {
		if v.Kind == RangeViolation {
			found = true
		}
	}
	if !found {
		t.Error("overlong scan should report a range violation")
	}
}

func TestCheckAscending(t *testing.T) {
	o, col, keys, pays := newTestOracle(10)

	ordered := &sliceCursor{keys: keys[:5], pays: pays[:5]}
	o.CheckAscending(ordered)
	if col.Len() != 0 {
		t.Fatalf("ascending scan reported violations: %v", col.Violations())
	}

	swapped := &sliceCursor{
		keys: [][]byte{keys[0], keys[2], keys[1]},
		pays: [][]byte{pays[0], pays[2], pays[1]},
	}
	o.CheckAscending(swapped)
	if col.Len() == 0 {
		t.Error("out-of-order scan should report an order violation")
	}
}

func TestCheckPresentForeignValue(t *testing.T) {
	o, col, _, pays := newTestOracle(4)

	o.CheckPresent(0, 0, nil, false) // absence is legal
	o.CheckPresent(1, 1, pays[1], true)
	if col.Len() != 0 {
		t.Fatalf("expected no violations, got %v", col.Violations())
	}

	o.CheckPresent(2, 2, []byte("garbage!"), true)
	got := col.Violations()
	if len(got) != 1 || got[0].Kind != ForeignValue {
		t.Errorf("got %v, want one ForeignValue", got)
	}
}

func TestCollectorConcurrent(t *testing.T) {
	col := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				col.Reportf(WrongPayload, "worker violation %d", i)
			}
		}()
	}
	wg.Wait()

	if col.Len() != 1600 {
		t.Errorf("collected %d violations, want 1600", col.Len())
	}
	if len(col.Drain()) != 1600 {
		t.Error("Drain lost violations")
	}
	if col.Len() != 0 {
		t.Error("Drain should reset the collector")
	}
}
