package harness

import (
	"testing"
	"time"

	"github.com/aalhour/indexharness/internal/epoch"
	"github.com/aalhour/indexharness/internal/pattern"
	"github.com/aalhour/indexharness/internal/verindex"
)

func skiplistFactory(cmp func(a, b []byte) int, mgr *epoch.Manager) any {
	return verindex.New(cmp, mgr)
}

func testConfig(threads, execs int) Config {
	cfg := DefaultConfig()
	cfg.ThreadNum = threads
	cfg.ExecNum = execs
	cfg.Settle = time.Millisecond
	return cfg
}

func requirePassed(t *testing.T, res Result) {
	t.Helper()
	if res.Status != Passed {
		t.Errorf("%s: status = %s, want passed (skip reason %q)", res.Name, res.Status, res.SkipReason)
		for _, v := range res.Violations {
			t.Logf("  %s", v)
		}
	}
}

func TestWritesWithGrid(t *testing.T) {
	h := New(skiplistFactory, testConfig(8, 32))
	for _, p := range []pattern.AccessPattern{pattern.Sequential, pattern.Reverse, pattern.Random} {
		for _, twice := range []bool{false, true} {
			for _, del := range []bool{false, true} {
				requirePassed(t, h.WritesWith(twice, del, p))
			}
		}
	}
}

func TestInsertsWithGrid(t *testing.T) {
	h := New(skiplistFactory, testConfig(8, 32))
	for _, twice := range []bool{false, true} {
		for _, del := range []bool{false, true} {
			requirePassed(t, h.InsertsWith(twice, del, pattern.Random))
		}
	}
}

func TestUpdatesWithGrid(t *testing.T) {
	h := New(skiplistFactory, testConfig(8, 32))
	for _, write := range []bool{false, true} {
		for _, del := range []bool{false, true} {
			requirePassed(t, h.UpdatesWith(write, del, pattern.Sequential))
		}
	}
}

func TestDeletesWithGrid(t *testing.T) {
	h := New(skiplistFactory, testConfig(8, 32))
	for _, write := range []bool{false, true} {
		for _, del := range []bool{false, true} {
			requirePassed(t, h.DeletesWith(write, del, pattern.Reverse))
		}
	}
}

func TestBulkloadWithGrid(t *testing.T) {
	h := New(skiplistFactory, testConfig(8, 32))
	for _, op := range []WriteOperation{OpNone, OpWrite, OpInsert, OpUpdate, OpDelete} {
		requirePassed(t, h.BulkloadWith(op, pattern.Random))
	}
}

func TestSnapshotScenarios(t *testing.T) {
	h := New(skiplistFactory, testConfig(8, 64))
	requirePassed(t, h.SnapshotRead())
	for _, op := range []WriteOperation{OpNone, OpWrite, OpUpdate, OpDelete} {
		requirePassed(t, h.SnapshotScanWith(op))
	}
}

func TestConcurrentSMOs(t *testing.T) {
	requirePassed(t, New(skiplistFactory, testConfig(4, 50)).ConcurrentSMOs())
}

func TestConcurrentSMOsSkipsUnevenThreadCount(t *testing.T) {
	res := New(skiplistFactory, testConfig(6, 32)).ConcurrentSMOs()
	if res.Status != Skipped {
		t.Fatalf("status = %s, want skipped", res.Status)
	}
	if res.SkipReason == "" {
		t.Error("skip reason should name the thread count requirement")
	}
}

func TestSuiteAllPass(t *testing.T) {
	if testing.Short() {
		t.Skip("full grid in short mode")
	}
	results := New(skiplistFactory, testConfig(8, 32)).Suite()
	if len(results) != 69 {
		t.Errorf("suite ran %d scenarios, want 69", len(results))
	}
	for _, res := range results {
		requirePassed(t, res)
	}
}

// inertIndex supports nothing; every scenario must skip, never fail.
type inertIndex struct{}

func TestScenariosSkipWithoutCapabilities(t *testing.T) {
	h := New(func(cmp func(a, b []byte) int, mgr *epoch.Manager) any {
		return inertIndex{}
	}, testConfig(4, 8))

	for _, res := range []Result{
		h.WritesWith(false, false, pattern.Sequential),
		h.InsertsWith(false, false, pattern.Sequential),
		h.UpdatesWith(false, false, pattern.Sequential),
		h.DeletesWith(false, false, pattern.Sequential),
		h.BulkloadWith(OpNone, pattern.Sequential),
		h.SnapshotRead(),
		h.SnapshotScanWith(OpNone),
		h.ConcurrentSMOs(),
	} {
		if res.Status != Skipped {
			t.Errorf("%s: status = %s, want skipped", res.Name, res.Status)
		}
		if res.SkipReason == "" {
			t.Errorf("%s: missing skip reason", res.Name)
		}
	}
}

// droppedDelete claims delete support but silently ignores deletes, so the
// keys a scenario expects gone are still readable.
type droppedDelete struct {
	*verindex.Index
}

func (droppedDelete) Delete(key []byte, keyLen int) int { return 0 }

func TestHarnessCatchesIgnoredDeletes(t *testing.T) {
	h := New(func(cmp func(a, b []byte) int, mgr *epoch.Manager) any {
		return droppedDelete{Index: verindex.New(cmp, mgr)}
	}, testConfig(4, 16))

	res := h.DeletesWith(true, false, pattern.Sequential)
	if res.Status != Failed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if len(res.Violations) == 0 {
		t.Fatal("expected violations for keys that survived deletion")
	}
}

func TestStatusString(t *testing.T) {
	if Passed.String() != "passed" || Failed.String() != "failed" || Skipped.String() != "skipped" {
		t.Error("status names changed; reports depend on them")
	}
}
