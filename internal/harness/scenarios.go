package harness

import (
	"fmt"

	"github.com/aalhour/indexharness/internal/pattern"
)

// smoRepeatNum is how many write/delete round pairs the structural
// modification scenario runs.
const smoRepeatNum = 5

// WritesWith verifies concurrent upserts, optionally followed by a delete
// phase and a second overwrite phase, then reads and scans the final state.
func (h *Harness) WritesWith(writeTwice, withDelete bool, p pattern.AccessPattern) Result {
	name := writesName(writeTwice, withDelete, p)
	return h.run(name, func(fx *fixture) string {
		if !fx.caps.Write {
			return "write capability absent"
		}
		if withDelete && !fx.caps.Delete {
			return "delete capability absent"
		}

		fx.verifyWrite(false, p)
		if withDelete {
			fx.verifyDelete(true, p)
		}
		if writeTwice {
			fx.verifyWrite(true, p)
		}

		expectSuccess := !withDelete || writeTwice
		fx.verifyRead(expectSuccess, writeTwice, p)
		fx.verifyScan(expectSuccess, writeTwice)
		return ""
	})
}

// InsertsWith verifies concurrent inserts. The second insert phase succeeds
// only when a delete phase freed the keys in between; a live key must reject
// it and keep its original payload.
func (h *Harness) InsertsWith(writeTwice, withDelete bool, p pattern.AccessPattern) Result {
	name := insertsName(writeTwice, withDelete, p)
	return h.run(name, func(fx *fixture) string {
		if !fx.caps.Insert {
			return "insert capability absent"
		}
		if withDelete && !fx.caps.Delete {
			return "delete capability absent"
		}

		fx.verifyInsert(true, false, p)
		if withDelete {
			fx.verifyDelete(true, p)
		}
		if writeTwice {
			fx.verifyInsert(withDelete, true, p)
		}

		expectSuccess := !withDelete || writeTwice
		updated := withDelete && writeTwice
		fx.verifyRead(expectSuccess, updated, p)
		fx.verifyScan(expectSuccess, updated)
		return ""
	})
}

// UpdatesWith verifies concurrent updates: they succeed only on keys a prior
// write phase made live and a delete phase has not removed since.
func (h *Harness) UpdatesWith(withWrite, withDelete bool, p pattern.AccessPattern) Result {
	name := updatesName(withWrite, withDelete, p)
	return h.run(name, func(fx *fixture) string {
		if !fx.caps.Update {
			return "update capability absent"
		}
		if withWrite && !fx.caps.Write {
			return "write capability absent"
		}
		if withDelete && !fx.caps.Delete {
			return "delete capability absent"
		}

		if withWrite {
			fx.verifyWrite(false, p)
		}
		if withDelete {
			fx.verifyDelete(withWrite, p)
		}

		expectSuccess := withWrite && !withDelete
		fx.verifyUpdate(expectSuccess, p)
		fx.verifyRead(expectSuccess, true, p)
		fx.verifyScan(expectSuccess, true)
		return ""
	})
}

// DeletesWith verifies concurrent deletes: they succeed only on live keys,
// and afterwards the whole range must read and scan as empty.
func (h *Harness) DeletesWith(withWrite, withDelete bool, p pattern.AccessPattern) Result {
	name := deletesName(withWrite, withDelete, p)
	return h.run(name, func(fx *fixture) string {
		if !fx.caps.Delete {
			return "delete capability absent"
		}
		if withWrite && !fx.caps.Write {
			return "write capability absent"
		}

		if withWrite {
			fx.verifyWrite(false, p)
		}
		if withDelete {
			fx.verifyDelete(withWrite, p)
		}

		expectSuccess := withWrite && !withDelete
		fx.verifyDelete(expectSuccess, p)
		fx.verifyRead(false, false, p)
		fx.verifyScan(false, false)
		return ""
	})
}

// BulkloadWith verifies a bulk build of the full id range, optionally
// followed by one concurrent mutation phase over the loaded keys.
func (h *Harness) BulkloadWith(op WriteOperation, p pattern.AccessPattern) Result {
	name := bulkloadName(op, p)
	return h.run(name, func(fx *fixture) string {
		if !fx.caps.Bulkload {
			return "bulkload capability absent"
		}
		if reason := opCapability(fx, op); reason != "" {
			return reason
		}

		fx.verifyBulkload()

		expectSuccess, updated := true, false
		switch op {
		case OpWrite:
			fx.verifyWrite(true, p)
			updated = true
		case OpInsert:
			// Every key is live, so inserts must fail and change nothing.
			fx.verifyInsert(false, true, p)
		case OpUpdate:
			fx.verifyUpdate(true, p)
			updated = true
		case OpDelete:
			fx.verifyDelete(true, p)
			expectSuccess = false
		}

		fx.verifyRead(expectSuccess, updated, p)
		fx.verifyScan(expectSuccess, updated)
		return ""
	})
}

// SnapshotRead verifies that a read pinned to an epoch snapshot keeps
// returning pre-capture payloads while every other worker overwrites them.
func (h *Harness) SnapshotRead() Result {
	return h.run("SnapshotRead", func(fx *fixture) string {
		if !fx.caps.Write {
			return "write capability absent"
		}
		if !fx.caps.SnapshotRead {
			return "snapshot read capability absent"
		}

		fx.verifyWrite(false, pattern.Sequential)
		fx.verifySnapshotRead()
		return ""
	})
}

// SnapshotScanWith verifies that a full-range scan pinned to an epoch
// snapshot sees exactly the pre-capture state while a concurrent mutation
// phase runs over the same keys.
func (h *Harness) SnapshotScanWith(op WriteOperation) Result {
	name := snapshotScanName(op)
	return h.run(name, func(fx *fixture) string {
		if !fx.caps.Write {
			return "write capability absent"
		}
		if !fx.caps.SnapshotScan {
			return "snapshot scan capability absent"
		}
		if reason := opCapability(fx, op); reason != "" {
			return reason
		}

		fx.verifyWrite(false, pattern.Sequential)
		fx.verifySnapshotScan(op)
		return ""
	})
}

// ConcurrentSMOs verifies scan consistency under continuous structural
// modification. Requires a thread count divisible by four so the worker
// roles split evenly.
func (h *Harness) ConcurrentSMOs() Result {
	return h.run("ConcurrentSMOs", func(fx *fixture) string {
		if !fx.caps.Write || !fx.caps.Delete {
			return "write and delete capabilities required"
		}
		if !fx.caps.SnapshotScan {
			return "full-range scan capability absent"
		}
		if fx.cfg.ThreadNum%4 != 0 {
			return "thread count not a multiple of four"
		}

		fx.verifyConcurrentSMOs()
		return ""
	})
}

func opCapability(fx *fixture, op WriteOperation) string {
	switch op {
	case OpWrite:
		if !fx.caps.Write {
			return "write capability absent"
		}
	case OpInsert:
		if !fx.caps.Insert {
			return "insert capability absent"
		}
	case OpUpdate:
		if !fx.caps.Update {
			return "update capability absent"
		}
	case OpDelete:
		if !fx.caps.Delete {
			return "delete capability absent"
		}
	}
	return ""
}

// Scenario is a named, runnable member of the suite grid. The name is stable
// before the scenario runs, so callers can filter without paying for a run.
type Scenario struct {
	Name string
	Run  func() Result
}

// Scenarios enumerates the full grid: every mutation composition under every
// access pattern, plus the snapshot and structural-modification scenarios.
func (h *Harness) Scenarios() []Scenario {
	patterns := []pattern.AccessPattern{pattern.Sequential, pattern.Reverse, pattern.Random}

	var list []Scenario
	add := func(name string, run func() Result) {
		list = append(list, Scenario{Name: name, Run: run})
	}

	for _, p := range patterns {
		for _, twice := range []bool{false, true} {
			for _, del := range []bool{false, true} {
				add(writesName(twice, del, p), func() Result { return h.WritesWith(twice, del, p) })
				add(insertsName(twice, del, p), func() Result { return h.InsertsWith(twice, del, p) })
			}
		}
		for _, write := range []bool{false, true} {
			for _, del := range []bool{false, true} {
				add(updatesName(write, del, p), func() Result { return h.UpdatesWith(write, del, p) })
				add(deletesName(write, del, p), func() Result { return h.DeletesWith(write, del, p) })
			}
		}
		for _, op := range []WriteOperation{OpNone, OpWrite, OpInsert, OpUpdate, OpDelete} {
			add(bulkloadName(op, p), func() Result { return h.BulkloadWith(op, p) })
		}
	}

	add("SnapshotRead", h.SnapshotRead)
	for _, op := range []WriteOperation{OpNone, OpWrite, OpUpdate, OpDelete} {
		add(snapshotScanName(op), func() Result { return h.SnapshotScanWith(op) })
	}
	add("ConcurrentSMOs", h.ConcurrentSMOs)
	return list
}

// Suite runs the full scenario grid and returns every result.
func (h *Harness) Suite() []Result {
	scenarios := h.Scenarios()
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		results = append(results, sc.Run())
	}
	return results
}

func writesName(twice, del bool, p pattern.AccessPattern) string {
	return fmt.Sprintf("WritesWith(twice=%t,delete=%t,%s)", twice, del, p)
}

func insertsName(twice, del bool, p pattern.AccessPattern) string {
	return fmt.Sprintf("InsertsWith(twice=%t,delete=%t,%s)", twice, del, p)
}

func updatesName(write, del bool, p pattern.AccessPattern) string {
	return fmt.Sprintf("UpdatesWith(write=%t,delete=%t,%s)", write, del, p)
}

func deletesName(write, del bool, p pattern.AccessPattern) string {
	return fmt.Sprintf("DeletesWith(write=%t,delete=%t,%s)", write, del, p)
}

func bulkloadName(op WriteOperation, p pattern.AccessPattern) string {
	return fmt.Sprintf("BulkloadWith(%s,%s)", op, p)
}

func snapshotScanName(op WriteOperation) string {
	return fmt.Sprintf("SnapshotScanWith(%s)", op)
}
