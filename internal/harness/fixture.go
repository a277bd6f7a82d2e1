package harness

import (
	"sync/atomic"

	"github.com/aalhour/indexharness/internal/barrier"
	"github.com/aalhour/indexharness/internal/dataset"
	"github.com/aalhour/indexharness/internal/epoch"
	"github.com/aalhour/indexharness/internal/logging"
	"github.com/aalhour/indexharness/internal/oracle"
	"github.com/aalhour/indexharness/internal/pattern"
	"github.com/aalhour/indexharness/internal/report"
	"github.com/aalhour/indexharness/internal/sut"
)

// fixture is the per-scenario state: a fresh index, its epoch manager, the
// prepared key and payload universes, and the oracle. Nothing is shared
// between scenarios.
type fixture struct {
	cfg  Config
	log  logging.Logger
	hist *report.History

	gen    *pattern.Generator
	keyUni *dataset.Universe
	payUni *dataset.Universe
	keys   [][]byte
	pays   [][]byte

	mgr  *epoch.Manager
	drv  *sut.Driver
	caps sut.Capabilities

	col *oracle.Collector
	ora *oracle.Oracle
}

func (h *Harness) newFixture() *fixture {
	seed := h.cfg.Seed
	if seed == 0 {
		seed = pattern.Seed
	}
	fx := &fixture{
		cfg:    h.cfg,
		log:    h.log,
		hist:   h.cfg.History,
		gen:    pattern.NewSeededGenerator(h.cfg.ExecNum, h.cfg.ThreadNum, seed),
		keyUni: dataset.NewUniverse(h.cfg.KeyKind),
		payUni: dataset.NewUniverse(h.cfg.PayKind),
		mgr:    epoch.NewManager(),
		col:    oracle.NewCollector(),
	}
	fx.keys = fx.keyUni.Prepare(fx.gen.KeyNum())
	// Base payloads plus a second bank for overwrite phases.
	fx.pays = fx.payUni.Prepare(2 * h.cfg.ThreadNum)
	fx.ora = oracle.New(fx.keyUni, fx.payUni, fx.keys, fx.pays, fx.col)

	index := h.factory(fx.keyUni.Compare, fx.mgr)
	fx.drv = sut.NewDriver(index)
	fx.caps = fx.drv.Capabilities()
	return fx
}

func (fx *fixture) teardown() {
	fx.keyUni.Release(fx.keys)
	fx.payUni.Release(fx.pays)
}

func (fx *fixture) newBarrier() *barrier.StartBarrier {
	b := barrier.New(fx.cfg.ThreadNum)
	if fx.cfg.Settle > 0 {
		b.SetSettleInterval(fx.cfg.Settle)
	}
	return b
}

func (fx *fixture) phase(name string) {
	fx.log.Debugf(logging.NSWorker+"phase %s: %d workers", name, fx.cfg.ThreadNum)
	if fx.hist != nil {
		fx.hist.Recordf("phase %s: %d workers x %d ops", name, fx.cfg.ThreadNum, fx.cfg.ExecNum)
	}
}

// payID maps a worker to its payload id. The second bank marks overwrites so
// reads can tell a survived original from an applied update.
func (fx *fixture) payID(wID int, second bool) int {
	if second {
		return wID + fx.cfg.ThreadNum
	}
	return wID
}

func (fx *fixture) write(keyID, payID int) int {
	k, p := fx.keys[keyID], fx.pays[payID]
	return fx.drv.Write(k, p, fx.keyUni.Length(k), fx.payUni.Length(p))
}

func (fx *fixture) insert(keyID, payID int) int {
	k, p := fx.keys[keyID], fx.pays[payID]
	return fx.drv.Insert(k, p, fx.keyUni.Length(k), fx.payUni.Length(p))
}

func (fx *fixture) update(keyID, payID int) int {
	k, p := fx.keys[keyID], fx.pays[payID]
	return fx.drv.Update(k, p, fx.keyUni.Length(k), fx.payUni.Length(p))
}

func (fx *fixture) del(keyID int) int {
	k := fx.keys[keyID]
	return fx.drv.Delete(k, fx.keyUni.Length(k))
}

func (fx *fixture) read(keyID int) ([]byte, bool) {
	k := fx.keys[keyID]
	return fx.drv.Read(k, fx.keyUni.Length(k))
}

func (fx *fixture) bound(keyID int, inclusive bool) *sut.Bound {
	k := fx.keys[keyID]
	return &sut.Bound{Key: k, Len: fx.keyUni.Length(k), Inclusive: inclusive}
}

// rangeScan prefers the epoch-guarded scan so a cursor never races
// reclamation; indexes without snapshot scans fall back to the plain one.
func (fx *fixture) rangeScan(guard *epoch.Guard, protected []uint64, begin, end *sut.Bound) sut.Cursor {
	if fx.caps.SnapshotScan {
		return fx.drv.SnapshotScan(guard, protected, begin, end)
	}
	return fx.drv.Scan(begin, end)
}

// verifyWrite upserts every worker's id partition concurrently, expecting
// every write to succeed.
func (fx *fixture) verifyWrite(second bool, p pattern.AccessPattern) {
	fx.phase("write")
	b := fx.newBarrier()
	b.RunAll(func(wID int) {
		ids := fx.gen.TargetIDs(wID, p)
		payID := fx.payID(wID, second)
		b.Wait()
		for _, id := range ids {
			fx.ora.CheckCode("Write", id, fx.write(id, payID), true)
		}
	})
}

// verifyInsert inserts every worker's partition, expecting the given outcome
// uniformly: success on fresh or deleted keys, failure on live ones.
func (fx *fixture) verifyInsert(expectSuccess, second bool, p pattern.AccessPattern) {
	fx.phase("insert")
	b := fx.newBarrier()
	b.RunAll(func(wID int) {
		ids := fx.gen.TargetIDs(wID, p)
		payID := fx.payID(wID, second)
		b.Wait()
		for _, id := range ids {
			fx.ora.CheckCode("Insert", id, fx.insert(id, payID), expectSuccess)
		}
	})
}

// verifyUpdate updates every worker's partition with second-bank payloads.
func (fx *fixture) verifyUpdate(expectSuccess bool, p pattern.AccessPattern) {
	fx.phase("update")
	b := fx.newBarrier()
	b.RunAll(func(wID int) {
		ids := fx.gen.TargetIDs(wID, p)
		payID := fx.payID(wID, true)
		b.Wait()
		for _, id := range ids {
			fx.ora.CheckCode("Update", id, fx.update(id, payID), expectSuccess)
		}
	})
}

// verifyDelete deletes every worker's partition.
func (fx *fixture) verifyDelete(expectSuccess bool, p pattern.AccessPattern) {
	fx.phase("delete")
	b := fx.newBarrier()
	b.RunAll(func(wID int) {
		ids := fx.gen.TargetIDs(wID, p)
		b.Wait()
		for _, id := range ids {
			fx.ora.CheckCode("Delete", id, fx.del(id), expectSuccess)
		}
	})
}

// verifyRead reads every worker's partition back, expecting either the
// payload bank selected by updated or uniform absence.
func (fx *fixture) verifyRead(expectSuccess, updated bool, p pattern.AccessPattern) {
	fx.phase("read")
	b := fx.newBarrier()
	b.RunAll(func(wID int) {
		ids := fx.gen.TargetIDs(wID, p)
		payID := fx.payID(wID, updated)
		b.Wait()
		for _, id := range ids {
			got, found := fx.read(id)
			fx.ora.CheckRead(id, payID, got, found, expectSuccess)
		}
	})
}

// verifyScan splits the id space into per-worker ranges and checks each range
// is exactly covered (or exactly empty) in ascending order.
func (fx *fixture) verifyScan(expectSuccess, updated bool) {
	if !fx.caps.Scan && !fx.caps.SnapshotScan {
		return
	}
	fx.phase("scan")

	fx.mgr.Forward()
	guard, protected := fx.mgr.ProtectedEpochs()
	defer guard.Release()

	n, e := fx.cfg.ThreadNum, fx.cfg.ExecNum
	b := fx.newBarrier()
	b.RunAll(func(wID int) {
		beginID := n + e*wID
		endID := e * (wID + 1)
		b.Wait()
		if beginID >= endID {
			return
		}
		cur := fx.rangeScan(guard, protected, fx.bound(beginID, true), fx.bound(endID, false))
		if !expectSuccess {
			fx.ora.CheckEmptyScan(cur)
			return
		}
		fx.ora.CheckScan(cur, beginID, endID, func(keyID int) int {
			return fx.payID(keyID%n, updated)
		})
	})
}

// verifySnapshotRead pins a snapshot over freshly written data, then reads it
// back while every other worker overwrites the same keys. The snapshot must
// keep surfacing the pre-capture payloads.
func (fx *fixture) verifySnapshotRead() {
	fx.phase("snapshot-read")

	fx.mgr.Forward()
	guard, protected := fx.mgr.ProtectedEpochs()
	defer guard.Release()

	b := fx.newBarrier()
	b.RunOneVsRest(
		func(wID int) {
			b.Wait()
			for id := fx.cfg.ThreadNum; id < fx.cfg.ExecNum; id++ {
				k := fx.keys[id]
				got, found := fx.drv.SnapshotRead(k, guard, protected, fx.keyUni.Length(k))
				fx.ora.CheckSnapshotRead(id, id%fx.cfg.ThreadNum, got, found)
			}
		},
		func(wID int) {
			ids := fx.gen.TargetIDs(wID, pattern.Sequential)
			payID := fx.payID(wID, true)
			b.Wait()
			for _, id := range ids {
				fx.ora.CheckCode("Write", id, fx.write(id, payID), true)
			}
		},
	)
}

// verifySnapshotScan pins a snapshot, advances the epoch twice so concurrent
// mutations land strictly after it, then scans the full written range at the
// snapshot while every other worker mutates the same keys.
func (fx *fixture) verifySnapshotScan(op WriteOperation) {
	fx.phase("snapshot-scan")

	fx.mgr.Forward()
	guard, protected := fx.mgr.ProtectedEpochs()
	defer guard.Release()
	fx.mgr.Forward()
	fx.mgr.Forward()

	n, e := fx.cfg.ThreadNum, fx.cfg.ExecNum
	b := fx.newBarrier()
	b.RunOneVsRest(
		func(wID int) {
			b.Wait()
			cur := fx.drv.SnapshotScan(guard, protected, fx.bound(n, true), fx.bound(e*n, false))
			fx.ora.CheckScan(cur, n, e*n, func(keyID int) int {
				return keyID % n
			})
		},
		func(wID int) {
			ids := fx.gen.TargetIDs(wID, pattern.Sequential)
			payID := fx.payID(wID, true)
			b.Wait()
			for _, id := range ids {
				switch op {
				case OpWrite:
					fx.ora.CheckCode("Write", id, fx.write(id, payID), true)
				case OpUpdate:
					fx.ora.CheckCode("Update", id, fx.update(id, payID), true)
				case OpDelete:
					fx.ora.CheckCode("Delete", id, fx.del(id), true)
				}
			}
		},
	)
}

// verifyBulkload loads the exact id range the write phases cover, so every
// later phase sees the same universe regardless of how it was populated.
func (fx *fixture) verifyBulkload() {
	fx.phase("bulkload")

	n, e := fx.cfg.ThreadNum, fx.cfg.ExecNum
	entries := make([]sut.Entry, 0, e*n)
	for id := n; id < (e+1)*n; id++ {
		k, p := fx.keys[id], fx.pays[id%n]
		entries = append(entries, sut.Entry{
			Key:     k,
			Payload: p,
			KeyLen:  fx.keyUni.Length(k),
			PayLen:  fx.payUni.Length(p),
		})
	}
	fx.ora.CheckCode("Bulkload", 0, fx.drv.Bulkload(entries, n), true)
}

// verifyConcurrentSMOs drives structural modifications from every direction
// at once. The first half of the workers alternate between writing and
// deleting their partitions round by round, the next quarter read the
// contested slots with the race-tolerant check, and the rest forward the
// epoch once and run full scans under a single guard held for the whole
// round until the mutators are done, asserting key order never breaks while
// the structure splits and merges underneath.
func (fx *fixture) verifyConcurrentSMOs() {
	fx.phase("concurrent-smo")

	n := fx.cfg.ThreadNum
	mutators := n / 2
	readers := 3 * n / 4
	var done atomic.Int64

	round := func(deleteEven bool) {
		b := fx.newBarrier()
		b.RunAll(func(wID int) {
			switch {
			case wID < mutators:
				ids := fx.gen.TargetIDs(wID, pattern.Random)
				isDelete := (wID%2 == 0) == deleteEven
				b.Wait()
				for _, id := range ids {
					if isDelete {
						fx.ora.CheckCode("Delete", id, fx.del(id), true)
					} else {
						fx.ora.CheckCode("Write", id, fx.write(id, wID), true)
					}
				}
				done.Add(1)
			case wID < readers:
				ids := fx.gen.SMOTargetIDs()
				b.Wait()
				for _, id := range ids {
					got, found := fx.read(id)
					fx.ora.CheckPresent(id, id%mutators, got, found)
				}
			default:
				b.Wait()
				fx.mgr.Forward()
				guard := fx.mgr.CreateGuard()
				for done.Load() < int64(mutators) {
					fx.ora.CheckAscending(fx.drv.ScanAll(guard))
				}
				guard.Release()
			}
		})
	}

	// Seed the even mutators so the first delete round has data to remove.
	init := fx.newBarrier()
	init.RunAll(func(wID int) {
		if wID >= mutators || wID%2 != 0 {
			init.Wait()
			return
		}
		ids := fx.gen.TargetIDs(wID, pattern.Random)
		init.Wait()
		for _, id := range ids {
			fx.ora.CheckCode("Write", id, fx.write(id, wID), true)
		}
	})

	for i := 0; i < smoRepeatNum; i++ {
		done.Store(0)
		round(true)
		done.Store(0)
		round(false)
	}
}
