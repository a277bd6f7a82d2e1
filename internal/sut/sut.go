// Package sut defines the contract between the verification harness and an
// index under test.
//
// An index implements whichever operation interfaces it supports; the harness
// derives a Capabilities descriptor from interface satisfaction once at
// scenario entry and skips scenarios whose required operations are absent.
// The Driver wraps an index with capability-gated dispatch so scenario code
// stays uniform: calls to unsupported operations are neutral no-ops.
//
// Mutating operations return an integer code with 0 meaning success; the
// meaning of nonzero codes belongs to the index. The harness consults only
// these codes, never side effects, to decide whether a mutation took place.
package sut

import (
	"github.com/aalhour/indexharness/internal/epoch"
)

// CodeOK is the success code shared by all mutating operations, and the
// neutral code returned when an unsupported operation is skipped.
const CodeOK = 0

// Entry is one pre-sorted bulkload record.
type Entry struct {
	Key     []byte
	Payload []byte
	KeyLen  int
	PayLen  int
}

// Bound is one endpoint of a scan range. A nil *Bound means the range is
// unbounded on that side.
type Bound struct {
	Key       []byte
	Len       int
	Inclusive bool
}

// Cursor is a lazy, forward-only scan result. Key and Payload are valid only
// after Next has returned true.
type Cursor interface {
	Next() bool
	Key() []byte
	Payload() []byte
}

// Writer is the upsert operation.
type Writer interface {
	Write(key, payload []byte, keyLen, payLen int) int
}

// Inserter fails with a nonzero code if the key already exists.
type Inserter interface {
	Insert(key, payload []byte, keyLen, payLen int) int
}

// Updater fails with a nonzero code if the key is absent.
type Updater interface {
	Update(key, payload []byte, keyLen, payLen int) int
}

// Deleter fails with a nonzero code if the key is absent.
type Deleter interface {
	Delete(key []byte, keyLen int) int
}

// Reader is the point lookup operation.
type Reader interface {
	Read(key []byte, keyLen int) ([]byte, bool)
}

// Scanner returns entries in ascending key order within the given range.
type Scanner interface {
	Scan(begin, end *Bound) Cursor
}

// SnapshotReader reads the version visible at the epoch snapshot described by
// the guard and the protected-epoch set.
type SnapshotReader interface {
	SnapshotRead(key []byte, guard *epoch.Guard, protected []uint64, keyLen int) ([]byte, bool)
}

// SnapshotScanner scans at an epoch snapshot. ScanAll is the full-range
// variant used by long-lived concurrent readers; it sees live data but holds
// the guard so reclamation cannot pull versions out from under the cursor.
type SnapshotScanner interface {
	SnapshotScan(guard *epoch.Guard, protected []uint64, begin, end *Bound) Cursor
	ScanAll(guard *epoch.Guard) Cursor
}

// Bulkloader builds the index from pre-sorted entries with the given
// parallelism. Defined only while no concurrent mutation is in flight; that
// precondition belongs to the caller.
type Bulkloader interface {
	Bulkload(entries []Entry, parallelism int) int
}

// Capabilities describes which operations an index supports. Scenarios check
// the descriptor once at entry and report a skip, not a failure, when a
// required capability is absent.
type Capabilities struct {
	Write    bool
	Insert   bool
	Update   bool
	Delete   bool
	Scan     bool
	Bulkload bool

	SnapshotRead bool
	SnapshotScan bool
}

// CapabilitiesOf derives the capability descriptor from the interfaces the
// index satisfies.
func CapabilitiesOf(index any) Capabilities {
	var c Capabilities
	_, c.Write = index.(Writer)
	_, c.Insert = index.(Inserter)
	_, c.Update = index.(Updater)
	_, c.Delete = index.(Deleter)
	_, c.Scan = index.(Scanner)
	_, c.Bulkload = index.(Bulkloader)
	_, c.SnapshotRead = index.(SnapshotReader)
	_, c.SnapshotScan = index.(SnapshotScanner)
	return c
}

// Driver dispatches harness operations to an index, substituting neutral
// no-ops for unsupported ones.
type Driver struct {
	caps Capabilities

	writer     Writer
	inserter   Inserter
	updater    Updater
	deleter    Deleter
	reader     Reader
	scanner    Scanner
	snapReader SnapshotReader
	snapScan   SnapshotScanner
	bulkloader Bulkloader
}

// NewDriver wraps an index.
func NewDriver(index any) *Driver {
	d := &Driver{caps: CapabilitiesOf(index)}
	d.writer, _ = index.(Writer)
	d.inserter, _ = index.(Inserter)
	d.updater, _ = index.(Updater)
	d.deleter, _ = index.(Deleter)
	d.reader, _ = index.(Reader)
	d.scanner, _ = index.(Scanner)
	d.snapReader, _ = index.(SnapshotReader)
	d.snapScan, _ = index.(SnapshotScanner)
	d.bulkloader, _ = index.(Bulkloader)
	return d
}

// Capabilities returns the derived capability descriptor.
func (d *Driver) Capabilities() Capabilities { return d.caps }

// Write upserts, or returns CodeOK when writes are unsupported.
func (d *Driver) Write(key, payload []byte, keyLen, payLen int) int {
	if d.writer == nil {
		return CodeOK
	}
	return d.writer.Write(key, payload, keyLen, payLen)
}

// Insert inserts, or returns CodeOK when inserts are unsupported.
func (d *Driver) Insert(key, payload []byte, keyLen, payLen int) int {
	if d.inserter == nil {
		return CodeOK
	}
	return d.inserter.Insert(key, payload, keyLen, payLen)
}

// Update updates, or returns CodeOK when updates are unsupported.
func (d *Driver) Update(key, payload []byte, keyLen, payLen int) int {
	if d.updater == nil {
		return CodeOK
	}
	return d.updater.Update(key, payload, keyLen, payLen)
}

// Delete deletes, or returns CodeOK when deletes are unsupported.
func (d *Driver) Delete(key []byte, keyLen int) int {
	if d.deleter == nil {
		return CodeOK
	}
	return d.deleter.Delete(key, keyLen)
}

// Read looks up a key. Indexes without point reads report every key absent.
func (d *Driver) Read(key []byte, keyLen int) ([]byte, bool) {
	if d.reader == nil {
		return nil, false
	}
	return d.reader.Read(key, keyLen)
}

// SnapshotRead reads at the given epoch snapshot.
func (d *Driver) SnapshotRead(key []byte, guard *epoch.Guard, protected []uint64, keyLen int) ([]byte, bool) {
	if d.snapReader == nil {
		return nil, false
	}
	return d.snapReader.SnapshotRead(key, guard, protected, keyLen)
}

// Scan scans the given range, or returns an empty cursor when unsupported.
func (d *Driver) Scan(begin, end *Bound) Cursor {
	if d.scanner == nil {
		return emptyCursor{}
	}
	return d.scanner.Scan(begin, end)
}

// SnapshotScan scans the given range at an epoch snapshot.
func (d *Driver) SnapshotScan(guard *epoch.Guard, protected []uint64, begin, end *Bound) Cursor {
	if d.snapScan == nil {
		return emptyCursor{}
	}
	return d.snapScan.SnapshotScan(guard, protected, begin, end)
}

// ScanAll scans the full range under a long-lived epoch guard.
func (d *Driver) ScanAll(guard *epoch.Guard) Cursor {
	if d.snapScan == nil {
		return emptyCursor{}
	}
	return d.snapScan.ScanAll(guard)
}

// Bulkload loads pre-sorted entries, or returns CodeOK when unsupported.
func (d *Driver) Bulkload(entries []Entry, parallelism int) int {
	if d.bulkloader == nil {
		return CodeOK
	}
	return d.bulkloader.Bulkload(entries, parallelism)
}

type emptyCursor struct{}

func (emptyCursor) Next() bool      { return false }
func (emptyCursor) Key() []byte     { return nil }
func (emptyCursor) Payload() []byte { return nil }
