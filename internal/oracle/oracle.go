package oracle

import (
	"github.com/aalhour/indexharness/internal/dataset"
	"github.com/aalhour/indexharness/internal/sut"
)

// Oracle checks index results against the deterministic key/payload universe.
//
// Expected payloads are identified by id: scenario code knows which payload id
// each worker used for each key id, and the oracle compares actual bytes
// against that expectation using the payload universe's comparator. A
// fingerprint set over every generated payload backs the weaker membership
// check used under intentional write/delete races, where either outcome of
// the race is legal but a foreign or torn value never is.
type Oracle struct {
	keyUni *dataset.Universe
	payUni *dataset.Universe
	keys   [][]byte
	pays   [][]byte

	known map[uint64]struct{}
	col   *Collector
}

// New builds an oracle over the prepared keys and payloads.
func New(keyUni, payUni *dataset.Universe, keys, pays [][]byte, col *Collector) *Oracle {
	o := &Oracle{
		keyUni: keyUni,
		payUni: payUni,
		keys:   keys,
		pays:   pays,
		known:  make(map[uint64]struct{}, len(pays)),
		col:    col,
	}
	for _, p := range pays {
		o.known[payUni.Fingerprint(p)] = struct{}{}
	}
	return o
}

// Collector returns the violation collector.
func (o *Oracle) Collector() *Collector { return o.col }

// CheckCode verifies an operation result code against expectation.
func (o *Oracle) CheckCode(op string, keyID, rc int, expectSuccess bool) {
	if expectSuccess && rc != sut.CodeOK {
		o.col.Reportf(UnexpectedCode, "%s(id=%d) = %d, want success", op, keyID, rc)
	} else if !expectSuccess && rc == sut.CodeOK {
		o.col.Reportf(UnexpectedCode, "%s(id=%d) succeeded, want failure", op, keyID)
	}
}

// CheckRead verifies a point read: present with payload payID when
// expectSuccess, absent otherwise.
func (o *Oracle) CheckRead(keyID, payID int, got []byte, found, expectSuccess bool) {
	if !expectSuccess {
		if found {
			o.col.Reportf(UnexpectedKey, "Read(id=%d) returned a value for a deleted key", keyID)
		}
		return
	}
	if !found {
		o.col.Reportf(MissingKey, "Read(id=%d) found nothing, want payload %d", keyID, payID)
		return
	}
	if !o.payUni.Equal(got, o.pays[payID]) {
		o.col.Reportf(WrongPayload, "Read(id=%d) payload mismatch, want payload %d", keyID, payID)
	}
}

// CheckSnapshotRead verifies a snapshot read. A mismatch is reported as a
// stale-snapshot violation since the only way to diverge is to surface a
// post-capture mutation (or lose a pre-capture one).
func (o *Oracle) CheckSnapshotRead(keyID, payID int, got []byte, found bool) {
	if !found {
		o.col.Reportf(StaleSnapshot, "SnapshotRead(id=%d) found nothing, want payload %d", keyID, payID)
		return
	}
	if !o.payUni.Equal(got, o.pays[payID]) {
		o.col.Reportf(StaleSnapshot, "SnapshotRead(id=%d) surfaced a post-capture value", keyID)
	}
}

// CheckPresent is the weak check for intentional races: when a read returns a
// value it must be the payload known for that id; absence is always legal.
func (o *Oracle) CheckPresent(keyID, payID int, got []byte, found bool) {
	if !found {
		return
	}
	if _, ok := o.known[o.payUni.Fingerprint(got)]; !ok {
		o.col.Reportf(ForeignValue, "Read(id=%d) returned bytes never written", keyID)
		return
	}
	if !o.payUni.Equal(got, o.pays[payID]) {
		o.col.Reportf(WrongPayload, "Read(id=%d) returned another id's payload", keyID)
	}
}

// CheckScan walks the cursor over [beginID, endID), asserting each returned
// key is exactly the expected key at the advancing id cursor, each payload
// matches payIDFor(id), the walk covers the whole range with no gaps or
// extras, and the cursor reports exhaustion afterwards.
func (o *Oracle) CheckScan(cur sut.Cursor, beginID, endID int, payIDFor func(keyID int) int) {
	id := beginID
	for cur.Next() {
		if id >= endID {
			o.col.Reportf(RangeViolation, "scan returned entries past id %d", endID)
			return
		}
		if !o.keyUni.Equal(cur.Key(), o.keys[id]) {
			o.col.Reportf(WrongPayload, "scan key at position %d is not key %d", id-beginID, id)
		}
		if payID := payIDFor(id); !o.payUni.Equal(cur.Payload(), o.pays[payID]) {
			o.col.Reportf(WrongPayload, "scan payload for id %d mismatches payload %d", id, payID)
		}
		id++
	}
	if id != endID {
		o.col.Reportf(RangeViolation, "scan ended at id %d, want %d", id, endID)
	}
	if cur.Next() {
		o.col.Reportf(RangeViolation, "cursor yielded entries after exhaustion")
	}
}

// CheckEmptyScan asserts the cursor yields nothing.
func (o *Oracle) CheckEmptyScan(cur sut.Cursor) {
	if cur.Next() {
		o.col.Reportf(RangeViolation, "scan over deleted range returned entries")
	}
}

// CheckAscending walks one full scan pass, asserting strictly ascending keys
// and known payload bytes, regardless of concurrent mutation.
func (o *Oracle) CheckAscending(cur sut.Cursor) {
	var prev []byte
	for cur.Next() {
		if prev != nil && !o.keyUni.Less(prev, cur.Key()) {
			o.col.Reportf(OrderViolation, "scan keys not strictly ascending")
		}
		prev = append(prev[:0], cur.Key()...)
		if _, ok := o.known[o.payUni.Fingerprint(cur.Payload())]; !ok {
			o.col.Reportf(ForeignValue, "scan returned bytes never written")
		}
	}
}
