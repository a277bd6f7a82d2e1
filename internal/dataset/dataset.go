// Package dataset provides deterministic key/payload universes for index
// verification.
//
// A Universe generates n distinct values in ascending order, supplies the
// strict less-than comparator that defines that order, and reports the byte
// length of each value. Harness code never inspects value contents directly;
// everything goes through the comparator so that an index under test is
// exercised exactly the way a user-supplied comparator would exercise it.
//
// Three universes mirror the usual key/payload type grid:
//   - U64: fixed-length 8-byte unsigned integers (big-endian).
//   - I64: fixed-length 8-byte signed integers offset into the negative half
//     (little-endian, so bytewise order and comparator order deliberately
//     disagree and sign handling is exercised).
//   - Var: variable-length zero-padded decimal strings.
package dataset

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// FixedLength is the byte length of fixed-size values.
const FixedLength = 8

// VarLength is the byte length of variable-length test values.
const VarLength = 11

// Kind selects a value universe.
type Kind int

const (
	// U64 generates unsigned 8-byte values.
	U64 Kind = iota
	// I64 generates signed 8-byte values.
	I64
	// Var generates variable-length string values.
	Var
)

// String returns the short name of the kind.
func (k Kind) String() string {
	switch k {
	case U64:
		return "u64"
	case I64:
		return "i64"
	case Var:
		return "var"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// KindFromName parses a universe name as used on the command line.
func KindFromName(name string) (Kind, error) {
	switch name {
	case "u64":
		return U64, nil
	case "i64":
		return I64, nil
	case "var":
		return Var, nil
	default:
		return 0, fmt.Errorf("unknown dataset kind: %q", name)
	}
}

// Universe generates and compares values of one kind.
//
// The i-th generated value is strictly less than the (i+1)-th under Less, for
// every kind. This is the property all id-based verification relies on.
type Universe struct {
	kind Kind
}

// NewUniverse returns a universe of the given kind.
func NewUniverse(kind Kind) *Universe {
	return &Universe{kind: kind}
}

// Kind returns the universe's kind.
func (u *Universe) Kind() Kind { return u.kind }

// Prepare generates n distinct values in ascending comparator order. The I64
// universe centers the range on zero so half the values are negative.
func (u *Universe) Prepare(n int) [][]byte {
	values := make([][]byte, n)
	for i := 0; i < n; i++ {
		values[i] = u.encode(i, n)
	}
	return values
}

// Release frees generated values. Values are garbage collected in Go; the
// method exists so scenario code can mark the end of a dataset's lifetime
// explicitly and drop references early.
func (u *Universe) Release(values [][]byte) {
	for i := range values {
		values[i] = nil
	}
}

// Length returns the byte length of a value.
func (u *Universe) Length(v []byte) int {
	return len(v)
}

// Less reports whether a sorts strictly before b.
func (u *Universe) Less(a, b []byte) bool {
	return u.Compare(a, b) < 0
}

// Equal reports whether a and b are equivalent under the comparator.
// Derived from Less: neither value sorts before the other.
func (u *Universe) Equal(a, b []byte) bool {
	return !u.Less(a, b) && !u.Less(b, a)
}

// Compare returns a three-way comparison of a and b.
func (u *Universe) Compare(a, b []byte) int {
	switch u.kind {
	case I64:
		x := int64(binary.LittleEndian.Uint64(a))
		y := int64(binary.LittleEndian.Uint64(b))
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	default:
		// U64 is big-endian and Var is zero-padded decimal, so both
		// compare correctly bytewise.
		switch {
		case string(a) < string(b):
			return -1
		case string(a) > string(b):
			return 1
		default:
			return 0
		}
	}
}

// Fingerprint returns a 64-bit hash of the value. The oracle keeps
// fingerprints of every payload it hands to writers so that a value read back
// under concurrent modification can be checked for membership without keeping
// full copies.
func (u *Universe) Fingerprint(v []byte) uint64 {
	return xxh3.Hash(v)
}

func (u *Universe) encode(i, n int) []byte {
	switch u.kind {
	case U64:
		buf := make([]byte, FixedLength)
		binary.BigEndian.PutUint64(buf, uint64(i))
		return buf
	case I64:
		buf := make([]byte, FixedLength)
		binary.LittleEndian.PutUint64(buf, uint64(int64(i)-int64(n)/2))
		return buf
	case Var:
		return fmt.Appendf(nil, "%011d", i)
	default:
		panic(fmt.Sprintf("dataset: invalid kind %d", u.kind))
	}
}
