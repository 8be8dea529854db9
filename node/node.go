// Package node implements the packed Node record and the four-way Targets
// tagged value described in spec §3/§4.4: a (first, last) pair of 32-bit
// fields that encodes ABSENT, DIRECT, INDIRECT, and UNKNOWN target state
// without spilling to the extra-edges array for the common outdegree-0/1/2
// case.
package node

import "fmt"

// RawTarget is a single tagged 32-bit target field. Its value space
// partitions into four disjoint regions (spec §3):
//
//	0                : Absent
//	1 .. 2^31-1      : Direct node index (value-1)
//	2^31 .. 2^32-2   : Indirect array index (value-2^31)
//	2^32-1           : Unknown
type RawTarget uint32

const (
	// RawAbsent is the ABSENT sentinel value.
	RawAbsent RawTarget = 0
	// RawUnknown is the UNKNOWN sentinel value.
	RawUnknown RawTarget = 1<<32 - 1
	// directBase is the first value of the DIRECT region.
	directBase uint32 = 1
	// indirectBase is the first value of the INDIRECT region.
	indirectBase uint32 = 1 << 31
	// indirectLimit is one past the last value of the INDIRECT region
	// (RawUnknown is excluded).
	indirectLimit uint32 = 1<<32 - 1
)

// Direct builds a DIRECT RawTarget referencing nodeIdx.
func Direct(nodeIdx uint32) RawTarget {
	if nodeIdx > indirectBase-directBase-1 {
		panic("node: direct index out of range")
	}
	return RawTarget(uint64(nodeIdx) + uint64(directBase))
}

// Indirect builds an INDIRECT RawTarget referencing idx into
// target-hashes or extra-edges.
func Indirect(idx uint32) RawTarget {
	if uint64(idx) > uint64(indirectLimit-indirectBase-1) {
		panic("node: indirect index out of range")
	}
	return RawTarget(uint64(idx) + uint64(indirectBase))
}

// IsAbsent reports whether the field is ABSENT.
func (t RawTarget) IsAbsent() bool { return t == RawAbsent }

// IsUnknown reports whether the field is UNKNOWN.
func (t RawTarget) IsUnknown() bool { return t == RawUnknown }

// IsDirect reports whether the field is a DIRECT node index.
func (t RawTarget) IsDirect() bool {
	return uint32(t) >= directBase && uint32(t) < indirectBase
}

// IsIndirect reports whether the field is an INDIRECT array index.
func (t RawTarget) IsIndirect() bool {
	return uint32(t) >= indirectBase && uint32(t) < indirectLimit
}

// DirectIdx returns the node index of a DIRECT field. Panics if not
// DIRECT.
func (t RawTarget) DirectIdx() uint32 {
	if !t.IsDirect() {
		panic("node: DirectIdx on non-direct target")
	}
	return uint32(t) - directBase
}

// IndirectIdx returns the array index of an INDIRECT field. Panics if not
// INDIRECT.
func (t RawTarget) IndirectIdx() uint32 {
	if !t.IsIndirect() {
		panic("node: IndirectIdx on non-indirect target")
	}
	return uint32(t) - indirectBase
}

// Targets is the (first, last) tagged pair attached to a node, per spec
// §3. Legal combinations are enforced by the constructors below, not by
// this type itself (it is also the zero-copy wire representation read
// directly out of a memory-mapped file).
type Targets struct {
	First RawTarget
	Last  RawTarget
}

// Unknown returns the "not yet recorded" Targets value.
func Unknown() Targets { return Targets{RawUnknown, RawUnknown} }

// Absent returns the "no outgoing edges" Targets value.
func Absent() Targets { return Targets{RawAbsent, RawAbsent} }

// OneDirect returns a Targets value for a single outgoing edge to
// nodeIdx.
func OneDirect(nodeIdx uint32) Targets {
	return Targets{Direct(nodeIdx), RawAbsent}
}

// TwoDirect returns a Targets value for exactly two outgoing edges. The
// node indices are stored in ascending order, per spec §3's "first <=
// last" invariant for the two-direct case.
func TwoDirect(a, b uint32) Targets {
	if a > b {
		a, b = b, a
	}
	return Targets{Direct(a), Direct(b)}
}

// IndirectRange returns a Targets value denoting the inclusive index
// range [first, last] into the extra-edges (or, transiently during
// ingest, target-hashes) array.
func IndirectRange(first, last uint32) Targets {
	if first > last {
		panic("node: IndirectRange requires first <= last")
	}
	return Targets{Indirect(first), Indirect(last)}
}

// IsUnknown reports whether both fields are UNKNOWN.
func (t Targets) IsUnknown() bool { return t.First.IsUnknown() && t.Last.IsUnknown() }

// IsAbsent reports whether both fields are ABSENT.
func (t Targets) IsAbsent() bool { return t.First.IsAbsent() && t.Last.IsAbsent() }

// IsDirect reports whether either slot holds a DIRECT target, i.e. the
// node has outdegree 1 or 2.
func (t Targets) IsDirect() bool { return t.First.IsDirect() || t.Last.IsDirect() }

// IsIndirect reports whether both slots are INDIRECT.
func (t Targets) IsIndirect() bool { return t.First.IsIndirect() && t.Last.IsIndirect() }

// Outdegree returns the number of outgoing edges this Targets value
// encodes: 0 if absent, 1 if one direct slot, 2 if two direct slots, or
// last-first+1 if indirect.
func (t Targets) Outdegree() uint32 {
	switch {
	case t.IsAbsent():
		return 0
	case t.IsIndirect():
		return t.Last.IndirectIdx() - t.First.IndirectIdx() + 1
	case t.First.IsDirect() && t.Last.IsDirect():
		return 2
	case t.First.IsDirect() || t.Last.IsDirect():
		return 1
	default:
		panic(fmt.Sprintf("node: Outdegree on malformed Targets %+v", t))
	}
}

// FirstIndIdx returns the first INDIRECT array index. Panics if not
// indirect.
func (t Targets) FirstIndIdx() uint32 {
	if !t.IsIndirect() {
		panic("node: FirstIndIdx on non-indirect Targets")
	}
	return t.First.IndirectIdx()
}

// LastIndIdx returns the last INDIRECT array index (inclusive). Panics if
// not indirect.
func (t Targets) LastIndIdx() uint32 {
	if !t.IsIndirect() {
		panic("node: LastIndIdx on non-indirect Targets")
	}
	return t.Last.IndirectIdx()
}

// Kind names the sum-type variant a Targets value decodes into, per the
// enum spec §9 recommends exposing over the packed wire pair.
type Kind int

const (
	KindUnknown Kind = iota
	KindAbsent
	KindOneDirect
	KindTwoDirect
	KindIndirect
)

// Decoded is the unpacked form of Targets, matching spec §9's suggested
// enum shape: Unknown | Absent | OneDirect(u32) | TwoDirect(u32,u32) |
// Indirect{first,last}.
type Decoded struct {
	Kind        Kind
	Direct      [2]uint32 // valid entries per Kind: 0 for OneDirect, 0&1 for TwoDirect
	IndFirst    uint32
	IndLast     uint32
}

// Decode unpacks t into its sum-type variant.
func (t Targets) Decode() Decoded {
	switch {
	case t.IsUnknown():
		return Decoded{Kind: KindUnknown}
	case t.IsAbsent():
		return Decoded{Kind: KindAbsent}
	case t.IsIndirect():
		return Decoded{Kind: KindIndirect, IndFirst: t.FirstIndIdx(), IndLast: t.LastIndIdx()}
	case t.First.IsDirect() && t.Last.IsDirect():
		return Decoded{Kind: KindTwoDirect, Direct: [2]uint32{t.First.DirectIdx(), t.Last.DirectIdx()}}
	case t.First.IsDirect():
		return Decoded{Kind: KindOneDirect, Direct: [2]uint32{t.First.DirectIdx(), 0}}
	case t.Last.IsDirect():
		return Decoded{Kind: KindOneDirect, Direct: [2]uint32{t.Last.DirectIdx(), 0}}
	default:
		panic(fmt.Sprintf("node: Decode on malformed Targets %+v", t))
	}
}

// Node is the packed per-node record: component id, generation number,
// the Targets pair, and the inline hash bytes. Component == 0 and
// Generation == 0 both mean "unassigned".
type Node struct {
	Component  uint32
	Generation uint32
	Targets    Targets
	Hash       []byte // length H, owned by this Node
}

// RecordSize returns the on-disk/packed size in bytes of a Node with the
// given hash length: 16 + H.
func RecordSize(hashLen int) int { return 16 + hashLen }
