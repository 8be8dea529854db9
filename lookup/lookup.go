// Package lookup implements spec §4.8: given an open file and a hash,
// narrow to the fanout window selected by the hash's first byte and
// binary-search it by full-hash compare, then enumerate a found node's
// outgoing edges via the Targets state machine.
package lookup

import (
	"fmt"

	"github.com/spbnick/hdag-sub001/fault"
	"github.com/spbnick/hdag-sub001/hashkey"
	"github.com/spbnick/hdag-sub001/hdagfile"
	"github.com/spbnick/hdag-sub001/node"
)

// Result is the outcome of a lookup: either Found with the matching node
// index, or NotFound.
type Result struct {
	Found bool
	Index int
}

// Find implements spec §4.8 against an mmap-backed *hdagfile.File: the
// fanout window is a direct, zero-copy view into the mapped region.
func Find(f *hdagfile.File, hash []byte) (Result, error) {
	if len(hash) == 0 {
		return Result{}, fmt.Errorf("lookup: empty hash")
	}
	if len(hash) != f.HashLen() {
		return Result{}, fmt.Errorf("lookup: hash length %d does not match file hash length %d", len(hash), f.HashLen())
	}
	lo := 0
	if hash[0] > 0 {
		lo = int(f.Fanout(hash[0] - 1))
	}
	hi := int(f.Fanout(hash[0]))

	idx, found := hashkey.FindFunc(hi-lo, hash, func(i int) []byte { return f.NodeHash(lo + i) })
	if !found {
		return Result{}, nil
	}
	return Result{Found: true, Index: lo + idx}, nil
}

// Edges enumerates the node indices a node at idx points to, per the
// Targets state machine: ABSENT yields none; UNKNOWN is rejected since a
// valid file never contains an unresolved stub; DIRECT yields one or two
// edges; INDIRECT walks extra_edges[first..=last].
func Edges(f *hdagfile.File, idx int) ([]uint32, error) {
	t := f.NodeTargets(idx)
	d := t.Decode()
	switch d.Kind {
	case node.KindAbsent:
		return nil, nil
	case node.KindUnknown:
		return nil, fault.New(fault.KindInvalidFormat, fmt.Errorf("node %d has unresolved UNKNOWN targets in a file", idx))
	case node.KindOneDirect:
		return []uint32{d.Direct[0]}, nil
	case node.KindTwoDirect:
		return []uint32{d.Direct[0], d.Direct[1]}, nil
	case node.KindIndirect:
		out := make([]uint32, 0, d.IndLast-d.IndFirst+1)
		for i := d.IndFirst; i <= d.IndLast; i++ {
			out = append(out, f.ExtraEdge(int(i)))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("lookup: node %d has malformed targets", idx)
	}
}
