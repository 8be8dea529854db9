// Package bundle implements the in-memory mutable working set described in
// spec §3/§4.6: a three-array container (nodes, transient target-hashes,
// extra-edges) plus the ingest pipeline that turns a raw adjacency stream
// into a sorted, deduplicated, cycle-checked, generation- and
// component-enumerated, index-compacted graph.
package bundle

import (
	"fmt"

	"github.com/spbnick/hdag-sub001/dynarray"
	"github.com/spbnick/hdag-sub001/hashkey"
	"github.com/spbnick/hdag-sub001/node"
)

// Bundle is the mutable, exclusively-owned working set for one hash-DAG.
// The zero value is not usable; construct with New.
type Bundle struct {
	hashLen      int
	nodes        *dynarray.Array[node.Node]
	targetHashes *dynarray.Array[[]byte]
	extraEdges   *dynarray.Array[uint32]
}

// maxOccupancy is the largest legal occupancy of any bundle array (spec
// §3: indices < 2^31 - 1, occupied counts < 2^31).
const maxOccupancy = 1<<31 - 1

// New creates an empty bundle with the given hash length. hashLen must be
// positive and a multiple of 4.
func New(hashLen int) *Bundle {
	if hashLen <= 0 || hashLen%4 != 0 {
		panic(fmt.Sprintf("bundle: invalid hash length %d (must be > 0 and a multiple of 4)", hashLen))
	}
	return &Bundle{
		hashLen:      hashLen,
		nodes:        dynarray.New[node.Node](0),
		targetHashes: dynarray.New[[]byte](0),
		extraEdges:   dynarray.New[uint32](0),
	}
}

// NewPrealloc is New with initial capacity reserved across all three
// arrays, for callers that know roughly how many nodes/edges to expect.
func NewPrealloc(hashLen, preallocNodes, preallocEdges int) *Bundle {
	b := New(hashLen)
	b.nodes = dynarray.New[node.Node](preallocNodes)
	b.targetHashes = dynarray.New[[]byte](preallocEdges)
	b.extraEdges = dynarray.New[uint32](preallocEdges)
	return b
}

// HashLen returns the bundle-wide hash length H.
func (b *Bundle) HashLen() int { return b.hashLen }

// NumNodes returns the current node count.
func (b *Bundle) NumNodes() int { return b.nodes.Len() }

// NumExtraEdges returns the current extra-edges count.
func (b *Bundle) NumExtraEdges() int { return b.extraEdges.Len() }

// Node returns a copy of the node record at idx.
func (b *Bundle) Node(idx int) node.Node { return b.nodes.At(idx) }

// Hash returns the hash of the node at idx, aliasing the bundle's storage.
func (b *Bundle) Hash(idx int) []byte { return b.nodes.At(idx).Hash }

// Targets returns the Targets value of the node at idx.
func (b *Bundle) Targets(idx int) node.Targets { return b.nodes.At(idx).Targets }

// Outdegree returns the outdegree of the node at idx.
func (b *Bundle) Outdegree(idx int) uint32 { return b.nodes.At(idx).Targets.Outdegree() }

// TargetNodeIdx returns the node index of the k-th (0-based) outgoing edge
// of the node at idx. Panics if k is out of range for the node's
// outdegree, or the node has no edges.
func (b *Bundle) TargetNodeIdx(idx, k int) uint32 {
	t := b.nodes.At(idx).Targets
	d := t.Decode()
	switch d.Kind {
	case node.KindOneDirect:
		if k != 0 {
			panic(fmt.Sprintf("bundle: TargetNodeIdx(%d, %d) out of range for outdegree 1", idx, k))
		}
		return d.Direct[0]
	case node.KindTwoDirect:
		if k < 0 || k > 1 {
			panic(fmt.Sprintf("bundle: TargetNodeIdx(%d, %d) out of range for outdegree 2", idx, k))
		}
		return d.Direct[k]
	case node.KindIndirect:
		od := int(d.IndLast - d.IndFirst + 1)
		if k < 0 || k >= od {
			panic(fmt.Sprintf("bundle: TargetNodeIdx(%d, %d) out of range for outdegree %d", idx, k, od))
		}
		return b.extraEdges.At(int(d.IndFirst) + k)
	default:
		panic(fmt.Sprintf("bundle: TargetNodeIdx(%d, ...) called on node with no edges (kind %v)", idx, d.Kind))
	}
}

// IsValid reports whether the bundle satisfies spec §3's "valid bundle"
// invariants: a legal hash length, target-hashes and extra-edges never
// both populated, and every array under the occupancy ceiling.
func (b *Bundle) IsValid() bool {
	if b.hashLen <= 0 || b.hashLen%4 != 0 {
		return false
	}
	if b.nodes.Len() > maxOccupancy || b.targetHashes.Len() > maxOccupancy || b.extraEdges.Len() > maxOccupancy {
		return false
	}
	if b.targetHashes.Len() > 0 && b.extraEdges.Len() > 0 {
		return false
	}
	return true
}

// IsOrganized reports whether the bundle is sorted by hash, free of
// duplicate hashes, and has resolved all target references out of the
// transient target-hashes array (spec §3's "organized bundle").
func (b *Bundle) IsOrganized() bool {
	if b.targetHashes.Len() != 0 {
		return false
	}
	n := b.nodes.Len()
	for i := 1; i < n; i++ {
		c := hashkey.Compare(b.nodes.At(i-1).Hash, b.nodes.At(i).Hash)
		if c >= 0 {
			return false
		}
	}
	return true
}

// IsEnumerated reports whether every node has a non-zero generation and
// component, spec §3's "fully enumerated bundle".
func (b *Bundle) IsEnumerated() bool {
	n := b.nodes.Len()
	for i := 0; i < n; i++ {
		nd := b.nodes.At(i)
		if nd.Generation == 0 || nd.Component == 0 {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the bundle holds no nodes.
func (b *Bundle) IsEmpty() bool { return b.nodes.Len() == 0 }

// AppendRaw appends a fully formed node record as-is, without any of the
// ingest pipeline's load/sort/dedup processing. Used by hdagfile.ToBundle
// to reconstruct a bundle from an already organized, enumerated file.
func (b *Bundle) AppendRaw(n node.Node) int { return b.nodes.Append(n) }

// ExtraEdge returns the node index stored at extra-edges position idx.
func (b *Bundle) ExtraEdge(idx int) uint32 { return b.extraEdges.At(idx) }

// AppendExtraEdge appends a raw extra-edge entry. Used by
// hdagfile.ToBundle alongside AppendRaw.
func (b *Bundle) AppendExtraEdge(v uint32) int { return b.extraEdges.Append(v) }

// Find performs a binary search for hash among the bundle's nodes. The
// bundle must be organized (sorted, deduplicated) for the result to be
// meaningful. Returns the node index and true on a match, or the
// insertion index and false.
func (b *Bundle) Find(hash []byte) (int, bool) {
	return hashkey.FindFunc(b.nodes.Len(), hash, func(i int) []byte { return b.nodes.At(i).Hash })
}

func cloneHash(h []byte) []byte {
	c := make([]byte, len(h))
	copy(c, h)
	return c
}
