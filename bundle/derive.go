package bundle

import (
	"github.com/spbnick/hdag-sub001/dynarray"
	"github.com/spbnick/hdag-sub001/node"
)

// Invert builds a new, fully enumerated bundle with every edge reversed:
// a target of a node in b becomes a source pointing back at it. Reversing
// edges changes generation numbering even when the graph stays acyclic,
// so Invert re-runs generation/cycle detection and component enumeration
// on the result rather than copying b's own numbers. b must already be organized; the result carries
// the same hashes in the same sorted order, only the edges differ.
func (b *Bundle) Invert() (*Bundle, error) {
	n := b.nodes.Len()
	preds := make([][]uint32, n)
	for i := 0; i < n; i++ {
		od := int(b.Outdegree(i))
		for k := 0; k < od; k++ {
			t := int(b.TargetNodeIdx(i, k))
			preds[t] = append(preds[t], uint32(i))
		}
	}

	out := New(b.hashLen)
	out.nodes = dynarray.New[node.Node](n)
	for i := 0; i < n; i++ {
		out.nodes.Append(node.Node{Hash: cloneHash(b.nodes.At(i).Hash)})
	}

	extra := dynarray.New[uint32](b.extraEdges.Len())
	for i := 0; i < n; i++ {
		ps := preds[i]
		var t node.Targets
		switch len(ps) {
		case 0:
			t = node.Absent()
		case 1:
			t = node.OneDirect(ps[0])
		case 2:
			t = node.TwoDirect(ps[0], ps[1])
		default:
			first := uint32(extra.Len())
			for _, p := range ps {
				extra.Append(p)
			}
			t = node.IndirectRange(first, first+uint32(len(ps))-1)
		}
		out.nodes.Ptr(i).Targets = t
	}
	out.extraEdges = extra

	if err := out.enumerateGenerations(); err != nil {
		return nil, err
	}
	out.enumerateComponents()
	return out, nil
}

// Deflate shrinks every backing array to its current occupancy, trading
// the ability to grow cheaply for minimal resident size. Useful once a
// bundle is fully ingested and about to be handed to hdagfile.Build.
func (b *Bundle) Deflate() {
	b.nodes.Deflate()
	b.targetHashes.Deflate()
	b.extraEdges.Deflate()
}

// Clear empties the bundle but keeps its backing allocations, for reuse
// across repeated ingests of similarly sized inputs.
func (b *Bundle) Clear() {
	b.nodes.Clear()
	b.targetHashes.Clear()
	b.extraEdges.Clear()
}

// Cleanup releases every backing allocation. The bundle must not be used
// afterward except via a fresh assignment from New/NewPrealloc.
func (b *Bundle) Cleanup() {
	b.nodes.Cleanup()
	b.targetHashes.Cleanup()
	b.extraEdges.Cleanup()
}
