package bundle

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spbnick/hdag-sub001/contseq"
	"github.com/spbnick/hdag-sub001/dynarray"
	"github.com/spbnick/hdag-sub001/fault"
	"github.com/spbnick/hdag-sub001/hashkey"
	"github.com/spbnick/hdag-sub001/node"
	"github.com/spbnick/hdag-sub001/nodesource"
)

// IngestOptions configures IngestNodeSeq.
type IngestOptions struct {
	// Strict enables the stricter-mode checks spec §9 reserves but
	// leaves unwired: a hash declared twice by the source's top-level
	// NextNode (regardless of whether the target sets agree) fails with
	// fault.KindNodeDuplicate, and a node whose target stream repeats
	// the same target hash fails with fault.KindEdgeDuplicate. Disabled
	// by default, matching the non-strict behavior spec.md's scenarios
	// describe.
	Strict bool
}

// IngestNodeSeq drives the full ingest pipeline (spec §4.6.8): load, sort,
// dedup, index, compact, cycle-detect + enumerate generations, enumerate
// components. The bundle must be empty on entry. On any failure the
// bundle is left in a valid (possibly partially loaded) state that
// Cleanup can safely release.
func (b *Bundle) IngestNodeSeq(src nodesource.Source, opts IngestOptions) error {
	if !b.IsEmpty() {
		return fmt.Errorf("bundle: IngestNodeSeq requires an empty bundle")
	}
	// A void source declares HashLen() == 0 and yields no nodes, so it is
	// accepted by a bundle of any hash length.
	if src.HashLen() != 0 && src.HashLen() != b.hashLen {
		return fmt.Errorf("bundle: source hash length %d does not match bundle hash length %d", src.HashLen(), b.hashLen)
	}

	chain := contseq.New().
		Then("load", func() error { return b.load(src, opts) }).
		Then("sort", func() error { b.sortNodes(); return nil }).
		Then("dedup", func() error { return b.dedupNodes() }).
		Then("index", func() error { return b.indexTargets() }).
		Then("compact", func() error { b.compactTargets(); return nil }).
		Then("enumerate-generations", func() error { return b.enumerateGenerations() }).
		Then("enumerate-components", func() error { b.enumerateComponents(); return nil })

	if err := chain.Err(); err != nil {
		slog.Debug("bundle ingest failed", "step", chain.FailedStep(), "error", err)
		return err
	}
	slog.Debug("bundle ingest complete", "nodes", b.NumNodes(), "extra_edges", b.NumExtraEdges())
	return nil
}

// load implements spec §4.6.1: for every (hash, target hashes) pulled from
// src, append a provisional node for the parent (targets Absent if its
// target stream is empty, otherwise Indirect into target_hashes) plus an
// Unknown-targets tombstone node for every declared target hash, so later
// phases can
// resolve target hashes back to node indices by binary search.
func (b *Bundle) load(src nodesource.Source, opts IngestOptions) error {
	var declared map[string]struct{}
	if opts.Strict {
		declared = make(map[string]struct{})
	}
	for {
		hash, targets, err := src.NextNode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(hash) != b.hashLen {
			return fmt.Errorf("bundle: node source yielded a %d-byte hash, want %d", len(hash), b.hashLen)
		}
		if opts.Strict {
			key := string(hash)
			if _, dup := declared[key]; dup {
				return fault.New(fault.KindNodeDuplicate, fmt.Errorf("hash %x declared more than once", hash))
			}
			declared[key] = struct{}{}
		}

		parentIdx := b.nodes.Append(node.Node{Hash: cloneHash(hash), Targets: node.Unknown()})

		var seenTargets map[string]struct{}
		if opts.Strict {
			seenTargets = make(map[string]struct{})
		}
		first, last := -1, -1
		for {
			th, terr := targets.NextTargetHash()
			if errors.Is(terr, io.EOF) {
				break
			}
			if terr != nil {
				return terr
			}
			if len(th) != b.hashLen {
				return fmt.Errorf("bundle: target hash source yielded a %d-byte hash, want %d", len(th), b.hashLen)
			}
			if opts.Strict {
				key := string(th)
				if _, dup := seenTargets[key]; dup {
					return fault.New(fault.KindEdgeDuplicate, fmt.Errorf("node %x declares target %x more than once", hash, th))
				}
				seenTargets[key] = struct{}{}
			}

			idx := b.targetHashes.Append(cloneHash(th))
			if first == -1 {
				first = idx
			}
			last = idx
			b.nodes.Append(node.Node{Hash: cloneHash(th), Targets: node.Unknown()})
		}
		if first != -1 {
			b.nodes.Ptr(parentIdx).Targets = node.IndirectRange(uint32(first), uint32(last))
		} else {
			b.nodes.Ptr(parentIdx).Targets = node.Absent()
		}
	}
}

// sortNodes implements spec §4.6.2.
func (b *Bundle) sortNodes() {
	dynarray.Sort(b.nodes, func(x, y *node.Node) int { return hashkey.Compare(x.Hash, y.Hash) })
}

// dedupNodes implements spec §4.6.3: a single forward pass over the
// sorted array collapsing runs of equal hash, equivalent to the spec's
// end-to-start walk but requiring no extra buffer either way.
func (b *Bundle) dedupNodes() error {
	all := b.nodes.All()
	n := len(all)
	if n == 0 {
		return nil
	}
	write := 0
	i := 0
	for i < n {
		j := i
		for j+1 < n && hashkey.Compare(all[j+1].Hash, all[i].Hash) == 0 {
			j++
		}
		knownIdx := -1
		dupCount := 0
		for k := i; k <= j; k++ {
			dupCount++
			if !all[k].Targets.IsUnknown() {
				if knownIdx != -1 {
					return fault.New(fault.KindNodeConflict, fmt.Errorf("hash %x declared more than once with known target sets", all[i].Hash))
				}
				knownIdx = k
			}
		}
		_ = dupCount
		survivor := i
		if knownIdx != -1 {
			survivor = knownIdx
		}
		all[write] = all[survivor]
		write++
		i = j + 1
	}
	b.nodes.RemoveRange(write, n)
	return nil
}

// indexTargets implements spec §4.6.4: resolve every hash recorded in
// target_hashes to a node index via binary search over the now-sorted,
// deduplicated node array, building the extra-edges array directly (the
// alternative construction spec §4.6.4 allows) instead of rewriting
// target_hashes in place.
func (b *Bundle) indexTargets() error {
	n := b.targetHashes.Len()
	resolved := dynarray.New[uint32](n)
	for i := 0; i < n; i++ {
		h := b.targetHashes.At(i)
		idx, found := hashkey.FindFunc(b.nodes.Len(), h, func(j int) []byte { return b.nodes.At(j).Hash })
		if !found {
			return fmt.Errorf("bundle: internal invariant violated: target hash %x has no tombstone after load", h)
		}
		resolved.Append(uint32(idx))
	}
	// resolved mirrors target_hashes position-for-position, so every
	// node's existing Indirect(first, last) range already addresses the
	// right slots in resolved; no Targets rewrite is needed here.
	b.targetHashes.Cleanup()
	b.extraEdges = resolved
	return nil
}

// compactTargets implements spec §4.6.5: fold outdegree 1/2 indirect
// targets into direct node indices, and re-pack the remaining outdegree
// >=3 targets into a final, contiguous extra-edges array.
func (b *Bundle) compactTargets() {
	old := b.extraEdges
	final := dynarray.New[uint32](old.Len())
	n := b.nodes.Len()
	for i := 0; i < n; i++ {
		nd := b.nodes.Ptr(i)
		if !nd.Targets.IsIndirect() {
			continue
		}
		oldFirst := nd.Targets.FirstIndIdx()
		oldLast := nd.Targets.LastIndIdx()
		outdeg := oldLast - oldFirst + 1
		switch outdeg {
		case 1:
			nd.Targets = node.OneDirect(old.At(int(oldFirst)))
		case 2:
			nd.Targets = node.TwoDirect(old.At(int(oldFirst)), old.At(int(oldFirst+1)))
		default:
			newFirst := uint32(final.Len())
			for k := oldFirst; k <= oldLast; k++ {
				final.Append(old.At(int(k)))
			}
			nd.Targets = node.IndirectRange(newFirst, newFirst+outdeg-1)
		}
	}
	old.Cleanup()
	b.extraEdges = final
}

// Sort is the standalone, individually-testable form of spec §4.6.2.
func (b *Bundle) Sort() { b.sortNodes() }

// Dedup is the standalone, individually-testable form of spec §4.6.3.
func (b *Bundle) Dedup() error { return b.dedupNodes() }

// Compact is the standalone, individually-testable form of spec §4.6.5.
// It is idempotent: Compact is a no-op on a bundle whose targets are
// already all direct/absent/pointing into a final extra-edges array.
func (b *Bundle) Compact() { b.compactTargets() }
