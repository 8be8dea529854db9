// Package nodesource defines the pull-based node source contract bundles
// ingest from, plus a handful of concrete sources used by tests and small
// callers.
//
// Grounded on the teacher's nodetools.BlockDAGs.Do: an outer pull loop
// (NextNode) drives an inner pull loop (TargetSource.NextTargetHash), both
// signaling end-of-stream with io.EOF and propagating any other error
// immediately. Hash pointers returned by a source are documented as valid
// only until the next call on the same source (spec §4.5); the concrete
// sources below all hand out freshly allocated or caller-owned slices, so
// this matters only to Source implementations outside this module.
package nodesource

import "io"

// Source is a single-pass, pull-based producer of (hash, target-hash
// stream) pairs. HashLen must be constant across the lifetime of a
// Source. NextNode returns io.EOF once exhausted.
type Source interface {
	HashLen() int
	NextNode() (hash []byte, targets TargetSource, err error)
}

// TargetSource yields the target hashes declared for one node. Target
// hashes need not be sorted or deduplicated; the bundle ingest pipeline
// handles both. NextTargetHash returns io.EOF once exhausted.
type TargetSource interface {
	NextTargetHash() (hash []byte, err error)
}

// Record is one node's worth of data for the in-memory Slice source.
type Record struct {
	Hash    []byte
	Targets [][]byte
}

// sliceSource is an in-memory Source built from a fixed list of records.
type sliceSource struct {
	hashLen int
	records []Record
	pos     int
}

// FromSlice builds a Source that replays records in order. hashLen must
// match every record's hash length (and every target hash length); it is
// not inferred from an empty record list.
func FromSlice(hashLen int, records []Record) Source {
	return &sliceSource{hashLen: hashLen, records: records}
}

func (s *sliceSource) HashLen() int { return s.hashLen }

func (s *sliceSource) NextNode() ([]byte, TargetSource, error) {
	if s.pos >= len(s.records) {
		return nil, nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec.Hash, &sliceTargets{hashes: rec.Targets}, nil
}

type sliceTargets struct {
	hashes [][]byte
	pos    int
}

func (t *sliceTargets) NextTargetHash() ([]byte, error) {
	if t.pos >= len(t.hashes) {
		return nil, io.EOF
	}
	h := t.hashes[t.pos]
	t.pos++
	return h, nil
}

// voidSource is the zero-node source from spec §4.5.
type voidSource struct{}

// Void returns a source that declares HashLen() == 0 and yields no
// nodes.
func Void() Source { return voidSource{} }

func (voidSource) HashLen() int { return 0 }

func (voidSource) NextNode() ([]byte, TargetSource, error) { return nil, nil, io.EOF }

// Multi composes several sources into one sequential pull stream: every
// node of sources[0] is yielded, then every node of sources[1], and so
// on. All sources must report the same HashLen. This lets a caller feed
// ingest_node_seq several origins (e.g. multiple adjacency files) without
// pre-merging them, relying on the bundle's own dedup/conflict detection
// to reconcile overlaps across sources.
type Multi struct {
	sources []Source
	idx     int
}

// NewMulti builds a Multi source. Panics if sources is empty or the
// sources disagree on HashLen.
func NewMulti(sources ...Source) *Multi {
	if len(sources) == 0 {
		panic("nodesource: NewMulti requires at least one source")
	}
	hl := sources[0].HashLen()
	for _, s := range sources[1:] {
		if s.HashLen() != hl {
			panic("nodesource: NewMulti sources disagree on HashLen")
		}
	}
	return &Multi{sources: sources}
}

func (m *Multi) HashLen() int { return m.sources[0].HashLen() }

func (m *Multi) NextNode() ([]byte, TargetSource, error) {
	for m.idx < len(m.sources) {
		hash, targets, err := m.sources[m.idx].NextNode()
		if err == nil {
			return hash, targets, nil
		}
		if err != io.EOF {
			return nil, nil, err
		}
		m.idx++
	}
	return nil, nil, io.EOF
}
