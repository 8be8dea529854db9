// Package hashkey implements lexicographic comparison and search over the
// fixed-width opaque hashes that identify bundle nodes.
//
// Grounded on compactindexsized's BucketHeader.Hash/SearchSortedEntries in
// the teacher repository, generalized from a truncated 3-byte hash domain
// to full-length, arbitrary-H lexicographic comparison, since spec §4.8
// requires plain fanout + binary search over complete hashes rather than
// an FKS perfect-hash table.
package hashkey

import "bytes"

// Compare performs an unsigned lexicographic compare of two equal-length
// hashes, returning -1, 0, or +1. Panics if the lengths differ: callers
// within a single bundle/file always compare hashes of the bundle-wide
// length H.
func Compare(a, b []byte) int {
	if len(a) != len(b) {
		panic("hashkey: compared hashes of differing length")
	}
	return bytes.Compare(a, b)
}

// Fill fills buf with the 32-bit pattern p repeated across its length.
// len(buf) must be a multiple of 4.
func Fill(buf []byte, p uint32) {
	if len(buf)%4 != 0 {
		panic("hashkey: Fill requires a length that's a multiple of 4")
	}
	for i := 0; i < len(buf); i += 4 {
		buf[i+0] = byte(p >> 24)
		buf[i+1] = byte(p >> 16)
		buf[i+2] = byte(p >> 8)
		buf[i+3] = byte(p)
	}
}

// TestFill reports whether buf consists entirely of the 32-bit pattern p
// repeated. len(buf) must be a multiple of 4.
func TestFill(buf []byte, p uint32) bool {
	if len(buf)%4 != 0 {
		panic("hashkey: TestFill requires a length that's a multiple of 4")
	}
	for i := 0; i < len(buf); i += 4 {
		want := [4]byte{byte(p >> 24), byte(p >> 16), byte(p >> 8), byte(p)}
		if buf[i] != want[0] || buf[i+1] != want[1] || buf[i+2] != want[2] || buf[i+3] != want[3] {
			return false
		}
	}
	return true
}

// FanoutValid reports whether a 256-entry fanout table is non-decreasing,
// the only structural requirement spec §4.3/§4.7 place on it.
func FanoutValid(fanout [256]uint32) bool {
	for i := 1; i < len(fanout); i++ {
		if fanout[i] < fanout[i-1] {
			return false
		}
	}
	return true
}

// Find performs a binary search for key within the sorted, deduplicated
// slice of hashLen-byte hashes packed contiguously in sorted. Returns the
// index and true on a match, or the insertion index and false.
func Find(sorted []byte, hashLen int, key []byte) (int, bool) {
	if len(key) != hashLen {
		panic("hashkey: key length does not match hashLen")
	}
	n := len(sorted) / hashLen
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		cand := sorted[mid*hashLen : mid*hashLen+hashLen]
		c := Compare(key, cand)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return lo, false
}

// FindFunc is the accessor-based counterpart of Find, for callers whose
// hashes aren't packed contiguously (e.g. node records with interleaved
// fields). at(i) must return the hash of the i-th of n sorted elements.
func FindFunc(n int, key []byte, at func(i int) []byte) (int, bool) {
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c := Compare(key, at(mid))
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return lo, false
}
