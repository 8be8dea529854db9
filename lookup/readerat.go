package lookup

import (
	"fmt"
	"io"

	"github.com/valyala/bytebufferpool"

	"github.com/spbnick/hdag-sub001/hashkey"
	"github.com/spbnick/hdag-sub001/hdagfile"
)

// HeaderView is the minimal decoded file metadata FindReaderAt needs: the
// 256-entry fanout table and the node record geometry. Callers that
// already hold an *hdagfile.File should use Find instead; HeaderView lets
// FindReaderAt work against a plain io.ReaderAt (e.g. a remote handle
// that was never mmapped) without depending on hdagfile's internals.
type HeaderView struct {
	HashLen    int
	Fanout     [256]uint32
	NodesBase  int64 // file offset of nodes[0]
	RecordSize int64 // 16 + HashLen
}

// NewHeaderView builds a HeaderView from an already-open *hdagfile.File,
// for callers that want to drive FindReaderAt against a separate
// io.ReaderAt (e.g. a duplicated, non-mmapped fd) using the same file's
// layout.
func NewHeaderView(f *hdagfile.File) HeaderView {
	return HeaderView{
		HashLen:    f.HashLen(),
		Fanout:     f.FanoutTable(),
		NodesBase:  f.NodesOffset(),
		RecordSize: f.NodeRecordSize(),
	}
}

// FindReaderAt performs the same fanout-window binary search as Find, but
// against an arbitrary io.ReaderAt instead of a memory-mapped file,
// pulling each candidate record on demand into a pooled buffer rather
// than requiring the whole window resident. Grounded on
// compactindexsized.Bucket.Lookup's pattern of reading bucket windows
// through a ReaderAt into scratch space rather than assuming an mmap.
func FindReaderAt(r io.ReaderAt, hv HeaderView, hash []byte) (Result, error) {
	if len(hash) != hv.HashLen {
		return Result{}, fmt.Errorf("lookup: hash length %d does not match file hash length %d", len(hash), hv.HashLen)
	}
	lo := 0
	if hash[0] > 0 {
		lo = int(hv.Fanout[hash[0]-1])
	}
	hi := int(hv.Fanout[hash[0]])

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.B = append(buf.B[:0], make([]byte, hv.RecordSize)...)

	readRecordHash := func(i int) ([]byte, error) {
		off := hv.NodesBase + int64(i)*hv.RecordSize
		if _, err := r.ReadAt(buf.B, off); err != nil && err != io.EOF {
			return nil, err
		}
		return buf.B[16:hv.RecordSize], nil
	}

	n := hi - lo
	blo, bhi := 0, n
	for blo < bhi {
		mid := int(uint(blo+bhi) >> 1)
		cand, err := readRecordHash(lo + mid)
		if err != nil {
			return Result{}, err
		}
		c := hashkey.Compare(hash, cand)
		switch {
		case c == 0:
			return Result{Found: true, Index: lo + mid}, nil
		case c < 0:
			bhi = mid
		default:
			blo = mid + 1
		}
	}
	return Result{}, nil
}
