// Package hdagfile implements the immutable, memory-mapped on-disk
// serialization of an organized, fully enumerated bundle (spec §4.7/§6):
// a fixed 1036-byte header (signature, version, hash length, a 256-entry
// fanout prefix sum, and the extra-edge count) followed by the packed
// node array and the extra-edges array.
package hdagfile

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/spbnick/hdag-sub001/fault"
)

var signature = [4]byte{'H', 'D', 'A', 'G'}

const (
	versionMajor = 0
	versionMinor = 0

	offSignature    = 0
	offVersion      = 4
	offHashLen      = 6
	offFanout       = 8
	fanoutEntries   = 256
	offExtraEdgeNum = offFanout + fanoutEntries*4 // 1032
	headerSize      = offExtraEdgeNum + 4         // 1036
)

// order is the byte order used for every multi-byte integer in the file.
// Spec §6 mandates host order rather than a fixed endianness, since files
// are explicitly non-portable across architectures; NativeEndian gives
// exactly that without per-platform branching.
var order = binary.NativeEndian

// header is the decoded form of the fixed-size file header.
type header struct {
	hashLen      uint16
	fanout       [fanoutEntries]uint32
	extraEdgeNum uint32
}

func (h *header) nodeNum() uint32 {
	return h.fanout[fanoutEntries-1]
}

func (h *header) nodeRecordSize() int {
	return 16 + int(h.hashLen)
}

func (h *header) nodesSize() int {
	return h.nodeRecordSize() * int(h.nodeNum())
}

func (h *header) extraEdgesSize() int {
	return 4 * int(h.extraEdgeNum)
}

func (h *header) totalSize() int {
	return headerSize + h.nodesSize() + h.extraEdgesSize()
}

// encode writes h into buf[0:headerSize]. buf must be at least headerSize
// long.
func (h *header) encode(buf []byte) {
	copy(buf[offSignature:offSignature+4], signature[:])
	buf[offVersion] = versionMajor
	buf[offVersion+1] = versionMinor
	order.PutUint16(buf[offHashLen:offHashLen+2], h.hashLen)
	for i, v := range h.fanout {
		order.PutUint32(buf[offFanout+i*4:offFanout+i*4+4], v)
	}
	order.PutUint32(buf[offExtraEdgeNum:offExtraEdgeNum+4], h.extraEdgeNum)
}

// decode parses and validates a header out of buf, which must be at least
// headerSize bytes. It does not validate totalSize against the actual
// backing length; callers do that once they know the file's full size.
func decode(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, fault.New(fault.KindInvalidFormat, fmt.Errorf("file too small for header: %d bytes", len(buf)))
	}
	var sig [4]byte
	copy(sig[:], buf[offSignature:offSignature+4])
	if sig != signature {
		return nil, fault.New(fault.KindInvalidFormat, fmt.Errorf("bad signature %q", sig))
	}
	if buf[offVersion] != versionMajor || buf[offVersion+1] != versionMinor {
		return nil, fault.New(fault.KindInvalidFormat, fmt.Errorf("unsupported version %d.%d", buf[offVersion], buf[offVersion+1]))
	}
	h := &header{}
	h.hashLen = order.Uint16(buf[offHashLen : offHashLen+2])
	if h.hashLen == 0 || h.hashLen%4 != 0 {
		return nil, fault.New(fault.KindInvalidFormat, fmt.Errorf("invalid hash_len %d", h.hashLen))
	}
	for i := range h.fanout {
		h.fanout[i] = order.Uint32(buf[offFanout+i*4 : offFanout+i*4+4])
	}
	for i := 1; i < fanoutEntries; i++ {
		if h.fanout[i] < h.fanout[i-1] {
			return nil, fault.New(fault.KindInvalidFormat, fmt.Errorf("fanout not non-decreasing at byte %d", i))
		}
	}
	h.extraEdgeNum = order.Uint32(buf[offExtraEdgeNum : offExtraEdgeNum+4])

	// fanout[255] must fit in the hash space: ceil(log2(node_num+1)) <= 8*H,
	// and ceil(log2(n+1)) == bits.Len32(n) for n >= 1.
	if n := h.nodeNum(); n > 0 {
		if needed := bits.Len32(n); needed > 8*int(h.hashLen) {
			return nil, fault.New(fault.KindInvalidFormat, fmt.Errorf("node_num %d does not fit in %d-byte hash space", n, h.hashLen))
		}
	}
	return h, nil
}
