package hdagfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/spbnick/hdag-sub001/bundle"
	"github.com/spbnick/hdag-sub001/fault"
	"github.com/spbnick/hdag-sub001/node"
)

// File is an open, memory-mapped hdag file (spec §4.7). The zero value is
// not usable; construct with Build or Open.
type File struct {
	data   []byte // the full mmapped region
	hdr    *header
	fd     *os.File // nil for an anonymous (unbacked) file
	path   string
	closed bool
}

// BuildOptions configures Build.
type BuildOptions struct {
	// PathTemplate, if non-empty, names the destination as a template
	// containing the literal substring "XXXXXX", which is replaced with
	// six random lowercase hex characters (spec §6's temp-file convention); any
	// text after "XXXXXX" is preserved as a fixed-length suffix. Leave
	// empty to build an anonymous, memory-only file instead of one
	// backed by the filesystem.
	PathTemplate string
}

// tempName replaces the first "XXXXXX" in template with the first six
// hex digits of a fresh random UUID, preserving everything
// before and after it.
func tempName(template string) (string, error) {
	idx := strings.Index(template, "XXXXXX")
	if idx < 0 {
		return "", fmt.Errorf("hdagfile: path template %q lacks the required XXXXXX placeholder", template)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fault.Errno(err)
	}
	suffix := strings.ReplaceAll(id.String(), "-", "")[:6]
	return template[:idx] + suffix + template[idx+6:], nil
}

// Build implements spec §4.7.1: compute the fanout prefix sum over b's
// nodes, allocate a backing region (filesystem-backed if opts.PathTemplate
// is set, otherwise anonymous), and write the header, node array, and
// extra-edges array into it. b must be organized and fully enumerated.
func Build(b *bundle.Bundle, opts BuildOptions) (*File, error) {
	if !b.IsOrganized() || !b.IsEnumerated() {
		return nil, fmt.Errorf("hdagfile: Build requires an organized, fully enumerated bundle")
	}

	hdr := &header{hashLen: uint16(b.HashLen())}
	n := b.NumNodes()
	for i := 0; i < n; i++ {
		hdr.fanout[b.Hash(i)[0]]++
	}
	for i := 1; i < fanoutEntries; i++ {
		hdr.fanout[i] += hdr.fanout[i-1]
	}
	hdr.extraEdgeNum = uint32(b.NumExtraEdges())

	size := hdr.totalSize()

	f := &File{hdr: hdr}
	if opts.PathTemplate == "" {
		data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_SHARED)
		if err != nil {
			return nil, fault.Errno(err)
		}
		f.data = data
	} else {
		path, err := tempName(opts.PathTemplate)
		if err != nil {
			return nil, err
		}
		fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return nil, fault.Errno(err)
		}
		if err := fd.Truncate(int64(size)); err != nil {
			_ = fd.Close()
			_ = os.Remove(path)
			return nil, fault.Errno(err)
		}
		data, err := unix.Mmap(int(fd.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			_ = fd.Close()
			_ = os.Remove(path)
			return nil, fault.Errno(err)
		}
		f.data = data
		f.fd = fd
		f.path = path
	}

	hdr.encode(f.data[:headerSize])
	writeNodes(f.data[headerSize:headerSize+hdr.nodesSize()], b, int(hdr.hashLen))
	writeExtraEdges(f.data[headerSize+hdr.nodesSize():], b)

	slog.Info("hdagfile built", "path", f.path, "size", humanize.Bytes(uint64(size)), "nodes", n, "extra_edges", hdr.extraEdgeNum)
	return f, nil
}

func writeNodes(buf []byte, b *bundle.Bundle, hashLen int) {
	recSize := 16 + hashLen
	for i := 0; i < b.NumNodes(); i++ {
		nd := b.Node(i)
		rec := buf[i*recSize : (i+1)*recSize]
		order.PutUint32(rec[0:4], nd.Component)
		order.PutUint32(rec[4:8], nd.Generation)
		order.PutUint32(rec[8:12], uint32(nd.Targets.First))
		order.PutUint32(rec[12:16], uint32(nd.Targets.Last))
		copy(rec[16:16+hashLen], nd.Hash)
	}
}

func writeExtraEdges(buf []byte, b *bundle.Bundle) {
	for i := 0; i < b.NumExtraEdges(); i++ {
		order.PutUint32(buf[i*4:i*4+4], b.ExtraEdge(i))
	}
}

// Open implements spec §4.7.2: mmap an existing file RW shared and
// validate its header, returning fault.KindInvalidFormat on any mismatch.
func Open(path string) (*File, error) {
	fd, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fault.Errno(err)
	}
	info, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		return nil, fault.Errno(err)
	}
	size := info.Size()
	if size < headerSize {
		_ = fd.Close()
		return nil, fault.New(fault.KindInvalidFormat, fmt.Errorf("file too small: %d bytes", size))
	}
	data, err := unix.Mmap(int(fd.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = fd.Close()
		return nil, fault.Errno(err)
	}
	hdr, err := decode(data)
	if err != nil {
		_ = unix.Munmap(data)
		_ = fd.Close()
		return nil, err
	}
	if hdr.totalSize() != int(size) {
		_ = unix.Munmap(data)
		_ = fd.Close()
		return nil, fault.New(fault.KindInvalidFormat, fmt.Errorf("file size %d does not match computed size %d", size, hdr.totalSize()))
	}
	return &File{data: data, hdr: hdr, fd: fd, path: path}, nil
}

// HashLen returns the file's hash length.
func (f *File) HashLen() int { return int(f.hdr.hashLen) }

// NumNodes returns the file's node count (node_fanout[255]).
func (f *File) NumNodes() int { return int(f.hdr.nodeNum()) }

// NumExtraEdges returns the file's extra-edge count.
func (f *File) NumExtraEdges() int { return int(f.hdr.extraEdgeNum) }

// Fanout returns the fanout value for byte b (the count of nodes whose
// hash's first byte is <= b).
func (f *File) Fanout(b byte) uint32 { return f.hdr.fanout[b] }

// FanoutTable returns a copy of the full 256-entry fanout table.
func (f *File) FanoutTable() [256]uint32 { return f.hdr.fanout }

// NodesOffset returns the file offset of the first node record, for
// callers driving lookups over a raw io.ReaderAt instead of this File's
// own mapped view (see lookup.FindReaderAt).
func (f *File) NodesOffset() int64 { return headerSize }

// NodeRecordSize returns the per-node record size in bytes (16 + hash_len).
func (f *File) NodeRecordSize() int64 { return int64(f.hdr.nodeRecordSize()) }

// nodesBytes returns the raw packed node array.
func (f *File) nodesBytes() []byte {
	return f.data[headerSize : headerSize+f.hdr.nodesSize()]
}

// extraEdgesBytes returns the raw packed extra-edges array.
func (f *File) extraEdgesBytes() []byte {
	start := headerSize + f.hdr.nodesSize()
	return f.data[start : start+f.hdr.extraEdgesSize()]
}

// NodeHash returns the hash of the node at idx, aliasing the mapped file.
func (f *File) NodeHash(idx int) []byte {
	recSize := f.hdr.nodeRecordSize()
	rec := f.nodesBytes()[idx*recSize : (idx+1)*recSize]
	return rec[16 : 16+int(f.hdr.hashLen)]
}

// NodeTargets decodes the Targets pair of the node at idx.
func (f *File) NodeTargets(idx int) node.Targets {
	recSize := f.hdr.nodeRecordSize()
	rec := f.nodesBytes()[idx*recSize : (idx+1)*recSize]
	return node.Targets{
		First: node.RawTarget(order.Uint32(rec[8:12])),
		Last:  node.RawTarget(order.Uint32(rec[12:16])),
	}
}

// NodeComponent and NodeGeneration return the stored component/generation
// numbers of the node at idx.
func (f *File) NodeComponent(idx int) uint32 {
	recSize := f.hdr.nodeRecordSize()
	return order.Uint32(f.nodesBytes()[idx*recSize : idx*recSize+4])
}

func (f *File) NodeGeneration(idx int) uint32 {
	recSize := f.hdr.nodeRecordSize()
	return order.Uint32(f.nodesBytes()[idx*recSize+4 : idx*recSize+8])
}

// ExtraEdge returns the node index stored at extra-edges position idx.
func (f *File) ExtraEdge(idx int) uint32 {
	b := f.extraEdgesBytes()
	return order.Uint32(b[idx*4 : idx*4+4])
}

// ToBundle implements spec §4.7.3: reconstruct a bundle by copying the
// mapped node and extra-edge arrays into fresh dynamic arrays. The
// fanout table is dropped, matching spec's note that a bundle never
// stores it.
func (f *File) ToBundle() *bundle.Bundle {
	b := bundle.NewPrealloc(int(f.hdr.hashLen), f.NumNodes(), f.NumExtraEdges())
	for i := 0; i < f.NumNodes(); i++ {
		hash := make([]byte, f.hdr.hashLen)
		copy(hash, f.NodeHash(i))
		b.AppendRaw(node.Node{
			Component:  f.NodeComponent(i),
			Generation: f.NodeGeneration(i),
			Targets:    f.NodeTargets(i),
			Hash:       hash,
		})
	}
	for i := 0; i < f.NumExtraEdges(); i++ {
		b.AppendExtraEdge(f.ExtraEdge(i))
	}
	return b
}

// Sync flushes the mapped region to its backing file via msync. A no-op
// for anonymous files.
func (f *File) Sync() error {
	if f.fd == nil {
		return nil
	}
	if err := unix.Msync(f.data, unix.MS_SYNC); err != nil {
		return fault.Errno(err)
	}
	return nil
}

// Rename atomically installs a filesystem-backed file at its final path.
func (f *File) Rename(finalPath string) error {
	if f.fd == nil {
		return fmt.Errorf("hdagfile: Rename requires a filesystem-backed file")
	}
	if err := os.Rename(f.path, finalPath); err != nil {
		return fault.Errno(err)
	}
	abs, err := filepath.Abs(finalPath)
	if err == nil {
		f.path = abs
	} else {
		f.path = finalPath
	}
	return nil
}

// Unlink removes a filesystem-backed file's path without closing the
// mapping. A no-op for anonymous files.
func (f *File) Unlink() error {
	if f.fd == nil {
		return nil
	}
	if err := os.Remove(f.path); err != nil {
		return fault.Errno(err)
	}
	return nil
}

// Close unmaps the file and, if backed, closes its file descriptor.
// Every owned release is attempted even if an earlier one fails; the
// combined error (if any) is returned via multierr.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	var err error
	if unmapErr := unix.Munmap(f.data); unmapErr != nil {
		err = multierr.Append(err, fault.Errno(unmapErr))
	}
	if f.fd != nil {
		if closeErr := f.fd.Close(); closeErr != nil {
			err = multierr.Append(err, fault.Errno(closeErr))
		}
	}
	return err
}
