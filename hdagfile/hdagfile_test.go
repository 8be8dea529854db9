package hdagfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spbnick/hdag-sub001/bundle"
	"github.com/spbnick/hdag-sub001/hdagfile"
	"github.com/spbnick/hdag-sub001/nodesource"
	"github.com/stretchr/testify/require"
)

func h(n uint32) []byte {
	return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
}

func rec(hash uint32, targets ...uint32) nodesource.Record {
	r := nodesource.Record{Hash: h(hash)}
	for _, t := range targets {
		r.Targets = append(r.Targets, h(t))
	}
	return r
}

func TestBuildEmptyBundleProducesFixedSizeFile(t *testing.T) {
	b := bundle.New(4)
	require.NoError(t, b.IngestNodeSeq(nodesource.Void(), bundle.IngestOptions{}))

	f, err := hdagfile.Build(b, hdagfile.BuildOptions{})
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, 0, f.NumNodes())
	require.Equal(t, 0, f.NumExtraEdges())
	for i := 0; i < 256; i++ {
		require.Equal(t, uint32(0), f.Fanout(byte(i)))
	}
}

func TestBuildSingletonFile(t *testing.T) {
	b := bundle.New(4)
	require.NoError(t, b.IngestNodeSeq(nodesource.FromSlice(4, []nodesource.Record{rec(1)}), bundle.IngestOptions{}))

	f, err := hdagfile.Build(b, hdagfile.BuildOptions{})
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, 1, f.NumNodes())
	for i := 0; i < 256; i++ {
		require.Equal(t, uint32(1), f.Fanout(byte(i)))
	}
	require.Equal(t, h(1), f.NodeHash(0))
	require.True(t, f.NodeTargets(0).IsAbsent())
	require.Equal(t, uint32(1), f.NodeGeneration(0))
	require.Equal(t, uint32(1), f.NodeComponent(0))
}

func TestBuildOpenRoundTrip(t *testing.T) {
	b := bundle.New(4)
	src := nodesource.FromSlice(4, []nodesource.Record{
		rec(0, 1, 2, 3),
		rec(1),
		rec(2),
		rec(3),
	})
	require.NoError(t, b.IngestNodeSeq(src, bundle.IngestOptions{}))

	dir := t.TempDir()
	tmpl := filepath.Join(dir, "bundle-XXXXXX.hdag")
	f, err := hdagfile.Build(b, hdagfile.BuildOptions{PathTemplate: tmpl})
	require.NoError(t, err)

	finalPath := filepath.Join(dir, "bundle.hdag")
	require.NoError(t, f.Sync())
	require.NoError(t, f.Rename(finalPath))
	require.NoError(t, f.Close())

	reopened, err := hdagfile.Open(finalPath)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, 4, reopened.NumNodes())
	require.Equal(t, 3, reopened.NumExtraEdges())

	idx0, found := bundleFind(reopened, h(0))
	require.True(t, found)
	require.True(t, reopened.NodeTargets(idx0).IsIndirect())
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.hdag")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	_, err := hdagfile.Open(path)
	require.Error(t, err)
}

func TestFileToBundleRoundTripsByteIdentical(t *testing.T) {
	b := bundle.New(4)
	src := nodesource.FromSlice(4, []nodesource.Record{rec(1, 2), rec(2)})
	require.NoError(t, b.IngestNodeSeq(src, bundle.IngestOptions{}))

	f, err := hdagfile.Build(b, hdagfile.BuildOptions{})
	require.NoError(t, err)
	defer f.Close()

	rebuilt := f.ToBundle()
	require.Equal(t, b.NumNodes(), rebuilt.NumNodes())
	for i := 0; i < b.NumNodes(); i++ {
		require.Equal(t, b.Hash(i), rebuilt.Hash(i))
		require.Equal(t, b.Targets(i), rebuilt.Targets(i))
	}

	f2, err := hdagfile.Build(rebuilt, hdagfile.BuildOptions{})
	require.NoError(t, err)
	defer f2.Close()
	require.Equal(t, f.NumNodes(), f2.NumNodes())
	require.Equal(t, f.NumExtraEdges(), f2.NumExtraEdges())
	require.Equal(t, f.HashLen(), f2.HashLen())
	require.Equal(t, f.FanoutTable(), f2.FanoutTable())
	for i := 0; i < f.NumNodes(); i++ {
		require.Equal(t, f.NodeComponent(i), f2.NodeComponent(i))
		require.Equal(t, f.NodeGeneration(i), f2.NodeGeneration(i))
		require.Equal(t, f.NodeTargets(i), f2.NodeTargets(i))
		require.Equal(t, f.NodeHash(i), f2.NodeHash(i))
	}
	for i := 0; i < f.NumExtraEdges(); i++ {
		require.Equal(t, f.ExtraEdge(i), f2.ExtraEdge(i))
	}
}

func bundleFind(f *hdagfile.File, hash []byte) (int, bool) {
	for i := 0; i < f.NumNodes(); i++ {
		if string(f.NodeHash(i)) == string(hash) {
			return i, true
		}
	}
	return 0, false
}
