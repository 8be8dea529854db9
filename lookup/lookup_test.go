package lookup_test

import (
	"os"
	"testing"

	"github.com/spbnick/hdag-sub001/bundle"
	"github.com/spbnick/hdag-sub001/hdagfile"
	"github.com/spbnick/hdag-sub001/lookup"
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

func buildScenario4(t *testing.T) *hdagfile.File {
	t.Helper()
	b := bundle.New(4)
	src := nodesource.FromSlice(4, []nodesource.Record{
		rec(0, 1, 2, 3),
		rec(1),
		rec(2),
		rec(3),
	})
	require.NoError(t, b.IngestNodeSeq(src, bundle.IngestOptions{}))
	f, err := hdagfile.Build(b, hdagfile.BuildOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestLookupFoundAndNotFound(t *testing.T) {
	f := buildScenario4(t)

	res, err := lookup.Find(f, h(2))
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, h(2), f.NodeHash(res.Index))

	res, err = lookup.Find(f, h(0x0F))
	require.NoError(t, err)
	require.False(t, res.Found)
}

func TestLookupZeroHashUsesLowerBoundZero(t *testing.T) {
	f := buildScenario4(t)
	res, err := lookup.Find(f, h(0))
	require.NoError(t, err)
	require.True(t, res.Found)
}

func TestEdgesEnumeratesIndirectRange(t *testing.T) {
	f := buildScenario4(t)
	res, err := lookup.Find(f, h(0))
	require.NoError(t, err)
	require.True(t, res.Found)

	edges, err := lookup.Edges(f, res.Index)
	require.NoError(t, err)
	require.Len(t, edges, 3)

	var hashes [][]byte
	for _, idx := range edges {
		hashes = append(hashes, f.NodeHash(int(idx)))
	}
	require.ElementsMatch(t, [][]byte{h(1), h(2), h(3)}, hashes)
}

func TestEdgesAbsentIsEmpty(t *testing.T) {
	f := buildScenario4(t)
	res, err := lookup.Find(f, h(1))
	require.NoError(t, err)
	edges, err := lookup.Edges(f, res.Index)
	require.NoError(t, err)
	require.Empty(t, edges)
}

func TestFindReaderAtMatchesFind(t *testing.T) {
	b := bundle.New(4)
	src := nodesource.FromSlice(4, []nodesource.Record{
		rec(0, 1, 2, 3),
		rec(1),
		rec(2),
		rec(3),
	})
	require.NoError(t, b.IngestNodeSeq(src, bundle.IngestOptions{}))

	dir := t.TempDir()
	tmpl := dir + "/bundle-XXXXXX.hdag"
	f, err := hdagfile.Build(b, hdagfile.BuildOptions{PathTemplate: tmpl})
	require.NoError(t, err)
	finalPath := dir + "/bundle.hdag"
	require.NoError(t, f.Sync())
	require.NoError(t, f.Rename(finalPath))
	require.NoError(t, f.Close())

	raw, err := os.Open(finalPath)
	require.NoError(t, err)
	defer raw.Close()

	reopened, err := hdagfile.Open(finalPath)
	require.NoError(t, err)
	defer reopened.Close()

	hv := lookup.NewHeaderView(reopened)
	res, err := lookup.FindReaderAt(raw, hv, h(2))
	require.NoError(t, err)
	require.True(t, res.Found)

	mmapRes, err := lookup.Find(reopened, h(2))
	require.NoError(t, err)
	require.Equal(t, mmapRes.Index, res.Index)

	res, err = lookup.FindReaderAt(raw, hv, h(0x0F))
	require.NoError(t, err)
	require.False(t, res.Found)
}
