package nodesource_test

import (
	"io"
	"testing"

	"github.com/spbnick/hdag-sub001/nodesource"
	"github.com/stretchr/testify/require"
)

func TestVoidSource(t *testing.T) {
	v := nodesource.Void()
	require.Equal(t, 0, v.HashLen())
	_, _, err := v.NextNode()
	require.ErrorIs(t, err, io.EOF)
}

func TestSliceSourceReplaysRecords(t *testing.T) {
	src := nodesource.FromSlice(4, []nodesource.Record{
		{Hash: []byte{0, 0, 0, 1}, Targets: [][]byte{{0, 0, 0, 2}}},
		{Hash: []byte{0, 0, 0, 2}, Targets: nil},
	})
	require.Equal(t, 4, src.HashLen())

	hash, targets, err := src.NextNode()
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 1}, hash)
	th, err := targets.NextTargetHash()
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 2}, th)
	_, err = targets.NextTargetHash()
	require.ErrorIs(t, err, io.EOF)

	hash, targets, err = src.NextNode()
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 2}, hash)
	_, err = targets.NextTargetHash()
	require.ErrorIs(t, err, io.EOF)

	_, _, err = src.NextNode()
	require.ErrorIs(t, err, io.EOF)
}

func TestMultiConcatenatesSources(t *testing.T) {
	a := nodesource.FromSlice(4, []nodesource.Record{{Hash: []byte{0, 0, 0, 1}}})
	b := nodesource.FromSlice(4, []nodesource.Record{{Hash: []byte{0, 0, 0, 2}}})
	m := nodesource.NewMulti(a, b)

	var got [][]byte
	for {
		hash, _, err := m.NextNode()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, hash)
	}
	require.Equal(t, [][]byte{{0, 0, 0, 1}, {0, 0, 0, 2}}, got)
}

func TestMultiPanicsOnHashLenMismatch(t *testing.T) {
	a := nodesource.FromSlice(4, nil)
	b := nodesource.FromSlice(8, nil)
	require.Panics(t, func() { nodesource.NewMulti(a, b) })
}
