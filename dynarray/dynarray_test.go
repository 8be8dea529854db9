package dynarray_test

import (
	"cmp"
	"math/rand"
	"testing"

	"github.com/spbnick/hdag-sub001/dynarray"
	"github.com/stretchr/testify/require"
)

func TestAppendGrowsAndPreservesOrder(t *testing.T) {
	a := dynarray.New[int](2)
	for i := range 10 {
		idx := a.Append(i)
		require.Equal(t, i, idx)
	}
	require.Equal(t, 10, a.Len())
	for i := range 10 {
		require.Equal(t, i, a.At(i))
	}
}

func TestAppendZero(t *testing.T) {
	a := dynarray.New[int](0)
	a.Append(7)
	start := a.AppendZero(3)
	require.Equal(t, 1, start)
	require.Equal(t, 4, a.Len())
	require.Equal(t, []int{7, 0, 0, 0}, a.All())
}

func TestRemoveRange(t *testing.T) {
	a := dynarray.New[int](0)
	for _, v := range []int{0, 1, 2, 3, 4, 5} {
		a.Append(v)
	}
	a.RemoveRange(1, 3)
	require.Equal(t, []int{0, 3, 4, 5}, a.All())
}

func TestClearKeepsAllocationCleanupFrees(t *testing.T) {
	a := dynarray.New[int](16)
	a.Append(1)
	a.Clear()
	require.Equal(t, 0, a.Len())
	require.GreaterOrEqual(t, a.Cap(), 16)
	a.Cleanup()
	require.Equal(t, 0, a.Cap())
}

func TestDeflateShrinksToOccupancy(t *testing.T) {
	a := dynarray.New[int](64)
	a.Append(1)
	a.Append(2)
	a.Deflate()
	require.Equal(t, 2, a.Cap())
}

func TestSortAndBinarySearch(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	a := dynarray.New[int](0)
	for range 500 {
		a.Append(r.Intn(1000))
	}
	dynarray.Sort(a, func(x, y *int) int { return cmp.Compare(*x, *y) })
	all := a.All()
	for i := 1; i < len(all); i++ {
		require.LessOrEqual(t, all[i-1], all[i])
	}
	for _, v := range []int{all[0], all[len(all)/2], all[len(all)-1]} {
		idx, found := dynarray.BinarySearch(a, func(x *int) int { return cmp.Compare(v, *x) })
		require.True(t, found)
		require.Equal(t, v, all[idx])
	}
	_, found := dynarray.BinarySearch(a, func(x *int) int { return cmp.Compare(-1, *x) })
	require.False(t, found)
}

func TestBinarySearchInsertionIndex(t *testing.T) {
	a := dynarray.New[int](0)
	for _, v := range []int{10, 20, 30, 40} {
		a.Append(v)
	}
	idx, found := dynarray.BinarySearch(a, func(x *int) int { return cmp.Compare(25, *x) })
	require.False(t, found)
	require.Equal(t, 2, idx)
}

func TestFromSlice(t *testing.T) {
	a := dynarray.FromSlice([]int{1, 2, 3})
	require.Equal(t, 3, a.Len())
	a.Append(4)
	require.Equal(t, []int{1, 2, 3, 4}, a.All())
}
