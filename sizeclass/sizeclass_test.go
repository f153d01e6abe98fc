package sizeclass_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/cloudfly/tcpool/sizeclass"
)

func TestRoundUp(t *testing.T) {
	cases := map[int]int{
		0:  0,
		1:  8,
		7:  8,
		8:  8,
		9:  16,
		24: 24,
		25: 32,
	}
	for in, want := range cases {
		require.Equal(t, want, sizeclass.RoundUp(in), "RoundUp(%d)", in)
	}
}

func TestClassOf(t *testing.T) {
	require.Equal(t, 0, sizeclass.ClassOf(0))
	require.Equal(t, 0, sizeclass.ClassOf(1))
	require.Equal(t, 0, sizeclass.ClassOf(8))
	require.Equal(t, 1, sizeclass.ClassOf(9))
	require.Equal(t, 1, sizeclass.ClassOf(16))
	require.Equal(t, 2, sizeclass.ClassOf(17))
	require.Equal(t, sizeclass.NumClasses-1, sizeclass.ClassOf(sizeclass.MaxSmall))
}

func TestSizeOfRoundTrip(t *testing.T) {
	for n := 1; n <= 4096; n++ {
		k := sizeclass.ClassOf(n)
		s := sizeclass.SizeOf(k)
		require.GreaterOrEqual(t, s, n)
		require.Equal(t, 0, s%sizeclass.Alignment)
	}
}

func TestNextPointerRoundTrip(t *testing.T) {
	block := make([]byte, sizeclass.SizeOf(2))
	addr := unsafe.Pointer(&block[0])

	require.Nil(t, sizeclass.NextOf(addr))

	other := make([]byte, sizeclass.SizeOf(2))
	otherAddr := unsafe.Pointer(&other[0])

	sizeclass.SetNext(addr, otherAddr)
	require.Equal(t, otherAddr, sizeclass.NextOf(addr))

	sizeclass.SetNext(addr, nil)
	require.Nil(t, sizeclass.NextOf(addr))
}

func TestChainLen(t *testing.T) {
	const n = 5
	blocks := make([][]byte, n)
	for i := range blocks {
		blocks[i] = make([]byte, sizeclass.SizeOf(0))
	}
	for i := 0; i < n-1; i++ {
		sizeclass.SetNext(unsafe.Pointer(&blocks[i][0]), unsafe.Pointer(&blocks[i+1][0]))
	}
	require.Equal(t, n, sizeclass.ChainLen(unsafe.Pointer(&blocks[0][0])))
	require.Equal(t, 0, sizeclass.ChainLen(nil))
}

func TestPagesFor(t *testing.T) {
	require.Equal(t, 1, sizeclass.PagesFor(1))
	require.Equal(t, 1, sizeclass.PagesFor(sizeclass.PageSize))
	require.Equal(t, 2, sizeclass.PagesFor(sizeclass.PageSize+1))
}
