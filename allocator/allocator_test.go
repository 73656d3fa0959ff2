package allocator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/objectdirectory/allocator"
)

func TestHeapAllocatorMemalignAndFree(t *testing.T) {
	requireT := require.New(t)

	a, err := allocator.NewHeapAllocator(1024)
	requireT.NoError(err)
	requireT.EqualValues(1024, a.FootprintLimit())

	off1, ok := a.Memalign(allocator.BlockSize, 100)
	requireT.True(ok)
	requireT.EqualValues(0, off1)

	off2, ok := a.Memalign(allocator.BlockSize, 200)
	requireT.True(ok)
	requireT.Greater(off2, off1)

	fd, mapSize, mapOffset := a.Lookup(off2)
	requireT.EqualValues(1024, mapSize)
	requireT.Equal(off2, mapOffset)
	requireT.Equal(-1, fd)

	a.Free(off1, 100)
	off3, ok := a.Memalign(allocator.BlockSize, 50)
	requireT.True(ok)
	requireT.EqualValues(0, off3)
}

func TestHeapAllocatorOutOfMemory(t *testing.T) {
	requireT := require.New(t)

	a, err := allocator.NewHeapAllocator(128)
	requireT.NoError(err)

	_, ok := a.Memalign(allocator.BlockSize, 64)
	requireT.True(ok)

	_, ok = a.Memalign(allocator.BlockSize, 128)
	requireT.False(ok)
}

func TestHeapAllocatorRejectsNonPositiveLimit(t *testing.T) {
	requireT := require.New(t)

	_, err := allocator.NewHeapAllocator(0)
	requireT.Error(err)
}

func TestHeapAllocatorBytesMatchesReservation(t *testing.T) {
	requireT := require.New(t)

	a, err := allocator.NewHeapAllocator(1024)
	requireT.NoError(err)

	off, ok := a.Memalign(allocator.BlockSize, 16)
	requireT.True(ok)

	buf := a.Bytes(off, 16)
	requireT.Len(buf, 16)
	copy(buf, []byte("0123456789abcdef"))
	requireT.Equal([]byte("0123456789abcdef"), a.Bytes(off, 16))
}
