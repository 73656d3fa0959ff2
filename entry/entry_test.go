package entry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/objectdirectory/allocator"
	"github.com/outofforest/objectdirectory/entry"
	"github.com/outofforest/objectdirectory/objectid"
)

func newHeap(t *testing.T, limit int64) *allocator.HeapAllocator {
	a, err := allocator.NewHeapAllocator(limit)
	require.NoError(t, err)
	return a
}

func TestAllocateMemorySucceeds(t *testing.T) {
	requireT := require.New(t)

	a := newHeap(t, 1024)
	e := entry.New(objectid.New(), a)
	requireT.Equal(entry.Evicted, e.State)

	requireT.NoError(e.AllocateMemory(0, 100))
	requireT.Equal(entry.Created, e.State)
	requireT.True(e.Pointer)
	requireT.False(e.CreateTime.IsZero())
	requireT.Less(int64(e.ConstructDuration), int64(0))
}

func TestAllocateMemoryOutOfSpaceLeavesEntryReset(t *testing.T) {
	requireT := require.New(t)

	a := newHeap(t, 64)
	e := entry.New(objectid.New(), a)

	err := e.AllocateMemory(0, 128)
	requireT.ErrorIs(err, entry.ErrObjectStoreFull)
	requireT.False(e.Pointer)
	requireT.Equal(entry.Evicted, e.State)
}

func TestAllocateMemoryRejectsDevice(t *testing.T) {
	requireT := require.New(t)

	a := newHeap(t, 1024)
	e := entry.New(objectid.New(), a)

	err := e.AllocateMemory(1, 100)
	requireT.ErrorIs(err, entry.ErrDeviceUnsupported)
	requireT.False(e.Pointer)
}

func TestFreeObjectReturnsMemoryAndTransitionsToEvicted(t *testing.T) {
	requireT := require.New(t)

	a := newHeap(t, 1024)
	e := entry.New(objectid.New(), a)
	requireT.NoError(e.AllocateMemory(0, 100))

	e.FreeObject()
	requireT.Equal(entry.Evicted, e.State)
	requireT.False(e.Pointer)

	// The freed space should be reusable.
	e2 := entry.New(objectid.New(), a)
	requireT.NoError(e2.AllocateMemory(0, 1024))
}

func TestFreeObjectOnUnallocatedEntryPanics(t *testing.T) {
	a := newHeap(t, 1024)
	e := entry.New(objectid.New(), a)

	require.Panics(t, func() {
		e.FreeObject()
	})
}

func TestObjectSize(t *testing.T) {
	requireT := require.New(t)

	a := newHeap(t, 1024)
	e := entry.New(objectid.New(), a)
	e.DataSize = 100
	e.MetadataSize = 20
	requireT.EqualValues(120, e.ObjectSize())
}
