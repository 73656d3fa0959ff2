package allocator

import (
	"sync"

	"github.com/pkg/errors"
)

// heapFD is the sentinel file descriptor HeapAllocator reports through
// Lookup. There is no real fd behind it — it exists only so a caller can
// distinguish "no backing fd" (heapFD) from a real one, the same way
// pkg/memdev stands in for pkg/filedev in tests without needing a real file.
const heapFD = -1

// HeapAllocator is a process-local Allocator backed by ordinary Go heap
// memory. It is useful for tests and for embedding the directory in a
// process that never needs a second process to mmap the region — the
// teacher-adjacent analogue of pkg/memdev next to pkg/filedev.
type HeapAllocator struct {
	mu    sync.Mutex
	data  []byte
	free  *freeList
	limit int64
}

var _ Allocator = (*HeapAllocator)(nil)

// NewHeapAllocator returns a HeapAllocator with the given footprint.
func NewHeapAllocator(limit int64) (*HeapAllocator, error) {
	if limit <= 0 {
		return nil, errors.Errorf("allocator footprint must be positive, got %d", limit)
	}

	return &HeapAllocator{
		data:  make([]byte, limit),
		free:  newFreeList(limit),
		limit: limit,
	}, nil
}

// Memalign implements Allocator.
func (a *HeapAllocator) Memalign(alignment, size int64) (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.free.reserve(alignment, size)
}

// Free implements Allocator.
func (a *HeapAllocator) Free(offset, size int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.free.release(offset, size)
}

// FootprintLimit implements Allocator.
func (a *HeapAllocator) FootprintLimit() int64 {
	return a.limit
}

// Lookup implements Allocator.
func (a *HeapAllocator) Lookup(offset int64) (int, int64, int64) {
	return heapFD, a.limit, offset
}

// Bytes returns the slice of the backing buffer covering [offset, offset+size).
func (a *HeapAllocator) Bytes(offset, size int64) []byte {
	return a.data[offset : offset+size]
}
