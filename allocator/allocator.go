// Package allocator provides the aligned-allocate/free contract the object
// directory uses to reserve space in a shared-memory region, plus a real
// implementation backed by an anonymous shared-memory mapping and an
// in-memory stand-in for tests.
package allocator

import "github.com/pkg/errors"

// BlockSize is the alignment (and allocation granularity) used for host
// buffers, matching the teacher's 64-byte block-alignment convention for
// memory handed to clients that may hash it.
const BlockSize = 64

// ErrOutOfMemory names the condition in which the footprint has no
// contiguous free run large enough to satisfy a request. Memalign itself
// does not return it (it reports the condition with ok == false), and no
// code in this package returns it. It is deliberately not wrapped with a
// stack trace: running out of allocator space is an ordinary, expected
// condition, not a bug.
var ErrOutOfMemory = errors.New("allocator: out of memory")

// Allocator is the single source of truth for host memory admission. An
// ok == false return from Memalign means "no space", never an error
// return — mirroring the teacher's pattern of returning `ok bool` from
// allocation paths rather than an error type. Offset 0 is a valid
// reservation, not a failure marker.
type Allocator interface {
	// Memalign reserves size bytes aligned to alignment and returns the
	// byte offset of the reservation within the backing region, and
	// whether the reservation succeeded.
	Memalign(alignment, size int64) (offset int64, ok bool)

	// Free releases a reservation previously returned by Memalign.
	Free(offset, size int64)

	// FootprintLimit returns the total number of bytes the allocator can
	// ever hand out.
	FootprintLimit() int64

	// Lookup maps an offset previously returned by Memalign to the
	// (fd, mapSize, offset) triple a client needs to mmap the region.
	Lookup(offset int64) (fd int, mapSize int64, mapOffset int64)
}

func alignUp(size, alignment int64) int64 {
	if alignment <= 0 {
		return size
	}
	rem := size % alignment
	if rem == 0 {
		return size
	}
	return size + (alignment - rem)
}
