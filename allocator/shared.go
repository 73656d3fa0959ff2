//go:build linux

package allocator

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// SharedAllocator allocates out of one real shared-memory mapping created
// with memfd_create + mmap, so the fd it hands back through Lookup can be
// passed to another process and mapped there. This is the allocator the
// directory uses outside of tests; it is the Go analogue of the teacher's
// pkg/filedev.FileDev — a real, syscall-backed device, paired here with
// HeapAllocator the way filedev is paired with memdev.
type SharedAllocator struct {
	mu    sync.Mutex
	fd    int
	data  []byte
	free  *freeList
	limit int64
}

var _ Allocator = (*SharedAllocator)(nil)

// NewSharedAllocator creates an anonymous shared-memory region of limit
// bytes (rounded up to the page size by the kernel) and an allocator that
// carves fixed allocations out of it.
func NewSharedAllocator(limit int64) (*SharedAllocator, error) {
	if limit <= 0 {
		return nil, errors.Errorf("allocator footprint must be positive, got %d", limit)
	}

	fd, err := unix.MemfdCreate("objectdirectory", 0)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := unix.Ftruncate(fd, limit); err != nil {
		_ = unix.Close(fd)
		return nil, errors.WithStack(err)
	}

	data, err := unix.Mmap(fd, 0, int(limit), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, errors.WithStack(err)
	}

	return &SharedAllocator{
		fd:    fd,
		data:  data,
		free:  newFreeList(limit),
		limit: limit,
	}, nil
}

// Memalign implements Allocator.
func (a *SharedAllocator) Memalign(alignment, size int64) (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.free.reserve(alignment, size)
}

// Free implements Allocator.
func (a *SharedAllocator) Free(offset, size int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.free.release(offset, size)
}

// FootprintLimit implements Allocator.
func (a *SharedAllocator) FootprintLimit() int64 {
	return a.limit
}

// Lookup implements Allocator.
func (a *SharedAllocator) Lookup(offset int64) (int, int64, int64) {
	return a.fd, a.limit, offset
}

// Bytes returns the slice of the backing mapping covering [offset, offset+size).
// It exists for the in-process convenience path (CreateAndSealObject) where
// the directory itself writes payload bytes rather than a remote client
// mmap-ing the fd.
func (a *SharedAllocator) Bytes(offset, size int64) []byte {
	return a.data[offset : offset+size]
}

// Close unmaps the region and closes the backing fd. Not part of the
// Allocator interface: it is a lifecycle concern of the concrete type, not
// something the directory itself ever needs to call mid-operation.
func (a *SharedAllocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := unix.Munmap(a.data); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(unix.Close(a.fd))
}
