//go:build !linux

package allocator

import "github.com/pkg/errors"

// SharedAllocator is only implemented on Linux, where memfd_create gives us
// an anonymous, fd-backed mapping that a second process can reopen and mmap.
// On other platforms, use HeapAllocator (for in-process embedding) or supply
// your own Allocator backed by a platform-appropriate shm primitive (POSIX
// shm_open on Darwin/BSD, CreateFileMapping on Windows).
type SharedAllocator struct{}

// NewSharedAllocator always fails on non-Linux platforms.
func NewSharedAllocator(limit int64) (*SharedAllocator, error) {
	return nil, errors.New("allocator: SharedAllocator requires memfd_create and is only supported on linux")
}

// Memalign implements Allocator.
func (a *SharedAllocator) Memalign(alignment, size int64) (int64, bool) { return 0, false }

// Free implements Allocator.
func (a *SharedAllocator) Free(offset, size int64) {}

// FootprintLimit implements Allocator.
func (a *SharedAllocator) FootprintLimit() int64 { return 0 }

// Lookup implements Allocator.
func (a *SharedAllocator) Lookup(offset int64) (int, int64, int64) { return -1, 0, 0 }

// Bytes implements the same convenience accessor as the linux build.
func (a *SharedAllocator) Bytes(offset, size int64) []byte { return nil }

// Close implements the same lifecycle method as the linux build.
func (a *SharedAllocator) Close() error { return nil }
