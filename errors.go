package objectdirectory

import "github.com/pkg/errors"

// Sentinel errors returned by the directory's public operations. Callers
// distinguish them with errors.Is.
var (
	// ErrObjectExists is returned by CreateObject when id is already present
	// in the table.
	ErrObjectExists = errors.New("objectdirectory: object already exists")

	// ErrObjectNonexistent is returned by DeleteObject when id is not in the
	// table.
	ErrObjectNonexistent = errors.New("objectdirectory: object does not exist")

	// ErrObjectNotSealed is returned by DeleteObject when id exists but has
	// not yet been sealed; the delete is deferred via the deletion cache.
	ErrObjectNotSealed = errors.New("objectdirectory: object is not sealed")

	// ErrObjectInUse is returned by DeleteObject when id is sealed but still
	// referenced by at least one client; the delete is deferred via the
	// deletion cache.
	ErrObjectInUse = errors.New("objectdirectory: object is in use")

	// ErrObjectStoreFull is returned when the host allocator cannot satisfy
	// a request and evictIfFull was false, so no eviction was attempted.
	// With evictIfFull set, an allocation that still fails ends in
	// ErrOutOfMemory instead.
	ErrObjectStoreFull = errors.New("objectdirectory: object store is full")

	// ErrOutOfMemory is returned when even evicting every eligible idle
	// object would not free enough space to satisfy the request.
	ErrOutOfMemory = errors.New("objectdirectory: out of memory")

	// ErrDeviceUnsupported is returned for any device_num != 0; this
	// implementation elides the accelerator allocation path (see
	// DESIGN.md).
	ErrDeviceUnsupported = errors.New("objectdirectory: device objects are not supported")
)
