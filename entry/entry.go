// Package entry defines the per-object record the directory keeps in its
// object table, and the state machine (Created -> Sealed -> Evicted) that
// governs it.
package entry

import (
	"time"

	"github.com/pkg/errors"

	"github.com/outofforest/objectdirectory/allocator"
	"github.com/outofforest/objectdirectory/objectid"
)

// State is the lifecycle state of an object entry. There is no explicit
// Aborted state: an aborted entry is simply removed from the directory's
// table.
type State byte

// States an entry may be in.
const (
	// Created means the object's buffer has been allocated and is being
	// written by its creator; it is not yet visible to other clients.
	Created State = iota
	// Sealed means the object is immutable and visible to any client that
	// looks it up.
	Sealed
	// Evicted means the object's payload has been freed (and, if an
	// external store is configured, spilled there); the entry survives so
	// it can be reconstructed on demand.
	Evicted
)

// String renders the state for logging.
func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Sealed:
		return "sealed"
	case Evicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// ErrObjectStoreFull is returned by AllocateMemory when the allocator has no
// room, host-side, for the requested size.
var ErrObjectStoreFull = errors.New("entry: object store is full")

// ErrDeviceUnsupported is returned by AllocateMemory for any device_num != 0:
// this implementation elides the accelerator allocation path entirely and
// rejects it cleanly rather than half-implementing it (see DESIGN.md).
var ErrDeviceUnsupported = errors.New("entry: device objects are not supported")

// Entry is the directory's per-object record.
type Entry struct {
	ID                 objectid.ID
	State              State
	DataSize           int64
	MetadataSize       int64
	Offset             int64 // offset within the allocator's region; meaningless when Pointer is false
	Pointer            bool  // false iff State == Evicted or the entry was never allocated
	DeviceNum          int
	FD                 int
	MapSize            int64
	RefCount           int
	CreateTime         time.Time
	ConstructDuration  time.Duration // -1 (encoded as < 0) until sealed or reconstructed

	alloc     allocator.Allocator
	allocSize int64 // bytes reserved by the last successful AllocateMemory
}

// constructDurationUnset is the sentinel stored in ConstructDuration before
// an object has been sealed or reconstructed.
const constructDurationUnset = time.Duration(-1)

// New returns a fresh, unallocated entry for id, backed by alloc for the
// host allocation path.
func New(id objectid.ID, alloc allocator.Allocator) *Entry {
	return &Entry{
		ID:                id,
		State:             Evicted, // no memory yet; Evicted is the "nothing allocated" resting state
		ConstructDuration: constructDurationUnset,
		alloc:             alloc,
	}
}

// ObjectSize returns the total byte size of the object's payload.
func (e *Entry) ObjectSize() int64 {
	return e.DataSize + e.MetadataSize
}

// AllocateMemory reserves space for the object's payload. On device == 0 it
// asks the host allocator for size bytes aligned to allocator.BlockSize; on
// success it populates Offset/FD/MapSize, sets State to Created, and stamps
// CreateTime. On failure the entry is left reset (no partial allocation).
//
// device != 0 is rejected immediately with ErrDeviceUnsupported.
func (e *Entry) AllocateMemory(device int, size int64) error {
	if device != 0 {
		return ErrDeviceUnsupported
	}

	offset, ok := e.alloc.Memalign(allocator.BlockSize, size)
	if !ok {
		e.reset()
		return ErrObjectStoreFull
	}

	fd, mapSize, mapOffset := e.alloc.Lookup(offset)
	e.Offset = mapOffset
	e.allocSize = size
	e.Pointer = true
	e.FD = fd
	e.MapSize = mapSize
	e.State = Created
	e.DeviceNum = device
	e.CreateTime = now()
	e.ConstructDuration = constructDurationUnset
	return nil
}

// FreeObject returns the entry's payload to the allocator and transitions
// it to Evicted. It is a caller bug (hard-checked) to call FreeObject on an
// entry that has no allocation.
func (e *Entry) FreeObject() {
	if !e.Pointer {
		panic("entry: FreeObject called on an entry with no allocation")
	}

	if e.DeviceNum == 0 {
		e.alloc.Free(e.Offset, e.allocSize)
	}
	e.reset()
	e.State = Evicted
}

func (e *Entry) reset() {
	e.Offset = 0
	e.allocSize = 0
	e.Pointer = false
	e.FD = 0
	e.MapSize = 0
}

// now is a function variable so tests can observe CreateTime/ConstructDuration
// deterministically without faking the system clock globally.
var now = time.Now
