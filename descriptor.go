package objectdirectory

import (
	"github.com/outofforest/photon"

	"github.com/outofforest/objectdirectory/entry"
)

// Descriptor is handed to a client so it can map an object's shared-memory
// region and locate its data and metadata within it. Its layout is defined
// with photon so it is the literal byte layout crossing the process
// boundary, matching the teacher's use of photon for every on-the-wire
// block type.
type Descriptor struct {
	StoreFD        int64
	DataOffset     int64
	MetadataOffset int64
	DataSize       int64
	MetadataSize   int64
	DeviceNum      int64
	IPCHandle      [64]byte // populated only for device objects; unused on the host path
	MapSize        int64
	Initialized    bool
}

// NewDescriptor returns a fresh, zeroed Descriptor, backed by photon so its
// memory layout is fixed.
func NewDescriptor() photon.Union[*Descriptor] {
	return photon.NewFromValue(&Descriptor{})
}

// descriptorFor populates a Descriptor from e. e must have a live
// allocation (e.Pointer == true); it is a caller bug otherwise.
func descriptorFor(e *entry.Entry) Descriptor {
	if !e.Pointer {
		panic("objectdirectory: descriptorFor called on an entry with no allocation")
	}
	return Descriptor{
		StoreFD:        int64(e.FD),
		DataOffset:     e.Offset,
		MetadataOffset: e.Offset + e.DataSize,
		DataSize:       e.DataSize,
		MetadataSize:   e.MetadataSize,
		DeviceNum:      int64(e.DeviceNum),
		MapSize:        e.MapSize,
		Initialized:    true,
	}
}
