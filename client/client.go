// Package client models the directory's view of a connected client: an
// opaque identity plus the set of objects it currently references. The
// directory is the only thing that mutates a Record's object set; Record
// itself has no synchronization of its own because it is only ever touched
// while the directory's lock is held.
package client

import (
	"github.com/google/uuid"

	"github.com/outofforest/objectdirectory/objectid"
)

// ID identifies a connected client.
type ID uuid.UUID

// NewID returns a fresh, random client identity.
func NewID() ID {
	return ID(uuid.New())
}

// String returns the canonical string form of the ID.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Record tracks the objects a single client currently references.
type Record struct {
	ID        ID
	ObjectIDs map[objectid.ID]struct{}
}

// NewRecord returns an empty Record for the given client ID.
func NewRecord(id ID) *Record {
	return &Record{
		ID:        id,
		ObjectIDs: make(map[objectid.ID]struct{}),
	}
}

// Has reports whether the client currently references the object.
func (r *Record) Has(id objectid.ID) bool {
	_, ok := r.ObjectIDs[id]
	return ok
}

// Add records that the client references the object. Returns false if the
// client already referenced it.
func (r *Record) Add(id objectid.ID) bool {
	if r.Has(id) {
		return false
	}
	r.ObjectIDs[id] = struct{}{}
	return true
}

// Remove drops the object from the client's reference set. Returns false if
// the client did not reference it.
func (r *Record) Remove(id objectid.ID) bool {
	if !r.Has(id) {
		return false
	}
	delete(r.ObjectIDs, id)
	return true
}
