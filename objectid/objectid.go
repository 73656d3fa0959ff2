// Package objectid defines the fixed-width identifier objects are addressed by.
package objectid

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Size is the fixed byte width of an ObjectID.
const Size = 20

// ID is an opaque fixed-width object identifier.
type ID [Size]byte

// Nil is the zero-value ID. It is a valid key but never produced by New.
var Nil ID

// New returns a randomly generated ID. The first 16 bytes come from a
// version-4 UUID; the remaining 4 bytes are zero-padded, matching the layout
// real clients may instead populate with a task/worker discriminator.
func New() ID {
	var id ID
	u := uuid.New()
	copy(id[:], u[:])
	return id
}

// FromBytes decodes an ID from its binary representation.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, errors.Errorf("invalid object id length: expected %d bytes, got %d", Size, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Bytes returns the binary representation of the ID.
func (id ID) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, id[:])
	return b
}

// String returns the hex encoding of the ID.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id == Nil
}
