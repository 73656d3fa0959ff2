// Package externalstore defines the optional collaborator evicted objects
// are spilled to and reconstructed from, plus a filesystem-backed and an
// in-memory implementation.
package externalstore

import "github.com/outofforest/objectdirectory/objectid"

// Store persists and retrieves object payloads by ID. A directory without a
// configured Store frees evicted objects outright instead of spilling them;
// Store is therefore always used through a nil-checked field, never a
// required dependency.
type Store interface {
	// Put durably persists buffers[i] under ids[i] for every i. A failure
	// aborts the whole batch — the directory treats a Put failure as fatal
	// (see DESIGN.md's decided Open Question on this).
	Put(ids []objectid.ID, buffers [][]byte) error

	// Get fills out[i] with the persisted blob for ids[i] for every i, or
	// returns an error that rolls back the whole batch. A checksum
	// mismatch, where the implementation keeps one, must be surfaced as an
	// error exactly like a missing blob.
	Get(ids []objectid.ID, out [][]byte) error
}
