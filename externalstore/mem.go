package externalstore

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/outofforest/objectdirectory/objectid"
)

// MemStore is an in-memory Store, the spill-target analogue of the
// teacher's pkg/memdev: a stand-in for a real backing store, used in tests
// and for embedding the directory without real durability.
type MemStore struct {
	mu    sync.Mutex
	blobs map[objectid.ID][]byte
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[objectid.ID][]byte)}
}

// Put implements Store.
func (s *MemStore) Put(ids []objectid.ID, buffers [][]byte) error {
	if len(ids) != len(buffers) {
		return errors.Errorf("mismatched put batch: %d ids, %d buffers", len(ids), len(buffers))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range ids {
		cp := make([]byte, len(buffers[i]))
		copy(cp, buffers[i])
		s.blobs[id] = cp
	}
	return nil
}

// Get implements Store.
func (s *MemStore) Get(ids []objectid.ID, out [][]byte) error {
	if len(ids) != len(out) {
		return errors.Errorf("mismatched get batch: %d ids, %d buffers", len(ids), len(out))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range ids {
		blob, ok := s.blobs[id]
		if !ok {
			return errors.Errorf("object %s not found in external store", id)
		}
		if len(out[i]) != len(blob) {
			return errors.Errorf("object %s: output buffer size %d does not match stored size %d",
				id, len(out[i]), len(blob))
		}
		copy(out[i], blob)
	}
	return nil
}
