package externalstore

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/outofforest/objectdirectory/objectid"
)

// checksumSize is the width of the xxhash-64 sidecar stored ahead of every
// blob's payload, matching the teacher's "checksum precedes data" layout
// (blocks.Pointer keeps its checksum separate from the block it addresses;
// here, since there is no separate pointer block, the checksum travels with
// the blob itself).
const checksumSize = 8

// FileStore persists one file per object under root, the externalstore
// analogue of the teacher's pkg/filedev: a real, os.File-backed device
// paired with MemStore the way filedev is paired with memdev. Each file is
// an 8-byte little-endian xxhash-64 checksum of the payload followed by the
// payload itself; Get verifies the checksum and returns an error — treated
// by the directory exactly like a missing object — on mismatch.
type FileStore struct {
	root string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore rooted at dir, creating it if necessary.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WithStack(err)
	}
	return &FileStore{root: dir}, nil
}

func (s *FileStore) path(id objectid.ID) string {
	return filepath.Join(s.root, id.String())
}

// Put implements Store.
func (s *FileStore) Put(ids []objectid.ID, buffers [][]byte) error {
	if len(ids) != len(buffers) {
		return errors.Errorf("mismatched put batch: %d ids, %d buffers", len(ids), len(buffers))
	}

	written := make([]string, 0, len(ids))
	for i, id := range ids {
		if err := s.putOne(id, buffers[i]); err != nil {
			for _, p := range written {
				_ = os.Remove(p)
			}
			return err
		}
		written = append(written, s.path(id))
	}
	return nil
}

func (s *FileStore) putOne(id objectid.ID, buf []byte) error {
	path := s.path(id)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	var header [checksumSize]byte
	binary.LittleEndian.PutUint64(header[:], xxhash.Sum64(buf))

	if _, err := f.Write(header[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := f.Write(buf); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(f.Sync())
}

// Get implements Store.
func (s *FileStore) Get(ids []objectid.ID, out [][]byte) error {
	if len(ids) != len(out) {
		return errors.Errorf("mismatched get batch: %d ids, %d buffers", len(ids), len(out))
	}

	for i, id := range ids {
		if err := s.getOne(id, out[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) getOne(id objectid.ID, out []byte) error {
	path := s.path(id)
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(raw) != checksumSize+len(out) {
		return errors.Errorf("object %s: stored size %d does not match expected size %d",
			id, len(raw)-checksumSize, len(out))
	}

	wantChecksum := binary.LittleEndian.Uint64(raw[:checksumSize])
	payload := raw[checksumSize:]
	if got := xxhash.Sum64(payload); got != wantChecksum {
		return errors.Errorf("object %s: checksum mismatch, computed %x, stored %x", id, got, wantChecksum)
	}

	copy(out, payload)
	return nil
}
