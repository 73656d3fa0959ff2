package externalstore_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/objectdirectory/externalstore"
	"github.com/outofforest/objectdirectory/objectid"
)

func testStores(t *testing.T) map[string]externalstore.Store {
	dir, err := os.MkdirTemp("", "externalstore-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	fileStore, err := externalstore.NewFileStore(dir)
	require.NoError(t, err)

	return map[string]externalstore.Store{
		"mem":  externalstore.NewMemStore(),
		"file": fileStore,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			requireT := require.New(t)

			id1, id2 := objectid.New(), objectid.New()
			data1, data2 := []byte("hello world"), []byte("second blob")

			requireT.NoError(store.Put([]objectid.ID{id1, id2}, [][]byte{data1, data2}))

			out := [][]byte{make([]byte, len(data1)), make([]byte, len(data2))}
			requireT.NoError(store.Get([]objectid.ID{id1, id2}, out))
			requireT.Equal(data1, out[0])
			requireT.Equal(data2, out[1])
		})
	}
}

func TestGetMissingObjectFails(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			out := [][]byte{make([]byte, 4)}
			require.Error(t, store.Get([]objectid.ID{objectid.New()}, out))
		})
	}
}

func TestGetWrongSizeBufferFails(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			requireT := require.New(t)

			id := objectid.New()
			requireT.NoError(store.Put([]objectid.ID{id}, [][]byte{[]byte("0123456789")}))

			out := [][]byte{make([]byte, 3)}
			requireT.Error(store.Get([]objectid.ID{id}, out))
		})
	}
}

func TestFileStoreDetectsCorruption(t *testing.T) {
	requireT := require.New(t)

	dir, err := os.MkdirTemp("", "externalstore-corrupt-*")
	requireT.NoError(err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	store, err := externalstore.NewFileStore(dir)
	requireT.NoError(err)

	id := objectid.New()
	requireT.NoError(store.Put([]objectid.ID{id}, [][]byte{[]byte("original payload")}))

	path := dir + "/" + id.String()
	raw, err := os.ReadFile(path)
	requireT.NoError(err)
	raw[len(raw)-1] ^= 0xFF
	requireT.NoError(os.WriteFile(path, raw, 0o644))

	out := [][]byte{make([]byte, len("original payload"))}
	requireT.Error(store.Get([]objectid.ID{id}, out))
}
