package objectid_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/objectdirectory/objectid"
)

func TestNewIsNotNilAndUnique(t *testing.T) {
	requireT := require.New(t)

	a := objectid.New()
	b := objectid.New()

	requireT.False(a.IsNil())
	requireT.False(b.IsNil())
	requireT.NotEqual(a, b)
}

func TestBytesRoundTrip(t *testing.T) {
	requireT := require.New(t)

	id := objectid.New()
	decoded, err := objectid.FromBytes(id.Bytes())
	requireT.NoError(err)
	requireT.Equal(id, decoded)
}

func TestFromBytesRejectsWrongLength(t *testing.T) {
	requireT := require.New(t)

	_, err := objectid.FromBytes([]byte{1, 2, 3})
	requireT.Error(err)
}

func TestStringIsHex(t *testing.T) {
	requireT := require.New(t)

	id := objectid.New()
	requireT.Len(id.String(), objectid.Size*2)
}
