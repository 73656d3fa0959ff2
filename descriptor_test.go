package objectdirectory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	objectdirectory "github.com/outofforest/objectdirectory"
)

func TestNewDescriptorExposesValueAndBytes(t *testing.T) {
	requireT := require.New(t)

	d := objectdirectory.NewDescriptor()
	d.V.StoreFD = 7
	d.V.DataOffset = 64
	d.V.MetadataOffset = 128
	d.V.DataSize = 64
	d.V.MetadataSize = 16
	d.V.Initialized = true

	requireT.NotEmpty(d.B)
	requireT.EqualValues(7, d.V.StoreFD)
	requireT.True(d.V.Initialized)
}
