package eviction_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/objectdirectory/client"
	"github.com/outofforest/objectdirectory/eviction"
	"github.com/outofforest/objectdirectory/objectid"
)

func TestLRUOrderIsEvictionOrder(t *testing.T) {
	requireT := require.New(t)

	p := eviction.New(nil)
	c := client.NewID()

	id1, id2, id3 := objectid.New(), objectid.New(), objectid.New()
	p.ObjectCreated(id1, 128, c, true)
	p.ObjectCreated(id2, 128, c, true)
	p.ObjectCreated(id3, 128, c, true)

	// id1 becomes idle first, then id2, then id3: LRU order is 1,2,3.
	p.EndObjectAccess(id1, 128)
	p.EndObjectAccess(id2, 128)
	p.EndObjectAccess(id3, 128)

	evicted, ok := p.RequireSpace(128)
	requireT.True(ok)
	requireT.Equal([]objectid.ID{id1}, evicted)

	evicted, ok = p.RequireSpace(256)
	requireT.True(ok)
	requireT.Equal([]objectid.ID{id2, id3}, evicted)
}

func TestRequireSpaceFailsWhenIdleSetTooSmall(t *testing.T) {
	requireT := require.New(t)

	p := eviction.New(nil)
	c := client.NewID()

	id := objectid.New()
	p.ObjectCreated(id, 64, c, true)
	p.EndObjectAccess(id, 64)

	evicted, ok := p.RequireSpace(128)
	requireT.False(ok)
	// Even on failure, everything idle is handed back for eviction.
	requireT.Equal([]objectid.ID{id}, evicted)
}

func TestBeginObjectAccessRemovesFromIdle(t *testing.T) {
	requireT := require.New(t)

	p := eviction.New(nil)
	c := client.NewID()

	id := objectid.New()
	p.ObjectCreated(id, 64, c, true)
	p.EndObjectAccess(id, 64)
	p.BeginObjectAccess(id, 64)

	evicted, ok := p.RequireSpace(64)
	requireT.False(ok)
	requireT.Empty(evicted)
}

func TestEnforcePerClientQuotaPrefersOwnIdleObjects(t *testing.T) {
	requireT := require.New(t)

	p := eviction.New(nil)
	owner := client.NewID()
	other := client.NewID()

	ownID := objectid.New()
	otherID := objectid.New()

	p.ObjectCreated(otherID, 64, other, true)
	p.EndObjectAccess(otherID, 64)

	p.ObjectCreated(ownID, 64, owner, true)
	p.EndObjectAccess(ownID, 64)

	// Even though otherID became idle first (and would win a plain LRU
	// pick), quota enforcement for owner should prefer owner's own object.
	evicted, ok := p.EnforcePerClientQuota(owner, 64, true)
	requireT.True(ok)
	requireT.Equal([]objectid.ID{ownID}, evicted)
}

func TestEnforcePerClientQuotaFallsBackToGlobalIdle(t *testing.T) {
	requireT := require.New(t)

	p := eviction.New(nil)
	owner := client.NewID()
	other := client.NewID()

	otherID := objectid.New()
	p.ObjectCreated(otherID, 64, other, true)
	p.EndObjectAccess(otherID, 64)

	evicted, ok := p.EnforcePerClientQuota(owner, 64, true)
	requireT.True(ok)
	requireT.Equal([]objectid.ID{otherID}, evicted)
}

func TestRemoveObjectDropsAllBookkeeping(t *testing.T) {
	requireT := require.New(t)

	p := eviction.New(nil)
	c := client.NewID()
	id := objectid.New()

	p.ObjectCreated(id, 64, c, true)
	p.EndObjectAccess(id, 64)
	p.RemoveObject(id)

	requireT.Zero(p.IdleBytes())
	evicted, ok := p.RequireSpace(1)
	requireT.False(ok)
	requireT.Empty(evicted)
}

func TestChooseObjectsToEvictNeverFails(t *testing.T) {
	requireT := require.New(t)

	p := eviction.New(nil)
	c := client.NewID()
	id := objectid.New()
	p.ObjectCreated(id, 64, c, true)
	p.EndObjectAccess(id, 64)

	evicted, bytes := p.ChooseObjectsToEvict(1_000_000)
	requireT.Equal([]objectid.ID{id}, evicted)
	requireT.EqualValues(64, bytes)
}

func TestClientDisconnectedForgetsOwnershipOnly(t *testing.T) {
	requireT := require.New(t)

	p := eviction.New(nil)
	c := client.NewID()
	id := objectid.New()
	p.ObjectCreated(id, 64, c, true)
	p.EndObjectAccess(id, 64)

	p.ClientDisconnected(c)

	// The object is still idle and evictable; only the quota ownership is gone.
	requireT.EqualValues(64, p.IdleBytes())

	evicted, ok := p.EnforcePerClientQuota(c, 64, true)
	requireT.True(ok)
	requireT.Equal([]objectid.ID{id}, evicted)
}
