// Package eviction implements the LRU-based admission policy the directory
// consults whenever it needs to free space: which idle objects to evict, in
// what order, and how per-client quota preferences shift that order.
package eviction

import (
	"container/list"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/outofforest/objectdirectory/client"
	"github.com/outofforest/objectdirectory/objectid"
)

type idleObj struct {
	id   objectid.ID
	size int64
}

// Policy tracks, for every object the directory has told it about, whether
// the object is currently in use (referenced by at least one client, or
// freshly created and not yet released) or idle (a candidate for eviction).
// Idle objects form a single LRU list: BeginObjectAccess/EndObjectAccess
// move an object out of and back into that list, and the list's order is
// the eviction order.
//
// Policy is not safe for concurrent use; the directory only ever calls it
// while holding its own lock, matching §5 of the spec.
type Policy struct {
	log *logrus.Logger

	idle      *list.List // front = least recently used
	idleIndex map[objectid.ID]*list.Element
	inUse     map[objectid.ID]int64
	owner     map[objectid.ID]client.ID
}

// New returns an empty Policy.
func New(log *logrus.Logger) *Policy {
	if log == nil {
		log = silentLogger()
	}
	return &Policy{
		log:       log,
		idle:      list.New(),
		idleIndex: make(map[objectid.ID]*list.Element),
		inUse:     make(map[objectid.ID]int64),
		owner:     make(map[objectid.ID]client.ID),
	}
}

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// ObjectCreated records that id (of size bytes) was just created or
// reconstructed for client, and is therefore in use (it has not yet had its
// first EndObjectAccess). isCreate marks the owning-for-quota-purposes
// client: only creation (not reconstruction) establishes a new owner,
// matching the spec's "preferentially selecting this client's own idle
// objects" quota preference.
func (p *Policy) ObjectCreated(id objectid.ID, size int64, owner client.ID, isCreate bool) {
	p.inUse[id] = size
	if isCreate {
		p.owner[id] = owner
	}
}

// BeginObjectAccess moves id out of the idle set and into the in-use set.
// It is a no-op if id is already in use.
func (p *Policy) BeginObjectAccess(id objectid.ID, size int64) {
	if elem, ok := p.idleIndex[id]; ok {
		p.idle.Remove(elem)
		delete(p.idleIndex, id)
	}
	p.inUse[id] = size
}

// EndObjectAccess moves id out of the in-use set and appends it to the back
// of the idle LRU list (i.e. marks it as the most recently used idle
// object).
func (p *Policy) EndObjectAccess(id objectid.ID, size int64) {
	delete(p.inUse, id)
	if _, already := p.idleIndex[id]; already {
		return
	}
	elem := p.idle.PushBack(idleObj{id: id, size: size})
	p.idleIndex[id] = elem
}

// RemoveObject drops all bookkeeping for id: it is being destroyed outside
// the eviction path (explicit delete or abort).
func (p *Policy) RemoveObject(id objectid.ID) {
	if elem, ok := p.idleIndex[id]; ok {
		p.idle.Remove(elem)
		delete(p.idleIndex, id)
	}
	delete(p.inUse, id)
	delete(p.owner, id)
}

// ClientDisconnected forgets the client's ownership association for quota
// purposes. It does not evict or otherwise touch the objects themselves —
// the directory drives their fate (abort or reference release) separately
// and will call BeginObjectAccess/EndObjectAccess/RemoveObject as needed.
func (p *Policy) ClientDisconnected(c client.ID) {
	for id, owner := range p.owner {
		if owner == c {
			delete(p.owner, id)
		}
	}
}

// RequireSpace selects idle objects, oldest first, until their combined
// size reaches needed. If the idle set as a whole is smaller than needed,
// every idle object is selected and ok is false. Selected objects are
// removed from the policy's own tracking; the caller is assumed to evict
// them for real.
func (p *Policy) RequireSpace(needed int64) (evicted []objectid.ID, ok bool) {
	ids, total := p.takeFromIdle(needed, nil)
	return ids, total >= needed
}

// EnforcePerClientQuota selects idle objects to free size bytes for client,
// preferring objects owned by (created by) that same client before falling
// back to the global idle LRU order. ok is false if even evicting every
// idle object (the client's own and everyone else's) would not free enough
// space.
func (p *Policy) EnforcePerClientQuota(c client.ID, needed int64, isCreate bool) (evicted []objectid.ID, ok bool) {
	owned := c
	ids, total := p.takeFromIdle(needed, &owned)
	if total >= needed {
		return ids, true
	}

	more, moreTotal := p.takeFromIdle(needed-total, nil)
	ids = append(ids, more...)
	total += moreTotal
	return ids, total >= needed
}

// ChooseObjectsToEvict selects idle objects, oldest first, until their
// combined size reaches numBytes or the idle set is exhausted. Unlike
// RequireSpace, there is no notion of failure here: this path serves
// explicit, unconditional eviction requests, so whatever is available is
// returned.
func (p *Policy) ChooseObjectsToEvict(numBytes int64) (evicted []objectid.ID, bytesSelected int64) {
	return p.takeFromIdle(numBytes, nil)
}

// takeFromIdle removes idle objects from the LRU list (oldest first) until
// their combined size reaches needed or the list (optionally filtered to
// objects owned by *owner) is exhausted.
func (p *Policy) takeFromIdle(needed int64, owner *client.ID) (ids []objectid.ID, total int64) {
	if needed <= 0 {
		return nil, 0
	}

	var next *list.Element
	for elem := p.idle.Front(); elem != nil && total < needed; elem = next {
		next = elem.Next()
		obj := elem.Value.(idleObj)

		if owner != nil {
			if o, ok := p.owner[obj.id]; !ok || o != *owner {
				continue
			}
		}

		p.idle.Remove(elem)
		delete(p.idleIndex, obj.id)
		ids = append(ids, obj.id)
		total += obj.size
	}

	if len(ids) > 0 {
		p.log.WithFields(logrus.Fields{"count": len(ids), "bytes": total, "needed": needed}).
			Debug("eviction: selected idle objects")
	}
	return ids, total
}

// IdleBytes returns the combined size of every currently idle object. It is
// exposed for observability/tests, not part of the directory's coordination
// path.
func (p *Policy) IdleBytes() int64 {
	var total int64
	for elem := p.idle.Front(); elem != nil; elem = elem.Next() {
		total += elem.Value.(idleObj).size
	}
	return total
}
