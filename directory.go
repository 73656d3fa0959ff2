// Package objectdirectory is the authoritative in-process index of every
// object resident in a shared-memory object store: it owns the object
// lifecycle (create, seal, use, evict, delete), coordinates an LRU eviction
// policy against a bounded allocator footprint, tracks per-client
// references, optionally spills evicted objects to an external store, and
// notifies subscribers of seals, deletions, and evictions.
package objectdirectory

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/outofforest/objectdirectory/allocator"
	"github.com/outofforest/objectdirectory/client"
	"github.com/outofforest/objectdirectory/entry"
	"github.com/outofforest/objectdirectory/eviction"
	"github.com/outofforest/objectdirectory/externalstore"
	"github.com/outofforest/objectdirectory/notifier"
	"github.com/outofforest/objectdirectory/objectid"
)

// Option configures optional knobs of a Directory at construction time,
// matching the teacher's functional-option-free but explicit-parameter
// constructor style extended with small option slices where knobs are
// genuinely optional.
type Option func(*Directory)

// WithLogger sets the logger used for existence conflicts, deferred
// deletions, seals, evictions, and disconnects. Nil (the default) discards
// log output.
func WithLogger(log *logrus.Logger) Option {
	return func(d *Directory) { d.log = log }
}

// WithExternalStore attaches an external store used to spill evicted
// objects and reconstruct them on demand. Without one, eviction frees
// memory unconditionally and the object is removed from the table instead
// of surviving in state Evicted.
func WithExternalStore(store externalstore.Store) Option {
	return func(d *Directory) { d.externalStore = store }
}

// WithNotifierBufferSize sets the per-subscriber channel capacity of the
// directory's notifier. Zero keeps notifier.DefaultBufferSize.
func WithNotifierBufferSize(size int) Option {
	return func(d *Directory) { d.notifierBufferSize = size }
}

// Directory is the coordinator described in §4.6: it owns the object
// table, the deletion cache, and a single mutex guarding both plus the
// eviction policy. Every public method takes the mutex for its full
// duration, including notification emission and external-store I/O.
type Directory struct {
	mu sync.Mutex

	alloc         allocator.Allocator
	policy        *eviction.Policy
	notifier      *notifier.Notifier
	externalStore externalstore.Store
	log           *logrus.Logger

	objects  map[objectid.ID]*entry.Entry
	toDelete map[objectid.ID]struct{}

	notifierBufferSize int
}

// New returns a Directory whose host allocations are served by alloc.
func New(alloc allocator.Allocator, opts ...Option) *Directory {
	d := &Directory{
		alloc:    alloc,
		objects:  make(map[objectid.ID]*entry.Entry),
		toDelete: make(map[objectid.ID]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = silentLogger()
	}
	d.policy = eviction.New(d.log)
	d.notifier = notifier.New(d.log, d.notifierBufferSize)
	return d
}

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = discardWriter{}
	return log
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// byteAccessor is satisfied by every allocator.Allocator implementation
// this package ships (allocator.HeapAllocator, allocator.SharedAllocator):
// it exposes the raw bytes backing a reservation so the directory can
// memcpy into it (CreateAndSealObject) or hand it to the external store
// (reconstruction, eviction spill) without the Allocator contract itself
// needing to expose raw memory to callers that only need fd/offset/size.
type byteAccessor interface {
	Bytes(offset, size int64) []byte
}

func (d *Directory) bytesFor(e *entry.Entry) []byte {
	ba, ok := d.alloc.(byteAccessor)
	if !ok {
		panic("objectdirectory: allocator does not support direct byte access")
	}
	return ba.Bytes(e.Offset, e.ObjectSize())
}

// Subscribe registers a new notification subscriber. See the notifier
// package for delivery semantics.
func (d *Directory) Subscribe() *notifier.Subscription {
	return d.notifier.Subscribe()
}

// CreateObject reserves a fresh entry for id, allocates host memory for it
// (possibly evicting other objects if evictIfFull is set), and registers
// clientID as both the creator and first reference holder.
func (d *Directory) CreateObject(
	id objectid.ID,
	evictIfFull bool,
	dataSize, metadataSize int64,
	device int,
	clientID client.ID,
	record *client.Record,
) (Descriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.objects[id]; exists {
		d.log.WithField("object_id", id).Debug("objectdirectory: create rejected, object already exists")
		return Descriptor{}, ErrObjectExists
	}

	e := entry.New(id, d.alloc)
	e.DataSize = dataSize
	e.MetadataSize = metadataSize

	if err := d.allocateMemory(e, e.ObjectSize(), evictIfFull, clientID, true, device); err != nil {
		return Descriptor{}, err
	}

	e.RefCount = 1
	d.objects[id] = e
	record.Add(id)

	return descriptorFor(e), nil
}

// CreateAndSealObject is the host-only convenience described in §4.6: it
// creates id, copies data and metadata into its buffer, seals it, and
// releases the creator's own reference, all under one lock acquisition.
func (d *Directory) CreateAndSealObject(
	id objectid.ID,
	evictIfFull bool,
	data, metadata []byte,
	clientID client.ID,
	record *client.Record,
) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.objects[id]; exists {
		return ErrObjectExists
	}

	e := entry.New(id, d.alloc)
	e.DataSize = int64(len(data))
	e.MetadataSize = int64(len(metadata))

	if err := d.allocateMemory(e, e.ObjectSize(), evictIfFull, clientID, true, 0); err != nil {
		return err
	}

	buf := d.bytesFor(e)
	copy(buf, data)
	copy(buf[len(data):], metadata)

	e.State = entry.Sealed
	e.ConstructDuration = time.Since(e.CreateTime)
	d.objects[id] = e

	d.policy.EndObjectAccess(id, e.ObjectSize())
	d.notifier.Notify([]notifier.Notification{sealNotification(e)})
	d.log.WithField("object_id", id).Info("objectdirectory: sealed objects")

	return nil
}

// GetObjects partitions ids into three disjoint sets: already-sealed,
// freshly reconstructed, and unavailable (absent from the table, or
// present but not yet sealed). Reconstruction allocates memory for each
// Evicted id (which may itself trigger eviction of other idle objects) and,
// with an external store configured, fetches the payload back; a failure
// at either step rolls the entry back to Evicted rather than surfacing an
// error, since the id simply stays out of the reconstructed set. Reference
// counting for every returned id is the caller's responsibility via
// RegisterSealedObjectToClient — GetObjects never registers a reference.
func (d *Directory) GetObjects(ids []objectid.ID, clientID client.ID) (sealed, reconstructed, nonexistent []objectid.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Per §4.6, only entries actually (re-)allocated in this call are
	// tracked here and handed to the external store; the original source
	// left this list empty before the loop, a bug this implementation
	// fixes.
	var allocated []*entry.Entry
	for _, id := range ids {
		e, ok := d.objects[id]
		if !ok {
			nonexistent = append(nonexistent, id)
			continue
		}

		switch e.State {
		case entry.Sealed:
			sealed = append(sealed, id)
		case entry.Evicted:
			if err := d.allocateMemory(e, e.ObjectSize(), true, clientID, false, 0); err != nil {
				nonexistent = append(nonexistent, id)
				continue
			}
			allocated = append(allocated, e)
		default:
			// Created: not yet visible to anyone but its creator.
			nonexistent = append(nonexistent, id)
		}
	}

	if len(allocated) == 0 {
		return sealed, reconstructed, nonexistent
	}

	if d.externalStore == nil {
		// No external store: a previously Evicted entry can only exist if
		// one was configured when it was evicted (evictObjectsInternal
		// removes entries outright otherwise), so this path is defensive
		// rather than expected, but it must still leave no dangling
		// allocation or stale policy bookkeeping behind.
		for _, e := range allocated {
			d.policy.RemoveObject(e.ID)
			e.FreeObject()
			nonexistent = append(nonexistent, e.ID)
		}
		return sealed, reconstructed, nonexistent
	}

	getIDs := make([]objectid.ID, len(allocated))
	buffers := make([][]byte, len(allocated))
	for i, e := range allocated {
		getIDs[i] = e.ID
		buffers[i] = d.bytesFor(e)
	}

	if err := d.externalStore.Get(getIDs, buffers); err != nil {
		d.log.WithError(err).Debug("objectdirectory: reconstruction failed, reverting to evicted")
		for _, e := range allocated {
			d.policy.RemoveObject(e.ID)
			e.FreeObject()
			nonexistent = append(nonexistent, e.ID)
		}
		return sealed, reconstructed, nonexistent
	}

	for _, e := range allocated {
		e.State = entry.Sealed
		e.ConstructDuration = time.Since(e.CreateTime)
		d.policy.EndObjectAccess(e.ID, e.ObjectSize())
		reconstructed = append(reconstructed, e.ID)
	}

	return sealed, reconstructed, nonexistent
}

// RegisterSealedObjectToClient records that clientID now references id,
// bumping its reference count (and informing the eviction policy if the
// count was zero) and returns a descriptor for it.
func (d *Directory) RegisterSealedObjectToClient(
	id objectid.ID,
	clientID client.ID,
	record *client.Record,
) (Descriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.objects[id]
	if !ok {
		return Descriptor{}, ErrObjectNonexistent
	}

	if record.Add(id) {
		if e.RefCount == 0 {
			d.policy.BeginObjectAccess(id, e.ObjectSize())
		}
		e.RefCount++
	}

	return descriptorFor(e), nil
}

// MarkObjectAsReconstructed returns a descriptor for id without touching
// reference counts, for callers that already accounted for the reference
// via GetObjects/RegisterSealedObjectToClient elsewhere.
func (d *Directory) MarkObjectAsReconstructed(id objectid.ID) (Descriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.objects[id]
	if !ok {
		return Descriptor{}, ErrObjectNonexistent
	}
	return descriptorFor(e), nil
}

// SealObjects transitions each id from Created to Sealed, stamping its
// construct duration, and notifies subscribers once all transitions have
// completed.
func (d *Directory) SealObjects(ids []objectid.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var events []notifier.Notification
	for _, id := range ids {
		e, ok := d.objects[id]
		if !ok {
			return errors.Errorf("objectdirectory: cannot seal unknown object %s", id)
		}
		if e.State != entry.Created {
			panic("objectdirectory: SealObjects called on an entry that is not Created")
		}

		e.State = entry.Sealed
		e.ConstructDuration = time.Since(e.CreateTime)
		events = append(events, sealNotification(e))
	}

	d.notifier.Notify(events)
	d.log.WithField("count", len(ids)).Info("objectdirectory: sealed objects")
	return nil
}

// AbortObject erases id if it is Sealed and owned (referenced) by clientID,
// returning whether the abort happened. It is legal only on sealed objects
// per §4.6 ("Legal only on state=Sealed owned by client").
func (d *Directory) AbortObject(id objectid.ID, clientID client.ID, record *client.Record) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.objects[id]
	if !ok {
		return false, nil
	}
	if e.State != entry.Sealed || !record.Has(id) {
		return false, nil
	}

	record.Remove(id)
	d.policy.RemoveObject(id)
	if e.Pointer {
		e.FreeObject()
	}
	delete(d.objects, id)
	return true, nil
}

// DeleteObject removes id if it is sealed and idle; otherwise it records
// the request in the deletion cache and returns a descriptive error so the
// caller knows the delete will happen later.
func (d *Directory) DeleteObject(id objectid.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.objects[id]
	if !ok {
		d.log.WithField("object_id", id).Debug("objectdirectory: delete of nonexistent object")
		return ErrObjectNonexistent
	}

	if e.State != entry.Sealed {
		d.toDelete[id] = struct{}{}
		d.log.WithField("object_id", id).Debug("objectdirectory: delete deferred, object not sealed")
		return ErrObjectNotSealed
	}
	if e.RefCount > 0 {
		d.toDelete[id] = struct{}{}
		d.log.WithField("object_id", id).Debug("objectdirectory: delete deferred, object in use")
		return ErrObjectInUse
	}

	d.deleteSealedIdle(e)
	return nil
}

// deleteSealedIdle removes a sealed, idle (ref_count == 0) entry from the
// table, frees its memory, and notifies subscribers of the deletion.
// Caller must hold d.mu.
func (d *Directory) deleteSealedIdle(e *entry.Entry) {
	d.policy.RemoveObject(e.ID)
	delete(d.toDelete, e.ID)
	if e.Pointer {
		e.FreeObject()
	}
	delete(d.objects, e.ID)
	d.notifier.Notify([]notifier.Notification{{ObjectID: e.ID, IsDeletion: true}})
}

// EvictObjects asks the eviction policy for idle objects to evict and
// evicts them, returning the total number of bytes reclaimed.
func (d *Directory) EvictObjects(numBytes int64) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids, bytesSelected := d.policy.ChooseObjectsToEvict(numBytes)
	d.evictObjectsInternal(ids)
	return bytesSelected
}

// DisconnectClient withdraws every reference and creator claim clientID
// held. Unsealed objects it created are aborted outright; sealed objects it
// referenced have that reference released (which may trigger a deferred
// delete or return the object to the idle LRU).
func (d *Directory) DisconnectClient(clientID client.ID, record *client.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.policy.ClientDisconnected(clientID)

	var sealedIDs []objectid.ID
	for id := range record.ObjectIDs {
		e, ok := d.objects[id]
		if !ok {
			continue
		}
		if e.State != entry.Sealed {
			// An unsealed object can only have been created by this
			// client (it is not yet visible to anyone else): abort it.
			record.Remove(id)
			d.policy.RemoveObject(id)
			if e.Pointer {
				e.FreeObject()
			}
			delete(d.objects, id)
			continue
		}
		sealedIDs = append(sealedIDs, id)
	}

	for _, id := range sealedIDs {
		d.removeFromClientObjectIDs(id, record)
	}

	d.log.WithField("client_id", clientID).Info("objectdirectory: client disconnected")
}

// removeFromClientObjectIDs releases clientID's (via record) reference to a
// sealed object, decrementing RefCount. If the count reaches zero, the
// object either satisfies a pending deferred delete immediately, or
// returns to the idle LRU. Caller must hold d.mu.
func (d *Directory) removeFromClientObjectIDs(id objectid.ID, record *client.Record) {
	if !record.Remove(id) {
		return
	}

	e, ok := d.objects[id]
	if !ok {
		return
	}

	e.RefCount--
	if e.RefCount > 0 {
		return
	}

	if _, pending := d.toDelete[id]; pending {
		d.deleteSealedIdle(e)
		return
	}

	d.policy.EndObjectAccess(id, e.ObjectSize())
}

// allocateMemory reserves size bytes of host memory for e. With evictIfFull
// set, a creation (isCreate) first evicts the idle objects selected by the
// per-client quota step before any allocation attempt, and any request
// evicts further idle objects whenever an attempt does not fit.
// Precondition: e.Pointer == false (no existing allocation). Caller must
// hold d.mu.
func (d *Directory) allocateMemory(
	e *entry.Entry,
	size int64,
	evictIfFull bool,
	clientID client.ID,
	isCreate bool,
	device int,
) error {
	if e.Pointer {
		panic("objectdirectory: allocateMemory called on an entry that already has an allocation")
	}

	if device != 0 {
		return ErrDeviceUnsupported
	}

	// Per-client quota is a budget on new creations, not on reconstructing
	// an object the caller already paid for once: only isCreate requests
	// pay the proactive quota-eviction cost up front. Reconstruction
	// (isCreate == false) relies on the reactive RequireSpace retry below.
	if evictIfFull && isCreate {
		evicted, ok := d.policy.EnforcePerClientQuota(clientID, size, isCreate)
		d.evictObjectsInternal(evicted)
		if !ok {
			return ErrOutOfMemory
		}
	}

	for {
		err := e.AllocateMemory(device, size)
		if err == nil {
			d.policy.ObjectCreated(e.ID, size, clientID, isCreate)
			return nil
		}
		if !errors.Is(err, entry.ErrObjectStoreFull) {
			return err
		}
		if !evictIfFull {
			return ErrObjectStoreFull
		}

		evicted, ok := d.policy.RequireSpace(size)
		d.evictObjectsInternal(evicted)
		if !ok {
			return ErrOutOfMemory
		}
	}
}

// evictObjectsInternal evicts every id in ids: each must exist, be sealed,
// and be idle (ref_count == 0) — a caller bug otherwise, hard-checked. With
// an external store configured, payloads are spilled (a Put failure is
// fatal, matching the source) and entries survive in state Evicted. Without
// one, memory is freed and entries are removed from the table outright.
// Caller must hold d.mu.
func (d *Directory) evictObjectsInternal(ids []objectid.ID) {
	if len(ids) == 0 {
		return
	}

	if d.externalStore != nil {
		entries := make([]*entry.Entry, 0, len(ids))
		buffers := make([][]byte, 0, len(ids))
		for _, id := range ids {
			e := d.mustEvictableEntry(id)
			entries = append(entries, e)
			buffers = append(buffers, d.bytesFor(e))
		}

		if err := d.externalStore.Put(ids, buffers); err != nil {
			panic(errors.Wrap(err, "objectdirectory: external store put failed during eviction"))
		}

		for _, e := range entries {
			e.FreeObject()
		}
		d.log.WithField("count", len(ids)).Info("objectdirectory: evicted objects to external store")
		return
	}

	events := make([]notifier.Notification, 0, len(ids))
	for _, id := range ids {
		e := d.mustEvictableEntry(id)
		e.FreeObject()
		delete(d.objects, id)
		events = append(events, notifier.Notification{ObjectID: id, IsDeletion: true})
	}
	d.notifier.Notify(events)
	d.log.WithField("count", len(ids)).Info("objectdirectory: evicted objects without external store")
}

func (d *Directory) mustEvictableEntry(id objectid.ID) *entry.Entry {
	e, ok := d.objects[id]
	if !ok {
		panic("objectdirectory: evictObjectsInternal called with unknown object id")
	}
	if e.State != entry.Sealed || e.RefCount != 0 {
		panic("objectdirectory: evictObjectsInternal called on a non-idle or unsealed object")
	}
	return e
}

func sealNotification(e *entry.Entry) notifier.Notification {
	return notifier.Notification{
		ObjectID:     e.ID,
		DataSize:     e.DataSize,
		MetadataSize: e.MetadataSize,
	}
}
