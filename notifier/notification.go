// Package notifier fans out object lifecycle events (seal, delete, evict)
// to subscribers without ever blocking the directory's lock holder.
package notifier

import "github.com/outofforest/objectdirectory/objectid"

// Notification describes one lifecycle event. Deletion notifications set
// only ObjectID and IsDeletion; seal notifications set the sizes and leave
// IsDeletion false. Spilling an object to an external store emits no
// notification.
type Notification struct {
	ObjectID     objectid.ID
	DataSize     int64
	MetadataSize int64
	IsDeletion   bool
}
