package models

import "time"

// Attachment links a stored object to a parent record (a task).
type Attachment struct {
	ID         string
	ParentID   string
	ObjectID   string
	UploadedBy string
	UploadedAt time.Time

	// Object is the joined object row when loaded through a read query.
	Object *StoredObject
}
