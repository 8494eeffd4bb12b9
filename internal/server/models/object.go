// Package models defines server-side data models persisted in the database.
package models

import "time"

// StoredObject is the metadata record of one uploaded binary object.
// A live row (IsDeleted == false) promises a readable file at
// CanonicalPath once the upload has been published.
type StoredObject struct {
	ID string
	// OriginalName is the client-supplied file name. It is never used to build paths.
	OriginalName string
	// StoredName is "<ID><ext>", the base name of CanonicalPath.
	StoredName  string
	ContentType string
	SizeBytes   int64
	// Checksum is the hex BLAKE2b-256 digest of the stored bytes.
	Checksum      string
	CanonicalPath string
	OwnerID       string
	UploadedAt    time.Time
	IsDeleted     bool
}
