package common

// DefaultContentType is recorded when an upload does not declare one.
const DefaultContentType = "application/octet-stream"

// ObjectCreatedStream is the stream/topic name for object-created events.
const ObjectCreatedStream = "file.uploaded"

// Byte size units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
)
