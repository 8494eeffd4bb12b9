// Package events announces stored objects to downstream consumers.
// Publishing is best effort: it never blocks or fails an upload.
package events

import (
	"context"
	"time"
)

// ObjectCreated is emitted once an upload has been fully published.
type ObjectCreated struct {
	ObjectID    string    `json:"fileId"`
	OwnerID     string    `json:"uploadedBy"`
	Name        string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"fileSize"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher delivers events to an external sink.
type Publisher interface {
	PublishObjectCreated(ctx context.Context, evt ObjectCreated) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) PublishObjectCreated(context.Context, ObjectCreated) error { return nil }
