// Package common defines shared constants and sentinel errors used across
// filekeeper components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Lookup errors.
	ErrNotFound = errors.New("not found")

	// Upload validation errors (client input).
	ErrEmptyPayload    = errors.New("empty payload")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrSizeMismatch    = errors.New("declared size does not match payload")

	// Ownership and linking errors.
	ErrNotOwner        = errors.New("requester is not the owner")
	ErrAlreadyAttached = errors.New("object is already attached to this parent")

	// Ingest pipeline failures. ErrPublishFailed means metadata was committed
	// but the artifact could not be placed at its canonical path.
	ErrWriteFailed          = errors.New("write to staging failed")
	ErrMetadataCommitFailed = errors.New("metadata commit failed")
	ErrPublishFailed        = errors.New("publish failed after metadata commit")
	ErrCancelled            = errors.New("upload cancelled")

	// Auth errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
)

// IsClientError reports whether err belongs to the client-input class:
// it is surfaced with a stable code and never retried automatically.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyPayload) ||
		errors.Is(err, ErrPayloadTooLarge) ||
		errors.Is(err, ErrSizeMismatch) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyAttached)
}
