package docstore

import "errors"

var (
	// ErrNotFound is returned when a requested document doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a reference, field or filter is malformed
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a write collides with an existing key
	ErrConflict = errors.New("conflict")

	// ErrClosed is returned when a subscription is used after Stop
	ErrClosed = errors.New("subscription closed")
)
