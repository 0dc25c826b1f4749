package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrInvalidDocument is returned for documents without a collection or id.
	ErrInvalidDocument = errors.New("persistence: invalid document")
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("persistence: store closed")
