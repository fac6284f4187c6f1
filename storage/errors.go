package storage

import "errors"

// Common storage errors.
var (
	// ErrNotOpen is returned when the marker bucket has not been opened.
	ErrNotOpen = errors.New("marker bucket not open")

	// ErrEmptyKey is returned for an empty marker key.
	ErrEmptyKey = errors.New("empty marker key")
)
