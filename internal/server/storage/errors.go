package storage

import "errors"

// Common storage errors
var (
	// ErrEmptyFieldName indicates that a field was submitted without a name
	ErrEmptyFieldName = errors.New("field name is empty")

	// ErrValueTooLarge indicates that a field value exceeds MaxValueBytes
	ErrValueTooLarge = errors.New("field value too large")
)
