package storage

import "errors"

// Common tier errors. Callers match them with errors.Is; adapters wrap them with details.
var (
	// ErrEmpty indicates that the tier holds no snapshot
	ErrEmpty = errors.New("tier is empty")

	// ErrCorrupt indicates that a payload is present but cannot be parsed or fails its checksum.
	// Corruption is an expected condition: readers fall through to the next tier.
	ErrCorrupt = errors.New("stored snapshot is corrupt")

	// ErrUnavailable indicates that the backend is disabled or out of quota
	ErrUnavailable = errors.New("tier is unavailable")

	// ErrStaleVersion indicates a write older than the version already stored
	ErrStaleVersion = errors.New("snapshot version is older than stored version")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
