package storage

import (
	"context"
	"time"
)

//go:generate moq -out journal_mock.go . SaveJournal

// SaveRecord describes a save the backend acknowledged
type SaveRecord struct {
	At        time.Time `json:"at"`
	RequestID string    `json:"request_id"`
	Saved     int       `json:"saved"`
}

// IsZero reports whether no save has been recorded
func (r SaveRecord) IsZero() bool {
	return r.At.IsZero()
}

// SaveJournal remembers the last acknowledged save across restarts
type SaveJournal interface {
	// RecordSave replaces the last recorded save
	RecordSave(ctx context.Context, rec SaveRecord) error

	// LastSave returns the zero record when nothing was saved yet
	LastSave(ctx context.Context) (SaveRecord, error)
}
