// Package pending accumulates operator edits until they are flushed upstream.
package pending

import (
	"sort"
	"sync"

	"github.com/iudanet/sitekeeper/internal/models"
)

// Aggregator keeps at most one pending change per field, last write wins
type Aggregator struct {
	changes   map[string]models.PendingChange
	firstSeen map[string]uint64 // порядок первого редактирования поля в сессии
	source    string
	seq       uint64
	mu        sync.Mutex
}

// New creates an empty aggregator stamping every change with source
func New(source string) *Aggregator {
	return &Aggregator{
		changes:   make(map[string]models.PendingChange),
		firstSeen: make(map[string]uint64),
		source:    source,
	}
}

// Record queues value for field, replacing any earlier pending value of the same field
func (a *Aggregator) Record(field, value string, format models.Format) {
	if format == "" {
		format = models.FormatPlain
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.touchLocked(field)
	a.changes[field] = models.PendingChange{
		FieldName: field,
		Value:     value,
		Format:    format,
		Source:    a.source,
	}
}

// Flush returns every pending change ordered by first edit and clears the pending set.
// The caller owns the batch; on failure it should hand it back through Restore.
func (a *Aggregator) Flush() []models.PendingChange {
	a.mu.Lock()
	defer a.mu.Unlock()

	batch := a.sortedLocked()
	a.changes = make(map[string]models.PendingChange)
	return batch
}

// Restore re-queues a batch that failed to reach the backend.
// A field edited again after the flush keeps its newer value.
func (a *Aggregator) Restore(batch []models.PendingChange) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	restored := 0
	for _, change := range batch {
		if _, ok := a.changes[change.FieldName]; ok {
			continue
		}
		a.touchLocked(change.FieldName)
		a.changes[change.FieldName] = change
		restored++
	}
	return restored
}

// Acknowledge drops pending entries the backend has persisted.
// An entry is kept when its value differs from the acknowledged one.
func (a *Aggregator) Acknowledge(batch []models.PendingChange) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for _, change := range batch {
		current, ok := a.changes[change.FieldName]
		if !ok || current.Value != change.Value || current.Format != change.Format {
			continue
		}
		delete(a.changes, change.FieldName)
		removed++
	}
	return removed
}

// Pending returns a copy of the pending changes without clearing them
func (a *Aggregator) Pending() []models.PendingChange {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.sortedLocked()
}

// IsEmpty reports whether nothing is waiting to be flushed
func (a *Aggregator) IsEmpty() bool {
	return a.Len() == 0
}

// Len returns the number of pending fields
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.changes)
}

func (a *Aggregator) touchLocked(field string) {
	if _, ok := a.firstSeen[field]; ok {
		return
	}
	a.seq++
	a.firstSeen[field] = a.seq
}

func (a *Aggregator) sortedLocked() []models.PendingChange {
	batch := make([]models.PendingChange, 0, len(a.changes))
	for _, change := range a.changes {
		batch = append(batch, change)
	}
	sort.Slice(batch, func(i, j int) bool {
		return a.firstSeen[batch[i].FieldName] < a.firstSeen[batch[j].FieldName]
	})
	return batch
}
