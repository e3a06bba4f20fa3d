// Package memory implements the volatile, session-scoped emergency tier.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/models"
)

// Tier keeps the serialized snapshot in process memory, the way session storage keeps a string.
// The payload is stored serialized so that corruption and quota limits behave like a real backend.
type Tier struct {
	name    models.Tier
	payload []byte
	quota   int
	mu      sync.Mutex
}

// Option configures a memory tier
type Option func(*Tier)

// WithQuota limits the payload size in bytes; writes beyond it fail with storage.ErrUnavailable
func WithQuota(bytes int) Option {
	return func(t *Tier) {
		t.quota = bytes
	}
}

// New creates an empty memory tier playing the given role
func New(name models.Tier, opts ...Option) *Tier {
	t := &Tier{name: name}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the tier role
func (t *Tier) Name() models.Tier {
	return t.name
}

// Write stores snap if its version is not older than the stored one
func (t *Tier) Write(ctx context.Context, snap *models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := storage.Encode(snap)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.quota > 0 && len(payload) > t.quota {
		return fmt.Errorf("%w: payload %d bytes exceeds quota %d", storage.ErrUnavailable, len(payload), t.quota)
	}
	if err := storage.CheckVersion(t.payload, snap, false); err != nil {
		return err
	}

	t.payload = payload
	return nil
}

// Read decodes the stored payload
func (t *Tier) Read(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	payload := t.payload
	t.mu.Unlock()

	return storage.Decode(payload, false)
}

// Clear drops the stored payload
func (t *Tier) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.payload = nil
	return nil
}

// Seed replaces the raw payload without any validation.
// Used to restore a session dump and to prime corrupt payloads in tests.
func (t *Tier) Seed(payload []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.payload = append([]byte(nil), payload...)
}

// Raw returns a copy of the stored payload
func (t *Tier) Raw() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]byte(nil), t.payload...)
}
