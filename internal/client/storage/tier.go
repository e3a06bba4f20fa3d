package storage

import (
	"context"

	"github.com/iudanet/sitekeeper/internal/models"
)

//go:generate moq -out tier_mock.go . Tier

// Tier is a uniform read/write/clear wrapper over one physical backend.
// Side effects are confined to the named backend; an adapter never reads another tier.
type Tier interface {
	// Name returns the role this adapter plays in the trust order
	Name() models.Tier

	// Write stores snap, replacing the previous snapshot.
	// Returns ErrStaleVersion if the stored version is strictly newer than snap.Version.
	Write(ctx context.Context, snap *models.Snapshot) error

	// Read returns the stored snapshot.
	// Returns ErrEmpty when nothing is stored and ErrCorrupt when the payload cannot be parsed.
	Read(ctx context.Context) (*models.Snapshot, error)

	// Clear removes the stored snapshot, resetting the version guard
	Clear(ctx context.Context) error
}
