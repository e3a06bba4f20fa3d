package host

import (
	"context"

	"github.com/iudanet/sitekeeper/pkg/api"
)

//go:generate moq -out backend_mock.go . Backend

// Backend is the collaborator holding the authoritative content
type Backend interface {
	// FetchAll returns the full field -> value mapping
	FetchAll(ctx context.Context) (*api.ContentResponse, error)

	// SaveBatch persists a batch of changes and reports per-field results
	SaveBatch(ctx context.Context, req api.BatchSaveRequest) (*api.BatchSaveResponse, error)
}
