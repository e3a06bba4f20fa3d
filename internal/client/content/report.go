package content

import (
	"github.com/iudanet/sitekeeper/internal/models"
)

// LoadReport describes where the loaded content came from
type LoadReport struct {
	Failures map[models.Tier]error // Failures тиры, не давшие snapshot (пустые, поврежденные, недоступные)
	Source   models.Tier           // Source пусто, если ни один тир не прочитан
	Version  int64
	Fields   int
}

// Recovered reports whether any tier produced a snapshot
func (r *LoadReport) Recovered() bool {
	return r.Source != ""
}

// SaveReport describes the outcome of one write-through
type SaveReport struct {
	Failed    map[models.Tier]error
	Written   []models.Tier
	Version   int64
	Timestamp int64
}

// Degraded reports whether at least one tier missed the write
func (r *SaveReport) Degraded() bool {
	return len(r.Failed) > 0
}

// ApplyResult describes how a remote batch was merged
type ApplyResult struct {
	Save      *SaveReport // Save nil, если ничего не изменилось
	Applied   []string
	Discarded []string // Discarded поля под активным grace-окном
	Unchanged []string
}

// TierStatus is the state of one tier observed by VerifyIntegrity
type TierStatus struct {
	Err      error
	Tier     models.Tier
	Checksum string
	Origin   models.Origin
	Version  int64
	Fields   int
}

// IntegrityReport compares the copies held by every tier
type IntegrityReport struct {
	Tiers      []TierStatus
	Divergence []string
	OK         bool
}
