// Package content owns the canonical in-process view of the site content
// and writes it through to every storage tier.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/sitekeeper/internal/client/grace"
	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/models"
)

// Store is the only component allowed to read or write the storage tiers.
// Save, ApplyRemote and ApplyLocal are serialized: a call starts only after
// the previous one finished writing to every tier.
type Store struct {
	guard   *grace.Guard
	logger  *slog.Logger
	now     func() time.Time
	current *models.Snapshot
	tiers   []storage.Tier
	mu      sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now, used for timestamps and grace window checks
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store over tiers. Tiers are consulted in trust order regardless of the order given.
func New(tiers []storage.Tier, guard *grace.Guard, logger *slog.Logger, opts ...Option) (*Store, error) {
	if len(tiers) == 0 {
		return nil, ErrNoTiers
	}
	if guard == nil {
		guard = grace.New(grace.DefaultWindow)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ordered := make([]storage.Tier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Name().Rank() < ordered[j].Name().Rank()
	})

	s := &Store{
		tiers:   ordered,
		guard:   guard,
		logger:  logger,
		now:     time.Now,
		current: &models.Snapshot{Data: models.ContentRecord{}, Origin: models.OriginMigration},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Guard returns the grace guard consulted by ApplyRemote
func (s *Store) Guard() *grace.Guard {
	return s.guard
}

// Current returns a copy of the in-process content
func (s *Store) Current() models.ContentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current.Data.Clone()
}

// Snapshot returns a copy of the in-process snapshot with its metadata
func (s *Store) Snapshot() *models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current.Clone()
}

// Version returns the version of the in-process snapshot
func (s *Store) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current.Version
}

// Load reads every tier; the decodable snapshot with the highest version wins and
// equal versions go to the more trusted tier. A tier that missed a write therefore
// never hides newer content held by a less trusted one.
// When no tier has one the store starts from an empty record, which is reported but not an error.
func (s *Store) Load(ctx context.Context) (models.ContentRecord, *LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &LoadReport{Failures: make(map[models.Tier]error)}

	var (
		winner        *models.Snapshot
		maxVersion    int64
		lastTimestamp int64
	)
	for _, tier := range s.tiers {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		snap, err := tier.Read(ctx)
		if err != nil {
			report.Failures[tier.Name()] = err
			if !errors.Is(err, storage.ErrEmpty) {
				s.logger.Warn("Failed to read tier", "tier", tier.Name(), "error", err)
			}
			continue
		}

		// Следующая версия должна быть принята всеми тирами
		maxVersion = max(maxVersion, snap.Version)
		lastTimestamp = max(lastTimestamp, snap.Timestamp)

		// Тиры идут по убыванию доверия: при равной версии остается первый
		if winner == nil || snap.Version > winner.Version {
			winner = snap
			report.Source = tier.Name()
		}
	}

	if winner == nil {
		s.logger.Warn("No tier holds readable content, starting empty", "tiers", len(s.tiers))
		s.current = &models.Snapshot{
			Data:      models.ContentRecord{},
			Origin:    models.OriginMigration,
			Timestamp: lastTimestamp,
			Version:   maxVersion,
		}
		return models.ContentRecord{}, report, nil
	}

	s.current = &models.Snapshot{
		Data:      winner.Data.Clone(),
		Origin:    winner.Origin,
		Timestamp: lastTimestamp,
		Version:   maxVersion,
	}
	report.Version = winner.Version
	report.Fields = len(winner.Data)

	s.logger.Info("Content loaded",
		"source", report.Source,
		"version", winner.Version,
		"fields", report.Fields,
		"failed_tiers", len(report.Failures))

	return winner.Data.Clone(), report, nil
}

// Save replaces the content with record and writes it through to every tier
func (s *Store) Save(ctx context.Context, record models.ContentRecord, origin models.Origin) (*SaveReport, error) {
	if !origin.Valid() {
		return nil, fmt.Errorf("invalid origin %q", origin)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(ctx, record.Clone(), origin)
}

// ApplyLocal merges operator edits into the content and saves them with origin local-edit
func (s *Store) ApplyLocal(ctx context.Context, changes ...models.FieldChange) (*SaveReport, error) {
	if err := validateChanges(changes); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.current.Data.Clone()
	for _, change := range changes {
		merged[change.FieldName] = change.Value
	}
	return s.saveLocked(ctx, merged, models.OriginLocalEdit)
}

// ApplyRemote merges changes coming from the backend.
// A change to a field under an active grace window is discarded; a batch that changes
// nothing is not saved again, so applying the same batch twice is harmless.
func (s *Store) ApplyRemote(ctx context.Context, changes []models.FieldChange) (*ApplyResult, error) {
	if err := validateChanges(changes); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	result := &ApplyResult{}
	merged := s.current.Data.Clone()

	for _, change := range changes {
		if s.guard.IsGuarded(change.FieldName, now) {
			result.Discarded = append(result.Discarded, change.FieldName)
			s.logger.Warn("Discarded remote change under grace window", "field", change.FieldName)
			continue
		}
		if current, ok := merged[change.FieldName]; ok && current == change.Value {
			result.Unchanged = append(result.Unchanged, change.FieldName)
			continue
		}
		merged[change.FieldName] = change.Value
		result.Applied = append(result.Applied, change.FieldName)
	}

	if len(result.Applied) == 0 {
		s.logger.Debug("Remote batch changed nothing",
			"discarded", len(result.Discarded),
			"unchanged", len(result.Unchanged))
		return result, nil
	}

	report, err := s.saveLocked(ctx, merged, models.OriginRemoteSync)
	result.Save = report
	if err != nil {
		return result, err
	}
	return result, nil
}

// saveLocked stamps a new version and writes it to every tier in parallel.
// Tier writes are detached from ctx cancellation: once issued each one runs to completion.
func (s *Store) saveLocked(ctx context.Context, record models.ContentRecord, origin models.Origin) (*SaveReport, error) {
	snap := &models.Snapshot{
		Data:      record,
		Origin:    origin,
		Timestamp: max(s.now().UnixMilli(), s.current.Timestamp+1),
		Version:   s.current.Version + 1,
	}

	errs := make([]error, len(s.tiers))
	writeCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	for i, tier := range s.tiers {
		g.Go(func() error {
			errs[i] = tier.Write(writeCtx, snap.Clone())
			return nil
		})
	}
	_ = g.Wait()

	report := &SaveReport{
		Failed:    make(map[models.Tier]error),
		Version:   snap.Version,
		Timestamp: snap.Timestamp,
	}
	var combined error
	for i, tier := range s.tiers {
		if errs[i] != nil {
			report.Failed[tier.Name()] = errs[i]
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", tier.Name(), errs[i]))
			s.logger.Warn("Failed to write tier",
				"tier", tier.Name(),
				"version", snap.Version,
				"error", errs[i])
			continue
		}
		report.Written = append(report.Written, tier.Name())
	}

	// In-memory view follows the edit even if no tier accepted it
	s.current = snap

	if len(report.Written) == 0 {
		s.logger.Error("Content not persisted to any tier", "version", snap.Version, "origin", origin)
		return report, fmt.Errorf("%w: %w", ErrAllTiersFailed, combined)
	}

	s.logger.Info("Content saved",
		"version", snap.Version,
		"origin", origin,
		"fields", len(record),
		"tiers", len(report.Written))
	return report, nil
}

// Clear resets every tier and the in-process content. It is the only way to lower a stored version.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for _, tier := range s.tiers {
		if err := tier.Clear(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", tier.Name(), err))
		}
	}
	s.current = &models.Snapshot{Data: models.ContentRecord{}, Origin: models.OriginMigration}
	s.guard.Reset()

	if errs != nil {
		return fmt.Errorf("failed to clear tiers: %w", errs)
	}
	s.logger.Info("All tiers cleared")
	return nil
}

// VerifyIntegrity re-reads every tier and reports how their copies diverge. It never writes.
func (s *Store) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &IntegrityReport{Tiers: make([]TierStatus, 0, len(s.tiers))}
	snaps := make([]*models.Snapshot, len(s.tiers))

	for i, tier := range s.tiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		status := TierStatus{Tier: tier.Name()}
		snap, err := tier.Read(ctx)
		if err != nil {
			status.Err = err
		} else {
			snaps[i] = snap
			status.Version = snap.Version
			status.Fields = len(snap.Data)
			status.Origin = snap.Origin
			if sum, sumErr := storage.Checksum(snap.Data); sumErr == nil {
				status.Checksum = sum
			}
		}
		report.Tiers = append(report.Tiers, status)
	}

	report.Divergence = divergence(report.Tiers, snaps)
	report.OK = len(report.Divergence) == 0
	return report, nil
}

func divergence(statuses []TierStatus, snaps []*models.Snapshot) []string {
	if allEmpty(statuses) {
		return nil
	}

	var details []string
	reference := -1
	for i, status := range statuses {
		if status.Err != nil {
			if errors.Is(status.Err, storage.ErrEmpty) {
				details = append(details, fmt.Sprintf("%s: empty", status.Tier))
			} else {
				details = append(details, fmt.Sprintf("%s: %v", status.Tier, status.Err))
			}
			continue
		}

		if reference < 0 {
			reference = i
			continue
		}
		ref := statuses[reference]
		if status.Version != ref.Version {
			details = append(details, fmt.Sprintf("%s: version %d differs from %s version %d",
				status.Tier, status.Version, ref.Tier, ref.Version))
		}
		if status.Checksum != ref.Checksum {
			details = append(details, fmt.Sprintf("%s: content differs from %s in %s",
				status.Tier, ref.Tier, diffFields(snaps[reference], snaps[i])))
		}
	}
	return details
}

func diffFields(a, b *models.Snapshot) string {
	if a == nil || b == nil {
		return "unknown fields"
	}
	var fields []string
	for name, value := range a.Data {
		if other, ok := b.Data[name]; !ok || other != value {
			fields = append(fields, name)
		}
	}
	for name := range b.Data {
		if _, ok := a.Data[name]; !ok {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return "fields " + strings.Join(fields, ", ")
}

func allEmpty(statuses []TierStatus) bool {
	for _, status := range statuses {
		if !errors.Is(status.Err, storage.ErrEmpty) {
			return false
		}
	}
	return true
}

func validateChanges(changes []models.FieldChange) error {
	for i, change := range changes {
		if change.FieldName == "" {
			return fmt.Errorf("%w: change %d has no field name", ErrInvalidChange, i)
		}
	}
	return nil
}
