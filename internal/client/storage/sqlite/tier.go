package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/models"
)

// snapshotSlot is the row key of the current snapshot
const snapshotSlot = "current"

// Name returns the tier role
func (s *Storage) Name() models.Tier {
	return s.name
}

// Write stores snap in one transaction, rejecting versions older than the stored one
func (s *Storage) Write(ctx context.Context, snap *models.Snapshot) error {
	payload, err := storage.Encode(snap)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", storage.ErrUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current []byte
	err = tx.QueryRowContext(ctx,
		`SELECT payload FROM content_snapshots WHERE slot = ?`, snapshotSlot,
	).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: read current snapshot: %v", storage.ErrUnavailable, err)
	}

	if err := storage.CheckVersion(current, snap, false); err != nil {
		return err
	}

	query := `
		INSERT INTO content_snapshots (slot, version, timestamp, origin, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			version = excluded.version,
			timestamp = excluded.timestamp,
			origin = excluded.origin,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query,
		snapshotSlot,
		snap.Version,
		snap.Timestamp,
		string(snap.Origin),
		string(payload),
		time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("%w: upsert snapshot: %v", storage.ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", storage.ErrUnavailable, err)
	}

	return nil
}

// Read returns the stored snapshot
func (s *Storage) Read(ctx context.Context) (*models.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM content_snapshots WHERE slot = ?`, snapshotSlot,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	return storage.Decode(payload, false)
}

// Clear removes the stored snapshot
func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM content_snapshots WHERE slot = ?`, snapshotSlot); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}
