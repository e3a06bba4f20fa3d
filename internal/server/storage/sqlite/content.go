package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/sitekeeper/internal/models"
	"github.com/iudanet/sitekeeper/internal/server/storage"
)

var _ storage.ContentStorage = (*Storage)(nil)

// GetAll returns every stored field value and the latest modification time
func (s *Storage) GetAll(ctx context.Context) (map[string]string, time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT field_name, value, updated_at FROM content_fields`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query content: %w", err)
	}
	defer rows.Close()

	content := make(map[string]string)
	var latest int64
	for rows.Next() {
		var (
			name, value string
			updatedAt   int64
		)
		if err := rows.Scan(&name, &value, &updatedAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan field: %w", err)
		}
		content[name] = value
		latest = max(latest, updatedAt)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to iterate content: %w", err)
	}

	if latest == 0 {
		return content, time.Time{}, nil
	}
	return content, time.UnixMilli(latest), nil
}

// SaveFields upserts fields in a single transaction
func (s *Storage) SaveFields(ctx context.Context, fields []storage.Field) error {
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO content_fields (field_name, value, format, source, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(field_name) DO UPDATE SET
			value = excluded.value,
			format = excluded.format,
			source = excluded.source,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, f := range fields {
		format := f.Format
		if format == "" {
			format = models.FormatPlain
		}
		updatedAt := f.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, f.Name, f.Value, string(format), f.Source, updatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("failed to save field %q: %w", f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
