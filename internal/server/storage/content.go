package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/sitekeeper/internal/models"
)

// MaxValueBytes is the largest value accepted for a single field
const MaxValueBytes = 64 << 10

// Field is one stored site content field
type Field struct {
	UpdatedAt time.Time     // UpdatedAt время последнего изменения
	Name      string        // Name имя поля
	Value     string        // Value текущее значение
	Format    models.Format // Format формат значения
	Source    string        // Source идентификатор редактора
}

// Validate checks a field before it reaches storage
func (f Field) Validate() error {
	if f.Name == "" {
		return ErrEmptyFieldName
	}
	if len(f.Value) > MaxValueBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrValueTooLarge, len(f.Value), MaxValueBytes)
	}
	return nil
}

// ContentStorage defines interface for site content persistence
type ContentStorage interface {
	// GetAll returns every stored field value and the latest modification time.
	// An empty store returns an empty map and the zero time.
	GetAll(ctx context.Context) (map[string]string, time.Time, error)

	// SaveFields upserts fields in a single transaction.
	// Either every field is stored or none is.
	SaveFields(ctx context.Context, fields []Field) error
}
