package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/models"
)

// setupTestStorage создает in-memory SQLite хранилище для тестов
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), models.TierPrimary, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func testSnapshot(version int64, data models.ContentRecord) *models.Snapshot {
	return &models.Snapshot{
		Data:      data,
		Origin:    models.OriginRemoteSync,
		Timestamp: 1700000000000 + version,
		Version:   version,
	}
}

func TestTier_WriteRead(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)
	assert.Equal(t, models.TierPrimary, s.Name())

	_, err := s.Read(ctx)
	assert.ErrorIs(t, err, storage.ErrEmpty)

	want := testSnapshot(1, models.ContentRecord{"hero_title": "Hello", "about": "**bold**"})
	require.NoError(t, s.Write(ctx, want))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Перезапись новой версией
	next := testSnapshot(2, models.ContentRecord{"hero_title": "Hello again"})
	require.NoError(t, s.Write(ctx, next))

	got, err = s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	var rows int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_snapshots`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestTier_VersionMonotonicity(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	require.NoError(t, s.Write(ctx, testSnapshot(10, models.ContentRecord{"a": "10"})))

	err := s.Write(ctx, testSnapshot(9, models.ContentRecord{"a": "9"}))
	assert.ErrorIs(t, err, storage.ErrStaleVersion)

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10", got.Data["a"])

	var version int64
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT version FROM content_snapshots`).Scan(&version))
	assert.Equal(t, int64(10), version)
}

func TestTier_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	require.NoError(t, s.Write(ctx, testSnapshot(3, models.ContentRecord{"a": "1"})))
	_, err := s.db.ExecContext(ctx, `UPDATE content_snapshots SET payload = '{"data":'`)
	require.NoError(t, err)

	_, err = s.Read(ctx)
	assert.ErrorIs(t, err, storage.ErrCorrupt)

	// Поврежденный snapshot не блокирует запись более старой версии
	require.NoError(t, s.Write(ctx, testSnapshot(1, models.ContentRecord{"a": "restored"})))
	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "restored", got.Data["a"])
}

func TestTier_Clear(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	require.NoError(t, s.Write(ctx, testSnapshot(4, models.ContentRecord{"a": "1"})))
	require.NoError(t, s.Clear(ctx))

	_, err := s.Read(ctx)
	assert.ErrorIs(t, err, storage.ErrEmpty)

	require.NoError(t, s.Write(ctx, testSnapshot(1, models.ContentRecord{"a": "1"})))
}

func TestTier_FileDatabasePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "primary.db")

	s, err := New(ctx, models.TierPrimary, path)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, testSnapshot(2, models.ContentRecord{"a": "2"})))
	require.NoError(t, s.Close())

	// Повторное открытие не должно повторно применять миграции с ошибкой
	reopened, err := New(ctx, models.TierPrimary, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}

func TestTier_ClosedDatabase(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, models.TierPrimary, ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Write(ctx, testSnapshot(1, nil)), storage.ErrUnavailable)
	_, err = s.Read(ctx)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
