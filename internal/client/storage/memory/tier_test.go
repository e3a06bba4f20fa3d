package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/models"
)

func snapshot(version int64, data models.ContentRecord) *models.Snapshot {
	return &models.Snapshot{
		Data:      data,
		Origin:    models.OriginTest,
		Timestamp: 1700000000000 + version,
		Version:   version,
	}
}

func TestTier_WriteRead(t *testing.T) {
	ctx := context.Background()
	tier := New(models.TierEmergency)
	assert.Equal(t, models.TierEmergency, tier.Name())

	_, err := tier.Read(ctx)
	assert.ErrorIs(t, err, storage.ErrEmpty)

	want := snapshot(1, models.ContentRecord{"hero_title": "Hello"})
	require.NoError(t, tier.Write(ctx, want))

	got, err := tier.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTier_VersionMonotonicity(t *testing.T) {
	ctx := context.Background()
	tier := New(models.TierEmergency)

	require.NoError(t, tier.Write(ctx, snapshot(5, models.ContentRecord{"a": "5"})))
	require.NoError(t, tier.Write(ctx, snapshot(5, models.ContentRecord{"a": "5b"})))

	err := tier.Write(ctx, snapshot(4, models.ContentRecord{"a": "4"}))
	assert.ErrorIs(t, err, storage.ErrStaleVersion)

	got, err := tier.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5b", got.Data["a"])

	// После явного сброса старая версия снова допустима
	require.NoError(t, tier.Clear(ctx))
	require.NoError(t, tier.Write(ctx, snapshot(1, models.ContentRecord{"a": "1"})))
}

func TestTier_Quota(t *testing.T) {
	ctx := context.Background()
	tier := New(models.TierEmergency, WithQuota(64))

	err := tier.Write(ctx, snapshot(1, models.ContentRecord{"body": string(make([]byte, 128))}))
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = tier.Read(ctx)
	assert.ErrorIs(t, err, storage.ErrEmpty)
}

func TestTier_SeedCorrupt(t *testing.T) {
	ctx := context.Background()
	tier := New(models.TierPrimary)
	tier.Seed([]byte("{corrupt"))

	_, err := tier.Read(ctx)
	assert.ErrorIs(t, err, storage.ErrCorrupt)

	// Поврежденные данные не блокируют запись
	require.NoError(t, tier.Write(ctx, snapshot(1, models.ContentRecord{"a": "1"})))
	assert.Contains(t, string(tier.Raw()), `"version":1`)
}

func TestTier_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tier := New(models.TierEmergency)
	assert.ErrorIs(t, tier.Write(ctx, snapshot(1, nil)), context.Canceled)

	_, err := tier.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
