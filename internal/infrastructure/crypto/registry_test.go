package crypto

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcoresys/core/internal/domain/models"
)

func TestFileRegistryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwks.json")
	registry := NewFileRegistry(path)
	ctx := context.Background()

	// Missing files read as empty, not as errors.
	set, err := registry.KeySet(ctx)
	require.NoError(t, err)
	assert.Empty(t, set.Keys)
	records, err := registry.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	set.Append(validTestJWK(t, "k1"))
	require.NoError(t, registry.SaveKeySet(ctx, set))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, registry.SaveRecords(ctx, []models.RotationRecord{{
		KID:       "k1",
		Storage:   models.StorageInline,
		CreatedAt: now,
	}}))

	reread := NewFileRegistry(path)
	gotSet, err := reread.KeySet(ctx)
	require.NoError(t, err)
	require.Len(t, gotSet.Keys, 1)
	assert.Equal(t, "k1", gotSet.Keys[0].Kid)

	gotRecords, err := reread.Records(ctx)
	require.NoError(t, err)
	require.Len(t, gotRecords, 1)
	assert.Equal(t, models.StorageInline, gotRecords[0].Storage)
	assert.True(t, gotRecords[0].CreatedAt.Equal(now))
}

func TestMemoryRegistryCopiesOnRead(t *testing.T) {
	registry := NewMemoryRegistry()
	ctx := context.Background()

	set, err := registry.KeySet(ctx)
	require.NoError(t, err)
	set.Append(validTestJWK(t, "k1"))

	// Mutating the returned set must not leak into the registry.
	fresh, err := registry.KeySet(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh.Keys)
}
