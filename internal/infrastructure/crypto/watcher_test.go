package crypto

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/pkg/logger"
)

func TestWatcherReportsNewActiveKey(t *testing.T) {
	registry := NewMemoryRegistry()
	rotator := NewRotator(registry, nil, "", logger.NewNop())

	first, err := rotator.Rotate(context.Background())
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := NewRotationWatcher(registry, 5*time.Millisecond, logger.NewNop())
	go watcher.Run(ctx, first.KID, func(kid string) {
		mu.Lock()
		seen = append(seen, kid)
		mu.Unlock()
	})

	second, err := rotator.Rotate(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{second.KID}, seen, "only the change fires, once")
}

func TestWatcherStaysQuietWithoutRotation(t *testing.T) {
	registry := NewMemoryRegistry()
	rotator := NewRotator(registry, nil, "", logger.NewNop())

	only, err := rotator.Rotate(context.Background())
	require.NoError(t, err)

	fired := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := NewRotationWatcher(registry, 5*time.Millisecond, logger.NewNop())
	go watcher.Run(ctx, only.KID, func(kid string) { fired <- kid })

	select {
	case kid := <-fired:
		t.Fatalf("watcher reported a change to %q with no rotation", kid)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestActiveRecordKIDSkipsRetiredRecords(t *testing.T) {
	now := time.Now().UTC()
	records := []models.RotationRecord{
		{KID: "k1", CreatedAt: now, SupersededAt: &now},
		{KID: "k2", CreatedAt: now, PrunedAt: &now},
		{KID: "k3", CreatedAt: now},
	}
	assert.Equal(t, "k3", activeRecordKID(records))
	assert.Equal(t, "", activeRecordKID(records[:2]))
	assert.Equal(t, "", activeRecordKID(nil))
}
