package crypto

import (
	"context"
	"time"

	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/pkg/logger"
)

// RotationWatcher polls the rotation log so a running server picks up
// rotations performed by the admin CLI without a restart.
type RotationWatcher struct {
	registry KeyRegistry
	interval time.Duration
	log      logger.Logger
}

// NewRotationWatcher creates a watcher over the given registry.
func NewRotationWatcher(registry KeyRegistry, interval time.Duration, log logger.Logger) *RotationWatcher {
	return &RotationWatcher{
		registry: registry,
		interval: interval,
		log:      log.WithComponent("rotation_watcher"),
	}
}

// Run blocks until ctx is cancelled, calling onChange with the new key id
// whenever the active rotation record no longer matches current. Registry
// read failures are logged and retried on the next tick.
func (w *RotationWatcher) Run(ctx context.Context, current string, onChange func(kid string)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			kid, err := w.activeKID(ctx)
			if err != nil {
				w.log.Warn("reading rotation log failed", logger.Err(err))
				continue
			}
			if kid == "" || kid == current {
				continue
			}
			w.log.Info("active signing key changed",
				logger.String("old_kid", current),
				logger.String("new_kid", kid))
			current = kid
			onChange(kid)
		}
	}
}

func (w *RotationWatcher) activeKID(ctx context.Context) (string, error) {
	records, err := w.registry.Records(ctx)
	if err != nil {
		return "", err
	}
	return activeRecordKID(records), nil
}

func activeRecordKID(records []models.RotationRecord) string {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Active() {
			return records[i].KID
		}
	}
	return ""
}
