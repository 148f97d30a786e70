package service

import (
	"context"
	"time"

	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/internal/infrastructure/audit"
	"github.com/healthcoresys/core/internal/infrastructure/crypto"
	"github.com/healthcoresys/core/internal/infrastructure/monitoring"
	"github.com/healthcoresys/core/pkg/constants"
	"github.com/healthcoresys/core/pkg/logger"
)

// KeyService fronts key lifecycle operations for the admin CLI. Every
// mutation leaves an audit entry.
type KeyService struct {
	rotator *crypto.Rotator
	auditor *audit.Recorder
	metrics *monitoring.Metrics
	log     logger.Logger
}

// NewKeyService wires the key lifecycle operations. metrics may be nil when
// the caller is a one-shot CLI process.
func NewKeyService(rotator *crypto.Rotator, auditor *audit.Recorder, metrics *monitoring.Metrics, log logger.Logger) *KeyService {
	return &KeyService{
		rotator: rotator,
		auditor: auditor,
		metrics: metrics,
		log:     log.WithComponent("key_service"),
	}
}

// Rotate generates and publishes a new signing key.
func (s *KeyService) Rotate(ctx context.Context, actor string) (*crypto.RotationResult, error) {
	result, err := s.rotator.Rotate(ctx)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.KeyRotations.Inc()
	}
	s.auditor.Record(ctx, &models.AuditEntry{
		ActorID:  actor,
		Action:   constants.AuditActionKeyRotate,
		Resource: "key/" + result.KID,
		Details: map[string]interface{}{
			"storage":  string(result.Storage),
			"keyCount": len(result.KeySet.Keys),
		},
	})
	return result, nil
}

// Prune removes a superseded key after its grace period.
func (s *KeyService) Prune(ctx context.Context, actor, kid string, grace time.Duration) error {
	if err := s.rotator.Prune(ctx, kid, grace); err != nil {
		return err
	}
	s.auditor.Record(ctx, &models.AuditEntry{
		ActorID:  actor,
		Action:   constants.AuditActionKeyPrune,
		Resource: "key/" + kid,
		Details: map[string]interface{}{
			"grace": grace.String(),
		},
	})
	return nil
}
