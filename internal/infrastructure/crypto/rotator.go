package crypto

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/internal/infrastructure/kms"
	"github.com/healthcoresys/core/pkg/constants"
	"github.com/healthcoresys/core/pkg/errors"
	"github.com/healthcoresys/core/pkg/logger"
)

// RotationResult describes a completed rotation. When the new key was not
// persisted to a secret store, PrivatePEM carries the material for the
// operator to install; it is never logged.
type RotationResult struct {
	KID        string
	Storage    models.StorageSource
	StorageRef string
	PrivatePEM string
	CreatedAt  time.Time
	KeySet     *models.KeySet
}

// Rotator generates new signing keys and retires old ones. All mutation of
// the published key set goes through it, one operation at a time.
type Rotator struct {
	mu        sync.Mutex
	registry  KeyRegistry
	secrets   kms.SecretStore
	secretRef string
	maxTTL    time.Duration
	log       logger.Logger
	now       func() time.Time
}

// NewRotator creates a rotator. secrets may be nil, in which case new keys
// are returned inline instead of being written to a secret store.
func NewRotator(registry KeyRegistry, secrets kms.SecretStore, secretRef string, log logger.Logger) *Rotator {
	return &Rotator{
		registry:  registry,
		secrets:   secrets,
		secretRef: secretRef,
		maxTTL:    constants.AccessTokenMaxTTL,
		log:       log.WithComponent("key_rotator"),
		now:       time.Now,
	}
}

// Rotate generates a fresh RSA keypair, appends its public JWK to the key
// set, and records where the private half went. Existing keys are never
// touched; verifiers keep working against tokens signed by the old key.
func (r *Rotator) Rotate(ctx context.Context) (*RotationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, err := r.registry.KeySet(ctx)
	if err != nil {
		return nil, errors.ErrInternal("loading key set failed").WithCause(err)
	}
	records, err := r.registry.Records(ctx)
	if err != nil {
		return nil, errors.ErrInternal("loading rotation records failed").WithCause(err)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, constants.SigningKeyBits)
	if err != nil {
		return nil, errors.ErrInternal("RSA key generation failed").WithCause(err)
	}

	createdAt := r.now().UTC()
	kid, err := newKeyID(createdAt)
	if err != nil {
		return nil, errors.ErrInternal("key id generation failed").WithCause(err)
	}
	if set.Contains(kid) {
		// Unix-millisecond timestamp plus 8 random hex characters colliding
		// means something is badly wrong with the clock or entropy source.
		return nil, errors.ErrInternal(fmt.Sprintf("generated key id %q already present in key set", kid))
	}

	pemStr, err := kms.EncodePrivateKeyPEM(privateKey)
	if err != nil {
		return nil, errors.ErrInternal("private key encoding failed").WithCause(err)
	}

	result := &RotationResult{
		KID:       kid,
		Storage:   models.StorageInline,
		CreatedAt: createdAt,
	}
	if r.secrets != nil && r.secretRef != "" {
		envelope := kms.NewSecretEnvelope(pemStr, kid, createdAt)
		if err := r.secrets.Store(ctx, r.secretRef, envelope); err != nil {
			return nil, errors.ErrInternal("persisting private key to secret store failed").WithCause(err)
		}
		result.Storage = models.StorageSecretStore
		result.StorageRef = r.secretRef
	} else {
		result.PrivatePEM = pemStr
	}

	set.Append(NewJWK(&privateKey.PublicKey, kid))

	for i := range records {
		if records[i].Active() {
			records[i].SupersededAt = &createdAt
		}
	}
	records = append(records, models.RotationRecord{
		KID:        kid,
		Storage:    result.Storage,
		StorageRef: result.StorageRef,
		CreatedAt:  createdAt,
	})

	// An appended set must be well formed before anything reads it.
	if violations := ValidateKeySet(set); len(violations) > 0 {
		return nil, errors.ErrInternal(fmt.Sprintf("rotated key set failed validation: %v", violations))
	}

	if err := r.registry.SaveKeySet(ctx, set); err != nil {
		return nil, errors.ErrInternal("saving key set failed").WithCause(err)
	}
	if err := r.registry.SaveRecords(ctx, records); err != nil {
		return nil, errors.ErrInternal("saving rotation records failed").WithCause(err)
	}

	r.log.Info("signing key rotated",
		logger.String("kid", kid),
		logger.String("storage", string(result.Storage)),
		logger.Int("key_count", len(set.Keys)))

	result.KeySet = set
	return result, nil
}

// Prune removes a superseded key from the published set once no token it
// signed can still be in flight. The active key is never prunable, and the
// grace period must cover the longest token lifetime the broker can issue.
func (r *Rotator) Prune(ctx context.Context, kid string, grace time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if grace < r.maxTTL {
		return errors.ErrValidation(fmt.Sprintf("grace period %s is shorter than the maximum token lifetime %s", grace, r.maxTTL))
	}

	set, err := r.registry.KeySet(ctx)
	if err != nil {
		return errors.ErrInternal("loading key set failed").WithCause(err)
	}
	if !set.Contains(kid) {
		return errors.ErrValidation(fmt.Sprintf("key %q is not in the key set", kid))
	}
	if len(set.Keys) <= 1 {
		return errors.ErrValidation("refusing to prune the last key in the set")
	}

	records, err := r.registry.Records(ctx)
	if err != nil {
		return errors.ErrInternal("loading rotation records failed").WithCause(err)
	}

	now := r.now().UTC()
	var record *models.RotationRecord
	for i := range records {
		if records[i].KID == kid {
			record = &records[i]
			break
		}
	}
	if record != nil {
		if record.Active() {
			return errors.ErrValidation(fmt.Sprintf("key %q is the active signing key", kid))
		}
		if record.SupersededAt != nil && now.Sub(*record.SupersededAt) < grace {
			return errors.ErrValidation(fmt.Sprintf("key %q was superseded %s ago, inside the %s grace period",
				kid, now.Sub(*record.SupersededAt).Round(time.Second), grace))
		}
		record.PrunedAt = &now
	} else {
		// Keys present in the set without a rotation record predate the
		// record log; treat the newest key as active and refuse it.
		if set.Keys[len(set.Keys)-1].Kid == kid {
			return errors.ErrValidation(fmt.Sprintf("key %q appears to be the active signing key", kid))
		}
	}

	if !set.Remove(kid) {
		return errors.ErrInternal(fmt.Sprintf("key %q vanished from the key set during prune", kid))
	}

	if err := r.registry.SaveKeySet(ctx, set); err != nil {
		return errors.ErrInternal("saving key set failed").WithCause(err)
	}
	if err := r.registry.SaveRecords(ctx, records); err != nil {
		return errors.ErrInternal("saving rotation records failed").WithCause(err)
	}

	r.log.Info("signing key pruned",
		logger.String("kid", kid),
		logger.Int("key_count", len(set.Keys)))
	return nil
}

func newKeyID(at time.Time) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d-%s", constants.KeyIDPrefix, at.UnixMilli(), hex.EncodeToString(suffix)), nil
}
