package crypto

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/internal/infrastructure/kms"
	"github.com/healthcoresys/core/pkg/logger"
)

func TestRotateAppendsExactlyOneKey(t *testing.T) {
	registry := NewMemoryRegistry()
	rotator := NewRotator(registry, nil, "", logger.NewNop())

	first, err := rotator.Rotate(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.KeySet.Keys, 1)
	assert.True(t, strings.HasPrefix(first.KID, "hc-core-key-"))

	second, err := rotator.Rotate(context.Background())
	require.NoError(t, err)
	assert.Len(t, second.KeySet.Keys, 2)

	// Earlier keys survive untouched, in order.
	assert.Equal(t, first.KID, second.KeySet.Keys[0].Kid)
	assert.Equal(t, second.KID, second.KeySet.Keys[1].Kid)
}

func TestRotateInlineReturnsPrivateMaterialOnce(t *testing.T) {
	rotator := NewRotator(NewMemoryRegistry(), nil, "", logger.NewNop())

	result, err := rotator.Rotate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StorageInline, result.Storage)
	assert.Contains(t, result.PrivatePEM, "PRIVATE KEY")

	key, err := kms.ParsePrivateKeyPEM(result.PrivatePEM)
	require.NoError(t, err)

	pub, err := PublicKeyFromJWK(result.KeySet.Keys[0])
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey.N, pub.N)
}

func TestRotatePersistsToSecretStore(t *testing.T) {
	store := newMemorySecretStore()
	rotator := NewRotator(NewMemoryRegistry(), store, "secret/broker/signing", logger.NewNop())

	result, err := rotator.Rotate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StorageSecretStore, result.Storage)
	assert.Equal(t, "secret/broker/signing", result.StorageRef)
	assert.Empty(t, result.PrivatePEM, "persisted material must not also be returned inline")

	env, err := store.Fetch(context.Background(), "secret/broker/signing")
	require.NoError(t, err)
	assert.Equal(t, result.KID, env.KeyID)
	assert.Contains(t, env.PEM(), "PRIVATE KEY")
}

func TestRotateRecordsStorageSource(t *testing.T) {
	registry := NewMemoryRegistry()
	rotator := NewRotator(registry, newMemorySecretStore(), "ref-1", logger.NewNop())

	result, err := rotator.Rotate(context.Background())
	require.NoError(t, err)
	_, err = rotator.Rotate(context.Background())
	require.NoError(t, err)

	records, err := registry.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, result.KID, records[0].KID)
	assert.Equal(t, models.StorageSecretStore, records[0].Storage)
	assert.Equal(t, "ref-1", records[0].StorageRef)
	assert.NotNil(t, records[0].SupersededAt, "first key is superseded by the second rotation")
	assert.Nil(t, records[1].SupersededAt)
}

func TestRotateRefusesToPublishMalformedSet(t *testing.T) {
	registry := NewMemoryRegistry()
	broken := &models.KeySet{Keys: []models.JWK{{Kty: "RSA", Kid: "hc-core-key-bad"}}}
	require.NoError(t, registry.SaveKeySet(context.Background(), broken))

	rotator := NewRotator(registry, nil, "", logger.NewNop())
	_, err := rotator.Rotate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")

	// The broken set is never extended.
	set, err := registry.KeySet(context.Background())
	require.NoError(t, err)
	assert.Len(t, set.Keys, 1)
}

func TestMintedTokenVerifiesAgainstPublishedSet(t *testing.T) {
	rotator := NewRotator(NewMemoryRegistry(), nil, "", logger.NewNop())

	result, err := rotator.Rotate(context.Background())
	require.NoError(t, err)

	key, err := kms.ParsePrivateKeyPEM(result.PrivatePEM)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{Subject: "s"})
	token.Header["kid"] = result.KID
	raw, err := token.SignedString(key)
	require.NoError(t, err)

	jwk, ok := result.KeySet.Lookup(result.KID)
	require.True(t, ok)
	pub, err := PublicKeyFromJWK(jwk)
	require.NoError(t, err)

	parsed, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return pub, nil },
		jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
}

func TestPruneRefusesActiveKey(t *testing.T) {
	registry := NewMemoryRegistry()
	rotator := NewRotator(registry, nil, "", logger.NewNop())

	_, err := rotator.Rotate(context.Background())
	require.NoError(t, err)
	active, err := rotator.Rotate(context.Background())
	require.NoError(t, err)

	err = rotator.Prune(context.Background(), active.KID, 2*time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "active")
}

func TestPruneRefusesShortGrace(t *testing.T) {
	rotator := NewRotator(NewMemoryRegistry(), nil, "", logger.NewNop())
	_, err := rotator.Rotate(context.Background())
	require.NoError(t, err)

	err = rotator.Prune(context.Background(), "whatever", 5*time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grace")
}

func TestPruneRefusesInsideGracePeriod(t *testing.T) {
	registry := NewMemoryRegistry()
	rotator := NewRotator(registry, nil, "", logger.NewNop())

	old, err := rotator.Rotate(context.Background())
	require.NoError(t, err)
	_, err = rotator.Rotate(context.Background())
	require.NoError(t, err)

	// Superseded moments ago; a token signed under it may live for up to
	// the grace period.
	err = rotator.Prune(context.Background(), old.KID, 2*time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grace period")
}

func TestPruneRemovesAgedKeyAndFailsVerification(t *testing.T) {
	registry := NewMemoryRegistry()
	rotator := NewRotator(registry, nil, "", logger.NewNop())

	old, err := rotator.Rotate(context.Background())
	require.NoError(t, err)
	_, err = rotator.Rotate(context.Background())
	require.NoError(t, err)

	// Age the supersession past any grace period.
	rotator.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	err = rotator.Prune(context.Background(), old.KID, 2*time.Hour)
	require.NoError(t, err)

	set, err := registry.KeySet(context.Background())
	require.NoError(t, err)
	assert.False(t, set.Contains(old.KID))
	assert.Len(t, set.Keys, 1)

	records, err := registry.Records(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records[0].PrunedAt, "prune is recorded, not erased")
}

func TestPruneRefusesLastKey(t *testing.T) {
	rotator := NewRotator(NewMemoryRegistry(), nil, "", logger.NewNop())

	only, err := rotator.Rotate(context.Background())
	require.NoError(t, err)

	rotator.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	err = rotator.Prune(context.Background(), only.KID, 2*time.Hour)
	require.Error(t, err)
}

func TestPruneUnknownKid(t *testing.T) {
	rotator := NewRotator(NewMemoryRegistry(), nil, "", logger.NewNop())
	_, err := rotator.Rotate(context.Background())
	require.NoError(t, err)
	_, err = rotator.Rotate(context.Background())
	require.NoError(t, err)

	err = rotator.Prune(context.Background(), "hc-core-key-nope", 2*time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the key set")
}

type memorySecretStore struct {
	envelopes map[string]*kms.SecretEnvelope
}

func newMemorySecretStore() *memorySecretStore {
	return &memorySecretStore{envelopes: make(map[string]*kms.SecretEnvelope)}
}

func (m *memorySecretStore) Fetch(_ context.Context, ref string) (*kms.SecretEnvelope, error) {
	env, ok := m.envelopes[ref]
	if !ok {
		return nil, assert.AnError
	}
	return env, nil
}

func (m *memorySecretStore) Store(_ context.Context, ref string, env *kms.SecretEnvelope) error {
	m.envelopes[ref] = env
	return nil
}
