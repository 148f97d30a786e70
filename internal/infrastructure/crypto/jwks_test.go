package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcoresys/core/internal/domain/models"
)

func validTestJWK(t *testing.T, kid string) models.JWK {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return NewJWK(&key.PublicKey, kid)
}

func TestJWKRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := NewJWK(&key.PublicKey, "k1")
	pub, err := PublicKeyFromJWK(jwk)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey.N, pub.N)
	assert.Equal(t, key.PublicKey.E, pub.E)
}

func TestValidateKeySetAcceptsWellFormedSet(t *testing.T) {
	set := &models.KeySet{Keys: []models.JWK{
		validTestJWK(t, "k1"),
		validTestJWK(t, "k2"),
	}}
	assert.Empty(t, ValidateKeySet(set))
}

func TestValidateKeySetEmpty(t *testing.T) {
	assert.Equal(t, []string{"key set is empty"}, ValidateKeySet(&models.KeySet{}))
	assert.Equal(t, []string{"key set is empty"}, ValidateKeySet(nil))
}

func TestValidateKeySetAccumulatesAllViolations(t *testing.T) {
	bad := models.JWK{
		Kty:    "EC",
		Use:    "enc",
		KeyOps: []string{"sign"},
		Alg:    "ES256",
		Kid:    "",
		N:      "has+padding==",
		E:      "",
	}
	violations := ValidateKeySet(&models.KeySet{Keys: []models.JWK{bad}})

	// One violation per broken rule, not just the first.
	assert.Len(t, violations, 7)
	joined := ""
	for _, v := range violations {
		joined += v + "\n"
	}
	assert.Contains(t, joined, "missing kid")
	assert.Contains(t, joined, "invalid kty")
	assert.Contains(t, joined, "invalid use")
	assert.Contains(t, joined, "invalid alg")
	assert.Contains(t, joined, "key_ops")
	assert.Contains(t, joined, "not base64url")
	assert.Contains(t, joined, "missing e")
}

func TestValidateKeySetDuplicateKid(t *testing.T) {
	a := validTestJWK(t, "same")
	b := validTestJWK(t, "same")
	violations := ValidateKeySet(&models.KeySet{Keys: []models.JWK{a, b}})
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], `duplicate kid "same"`)
}

func TestValidateKeySetIsIdempotent(t *testing.T) {
	set := &models.KeySet{Keys: []models.JWK{
		validTestJWK(t, "k1"),
		{Kid: "broken"},
	}}
	first := ValidateKeySet(set)
	second := ValidateKeySet(set)
	assert.Equal(t, first, second)
}
