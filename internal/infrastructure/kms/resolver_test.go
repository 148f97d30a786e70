package kms

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcoresys/core/internal/config"
	"github.com/healthcoresys/core/pkg/errors"
	"github.com/healthcoresys/core/pkg/logger"
)

type fakeSecretStore struct {
	envelopes map[string]*SecretEnvelope
	fetchErr  error
	fetches   int
}

func (f *fakeSecretStore) Fetch(_ context.Context, ref string) (*SecretEnvelope, error) {
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	env, ok := f.envelopes[ref]
	if !ok {
		return nil, fmt.Errorf("no secret at %s", ref)
	}
	return env, nil
}

func (f *fakeSecretStore) Store(_ context.Context, ref string, env *SecretEnvelope) error {
	if f.envelopes == nil {
		f.envelopes = make(map[string]*SecretEnvelope)
	}
	f.envelopes[ref] = env
	return nil
}

func testKeyPEM(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemStr, err := EncodePrivateKeyPEM(key)
	require.NoError(t, err)
	return pemStr, key
}

func TestResolverInlineWinsVerbatim(t *testing.T) {
	pemStr, want := testKeyPEM(t)

	store := &fakeSecretStore{}
	r := NewResolver(&config.JWTConfig{InlinePrivatePEM: pemStr}, store, logger.NewNop())

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.N, got.N)
	assert.Zero(t, store.fetches, "inline material must not touch the secret store")
}

func TestResolverFetchesFromSecretStore(t *testing.T) {
	pemStr, want := testKeyPEM(t)

	store := &fakeSecretStore{envelopes: map[string]*SecretEnvelope{
		"secret/broker/signing": NewSecretEnvelope(pemStr, "kid-1", time.Now()),
	}}
	r := NewResolver(&config.JWTConfig{SecretRef: "secret/broker/signing"}, store, logger.NewNop())

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.N, got.N)
}

func TestResolverCachesAcrossCalls(t *testing.T) {
	pemStr, _ := testKeyPEM(t)

	store := &fakeSecretStore{envelopes: map[string]*SecretEnvelope{
		"ref": NewSecretEnvelope(pemStr, "kid-1", time.Now()),
	}}
	r := NewResolver(&config.JWTConfig{SecretRef: "ref"}, store, logger.NewNop())

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	_, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.fetches)

	r.Invalidate()
	_, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.fetches)
}

func TestResolverStoreFailureIsKeyUnavailable(t *testing.T) {
	store := &fakeSecretStore{fetchErr: fmt.Errorf("connection refused")}
	r := NewResolver(&config.JWTConfig{SecretRef: "ref"}, store, logger.NewNop())

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeKeyUnavailable))
}

func TestResolverNoSourceConfigured(t *testing.T) {
	r := NewResolver(&config.JWTConfig{}, nil, logger.NewNop())

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeKeyUnavailable))
}

func TestResolverRejectsGarbagePEM(t *testing.T) {
	r := NewResolver(&config.JWTConfig{InlinePrivatePEM: "not a key"}, nil, logger.NewNop())

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeKeyUnavailable))
}

func TestSecretEnvelopeFieldDrift(t *testing.T) {
	cases := []struct {
		name string
		env  SecretEnvelope
	}{
		{"canonical", SecretEnvelope{PrivateKey: "pem-a"}},
		{"snake_case", SecretEnvelope{PrivateKeyAlt: "pem-a"}},
		{"pem_suffix", SecretEnvelope{PrivateKeyPem: "pem-a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, "pem-a", tc.env.PEM())
		})
	}
}
