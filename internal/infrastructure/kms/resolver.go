package kms

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/healthcoresys/core/internal/config"
	"github.com/healthcoresys/core/pkg/errors"
	"github.com/healthcoresys/core/pkg/logger"
)

// resolverCacheKey is the single cache slot for the resolved private key.
// The cache is an optimization only: correctness holds if every call
// re-fetches from the secret store.
const resolverCacheKey = "active-private-key"

// Resolver obtains the current private signing key from exactly one of two
// sources, with fixed precedence: an inline PEM from configuration, else a
// secret-store reference. No other fallback exists; with neither configured
// every resolution fails with key_unavailable and minting is down.
type Resolver struct {
	inlinePEM string
	secretRef string
	store     SecretStore
	cache     *gocache.Cache
	log       logger.Logger
}

// NewResolver creates a key resolver. store may be nil when only the inline
// source is configured.
func NewResolver(cfg *config.JWTConfig, store SecretStore, log logger.Logger) *Resolver {
	return &Resolver{
		inlinePEM: cfg.InlinePrivatePEM,
		secretRef: cfg.SecretRef,
		store:     store,
		// Short TTL: a rotated key is picked up within a minute even if
		// the watcher's invalidation never fires.
		cache:     gocache.New(1*time.Minute, 5*time.Minute),
		log:       log.WithComponent("key_resolver"),
	}
}

// Resolve returns the active private signing key.
func (r *Resolver) Resolve(ctx context.Context) (*rsa.PrivateKey, error) {
	if key, found := r.cache.Get(resolverCacheKey); found {
		return key.(*rsa.PrivateKey), nil
	}

	pemData, err := r.resolvePEM(ctx)
	if err != nil {
		return nil, err
	}

	key, err := ParsePrivateKeyPEM(pemData)
	if err != nil {
		return nil, errors.ErrKeyUnavailable("signing key material is not a valid private key").WithCause(err)
	}

	r.cache.Set(resolverCacheKey, key, gocache.DefaultExpiration)
	return key, nil
}

// Invalidate drops the cached key. The rotation watcher calls this when it
// detects a rotation so the next mint resolves fresh material.
func (r *Resolver) Invalidate() {
	r.cache.Delete(resolverCacheKey)
}

func (r *Resolver) resolvePEM(ctx context.Context) (string, error) {
	// Inline configuration wins; the development/low-security path.
	if r.inlinePEM != "" {
		return r.inlinePEM, nil
	}

	if r.secretRef != "" {
		if r.store == nil {
			return "", errors.ErrKeyUnavailable("secret reference configured but no secret store available")
		}
		env, err := r.store.Fetch(ctx, r.secretRef)
		if err != nil {
			r.log.Error("secret store fetch failed", err, logger.String("ref", r.secretRef))
			return "", errors.ErrKeyUnavailable("failed to fetch signing key from secret store").WithCause(err)
		}
		return env.PEM(), nil
	}

	return "", errors.ErrKeyUnavailable("no private signing key configured")
}

// ParsePrivateKeyPEM parses an RSA private key from PEM, accepting PKCS8
// (the canonical encoding) with a PKCS1 fallback for older material.
func ParsePrivateKeyPEM(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("PKCS8 key is not RSA")
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// EncodePrivateKeyPEM encodes an RSA private key as PKCS8 PEM.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("marshal private key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}
