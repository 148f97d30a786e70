package crypto

import (
	"context"
	"crypto/rsa"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/healthcoresys/core/internal/config"
	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/pkg/errors"
	"github.com/healthcoresys/core/pkg/logger"
)

// KeySource yields the active private signing key.
type KeySource interface {
	Resolve(ctx context.Context) (*rsa.PrivateKey, error)
}

// Signer mints the broker's short-lived access tokens. Every call produces a
// fresh signature and a fresh issued-at; nothing is cached or memoized. The
// active key id may be swapped at runtime when a rotation is detected.
type Signer struct {
	keys   KeySource
	issuer string
	ttl    time.Duration
	log    logger.Logger

	mu  sync.RWMutex
	kid string

	// now is swapped in tests to pin claim timestamps.
	now func() time.Time
}

// NewSigner creates a token signer bound to the active signing key id.
func NewSigner(cfg *config.JWTConfig, keys KeySource, log logger.Logger) *Signer {
	return &Signer{
		keys:   keys,
		kid:    cfg.SigningKID,
		issuer: cfg.Issuer,
		ttl:    cfg.TTL(),
		log:    log.WithComponent("token_signer"),
		now:    time.Now,
	}
}

// Mint builds and signs a token for the given subject. The audience is
// passed through exactly as supplied; issuer, issued-at, and expiry come
// from the signer, never from the caller.
func (s *Signer) Mint(ctx context.Context, subject, scope, audience, tenantID, patientID string) (string, error) {
	if s.ttl <= 0 {
		return "", errors.ErrSigningFailure("token TTL must be a positive number of seconds")
	}
	if subject == "" {
		return "", errors.ErrSigningFailure("token subject must not be empty")
	}

	privateKey, err := s.keys.Resolve(ctx)
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return "", err
		}
		return "", errors.ErrSigningFailure("signing key resolution failed").WithCause(err)
	}

	now := s.now().Truncate(time.Second)
	claims := &models.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Scope:     scope,
		TenantID:  tenantID,
		PatientID: patientID,
	}

	kid := s.ActiveKID()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(privateKey)
	if err != nil {
		s.log.Error("token signing failed", err, logger.String("kid", kid))
		return "", errors.ErrSigningFailure("token signing failed").WithCause(err)
	}

	return signed, nil
}

// TTL returns the configured token lifetime.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// ActiveKID returns the key id carried in every minted token's header.
func (s *Signer) ActiveKID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kid
}

// SetActiveKID installs a new signing key id. The rotation watcher calls
// this when it sees a rotation performed by the admin CLI.
func (s *Signer) SetActiveKID(kid string) {
	s.mu.Lock()
	s.kid = kid
	s.mu.Unlock()
}
