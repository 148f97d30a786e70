package idp

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/healthcoresys/core/internal/config"
	"github.com/healthcoresys/core/internal/infrastructure/monitoring"
	"github.com/healthcoresys/core/pkg/constants"
	"github.com/healthcoresys/core/pkg/errors"
	"github.com/healthcoresys/core/pkg/logger"
)

// Identity is the caller identity established from a verified upstream token.
type Identity struct {
	Subject  string
	TenantID string
	Scope    string
}

// Verifier validates bearer tokens minted by the upstream identity
// provider. Every failure mode collapses to the same authentication error;
// the distinguishing detail is logged, never returned to the caller.
type Verifier struct {
	keys     *JWKSCache
	issuer   string
	audience string
	log      logger.Logger
	parser   *jwt.Parser
}

// NewVerifier creates a verifier for the configured upstream issuer.
// metrics may be nil in tests.
func NewVerifier(cfg *config.UpstreamConfig, metrics *monitoring.Metrics, log logger.Logger) *Verifier {
	return &Verifier{
		keys:     NewJWKSCache(cfg, metrics, log),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		log:      log.WithComponent("upstream_verifier"),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{constants.SigningAlgorithm}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
		),
	}
}

type upstreamClaims struct {
	jwt.RegisteredClaims
	Scope    string `json:"scope"`
	TenantID string `json:"tenantId"`
}

// Verify checks the Authorization header value and returns the caller
// identity. The header must carry a Bearer token signed by a current
// upstream key with the expected issuer and audience.
func (v *Verifier) Verify(ctx context.Context, authorization string) (*Identity, error) {
	raw, ok := stripBearer(authorization)
	if !ok {
		return nil, errors.ErrUnauthenticated()
	}

	claims := &upstreamClaims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New(errors.CodeUnauthenticated, 401, "token header has no key id")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil || !token.Valid {
		v.log.Debug("upstream token rejected", logger.Err(err))
		return nil, errors.ErrUnauthenticated()
	}
	if claims.Subject == "" {
		v.log.Debug("upstream token rejected", logger.String("reason", "empty subject"))
		return nil, errors.ErrUnauthenticated()
	}

	return &Identity{
		Subject:  claims.Subject,
		TenantID: claims.TenantID,
		Scope:    claims.Scope,
	}, nil
}

// SubjectHint extracts the subject from a bearer token without verifying
// it. The hint keys per-identity admission counters before verification
// runs; it must never be used as an authenticated identity.
func SubjectHint(authorization string) (string, bool) {
	raw, ok := stripBearer(authorization)
	if !ok {
		return "", false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

func stripBearer(authorization string) (string, bool) {
	const prefix = "Bearer "
	if len(authorization) <= len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(authorization[len(prefix):]), true
}
