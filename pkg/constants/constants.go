// Package constants defines system-wide constants for the token broker.
package constants

import "time"

// ================================================================================
// Service identity
// ================================================================================

const (
	// ServiceName identifies this service in logs and metrics.
	ServiceName = "healthcore-broker"

	// DefaultIssuer is the issuer claim stamped into minted tokens unless overridden.
	DefaultIssuer = "https://core.healthcore.systems"

	// DefaultAudience is the audience minted tokens are scoped to.
	DefaultAudience = "https://api.corehealth.cloud"
)

// ================================================================================
// Token constants
// ================================================================================

const (
	// TokenTypeBearer is the token type returned with every minted token.
	TokenTypeBearer = "Bearer"

	// AccessTokenDefaultTTL is the default lifetime for minted access tokens.
	AccessTokenDefaultTTL = 300 * time.Second

	// AccessTokenMaxTTL bounds configurable token lifetimes. It is also the
	// floor for the key-pruning grace period: no key may be pruned while a
	// token signed under it could still be live.
	AccessTokenMaxTTL = 1 * time.Hour
)

// ================================================================================
// Signing key constants
// ================================================================================

const (
	// SigningAlgorithm is the only signature algorithm this service produces
	// or accepts for its own tokens.
	SigningAlgorithm = "RS256"

	// SigningKeyBits is the RSA modulus size for generated signing keys.
	SigningKeyBits = 2048

	// KeyIDPrefix prefixes every generated signing key id.
	KeyIDPrefix = "hc-core-key-"

	// JWKSWellKnownPath is the issuer-relative path where published key sets live.
	JWKSWellKnownPath = "/.well-known/jwks.json"

	// JWKSCacheMaxAge is the public cache lifetime of the JWKS document.
	// Minutes, not hours, so rotations propagate promptly.
	JWKSCacheMaxAge = 300 * time.Second
)

// ================================================================================
// Rate limiting
// ================================================================================

// RateLimitDimension tags an admission counter by what it keys on.
type RateLimitDimension string

const (
	// RateLimitDimensionUser keys admission by authenticated caller identity.
	RateLimitDimensionUser RateLimitDimension = "user"

	// RateLimitDimensionIP keys admission by network origin.
	RateLimitDimensionIP RateLimitDimension = "ip"
)

const (
	// DefaultRateLimitCapacity is the default request budget per window.
	DefaultRateLimitCapacity = 60

	// DefaultRateLimitWindow is the default admission window length.
	DefaultRateLimitWindow = 60 * time.Second
)

// ================================================================================
// Context keys
// ================================================================================

// ContextKey is the type used for values stored in request contexts.
type ContextKey string

const (
	// ContextKeyRequestID carries the per-request correlation id.
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeySubject carries the authenticated caller subject.
	ContextKeySubject ContextKey = "subject"
)

// ================================================================================
// Audit actions
// ================================================================================

const (
	// AuditActionTokenMint records a successful token mint.
	AuditActionTokenMint = "token.mint"

	// AuditActionKeyRotate records a signing key rotation.
	AuditActionKeyRotate = "key.rotate"

	// AuditActionKeyPrune records removal of a superseded key from the key set.
	AuditActionKeyPrune = "key.prune"
)
