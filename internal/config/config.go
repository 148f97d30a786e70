// Package config resolves the broker's configuration once at startup.
// Precedence is fixed: defaults, then an optional config.yaml, then
// HC_BROKER_* environment variables, then the legacy aliases kept for
// deployments that predate the prefix. No other code reads the environment.
package config

import (
	"fmt"
	"time"

	"github.com/healthcoresys/core/pkg/constants"
)

// Config holds the full configuration surface of the broker.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Vault     VaultConfig     `mapstructure:"vault"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Audit     AuditConfig     `mapstructure:"audit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
	Debug        bool   `mapstructure:"debug"`         // enables pprof
}

// JWTConfig configures token minting and the signing key sources.
// InlinePrivatePEM and SecretRef are mutually exclusive: the private half of
// the signing key lives in exactly one place.
type JWTConfig struct {
	SigningKID       string `mapstructure:"signing_kid"`
	InlinePrivatePEM string `mapstructure:"inline_private_pem"`
	SecretRef        string `mapstructure:"secret_ref"`
	TTLSeconds       int    `mapstructure:"ttl_seconds"`
	Issuer           string `mapstructure:"issuer"`
	Audience         string `mapstructure:"audience"`
	JWKSPath         string `mapstructure:"jwks_path"` // published key set + rotation log location
}

// TTL returns the configured token lifetime.
func (c *JWTConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// UpstreamConfig describes the external identity provider whose bearer
// credentials gate minting.
type UpstreamConfig struct {
	Issuer       string `mapstructure:"issuer"`
	Audience     string `mapstructure:"audience"`
	FetchTimeout int    `mapstructure:"fetch_timeout"` // seconds, remote JWKS fetch
	KeyCacheTTL  int    `mapstructure:"key_cache_ttl"` // seconds
}

// RateLimitConfig configures the admission controller.
type RateLimitConfig struct {
	Capacity      int    `mapstructure:"capacity"`
	WindowSeconds int    `mapstructure:"window_seconds"`
	Store         string `mapstructure:"store"` // "memory" or "redis"
}

// Window returns the admission window length.
func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// VaultConfig configures the secret-store backend.
type VaultConfig struct {
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	MountPath string `mapstructure:"mount_path"`
	Timeout   int    `mapstructure:"timeout"` // seconds
}

// RedisConfig configures the shared admission counter store.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuditConfig configures the audit sink.
type AuditConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// CORSConfig configures the public CORS policy.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Validate checks the invariants the rest of the service depends on.
func (c *Config) Validate() error {
	if c.JWT.TTLSeconds <= 0 {
		return fmt.Errorf("jwt.ttl_seconds must be a positive integer, got %d", c.JWT.TTLSeconds)
	}
	if c.JWT.TTL() > constants.AccessTokenMaxTTL {
		return fmt.Errorf("jwt.ttl_seconds exceeds the maximum of %s", constants.AccessTokenMaxTTL)
	}
	if c.JWT.InlinePrivatePEM != "" && c.JWT.SecretRef != "" {
		return fmt.Errorf("jwt.inline_private_pem and jwt.secret_ref are mutually exclusive: the private key lives in exactly one place")
	}
	if c.JWT.Issuer == "" {
		return fmt.Errorf("jwt.issuer is required")
	}
	if c.JWT.Audience == "" {
		return fmt.Errorf("jwt.audience is required")
	}
	if c.RateLimit.Capacity <= 0 {
		return fmt.Errorf("rate_limit.capacity must be positive, got %d", c.RateLimit.Capacity)
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate_limit.window_seconds must be positive, got %d", c.RateLimit.WindowSeconds)
	}
	switch c.RateLimit.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("rate_limit.store must be \"memory\" or \"redis\", got %q", c.RateLimit.Store)
	}
	if c.RateLimit.Store == "redis" && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when rate_limit.store is \"redis\"")
	}
	if c.Audit.Enabled && (len(c.Audit.Brokers) == 0 || c.Audit.Topic == "") {
		return fmt.Errorf("audit.brokers and audit.topic are required when audit.enabled is true")
	}
	return nil
}
