package idp

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/healthcoresys/core/internal/config"
	"github.com/healthcoresys/core/internal/infrastructure/crypto"
	"github.com/healthcoresys/core/internal/infrastructure/monitoring"
	"github.com/healthcoresys/core/pkg/constants"
	"github.com/healthcoresys/core/pkg/logger"
)

const (
	jwksCacheKey     = "upstream-jwks"
	jwksCacheTTL     = 10 * time.Minute
	jwksFetchTimeout = 5 * time.Second
)

type cachedJWKS struct {
	keys map[string]*rsa.PublicKey
	etag string
}

// JWKSCache fetches and caches the upstream identity provider's public
// keys. Concurrent cache misses collapse into a single HTTP fetch, and a
// stored ETag turns unchanged documents into cheap 304 responses.
type JWKSCache struct {
	url     string
	client  *http.Client
	cache   *gocache.Cache
	group   singleflight.Group
	metrics *monitoring.Metrics
	log     logger.Logger

	mu   sync.RWMutex
	etag string
}

// NewJWKSCache creates a cache keyed on the issuer's well-known JWKS URL.
// metrics may be nil in tests.
func NewJWKSCache(cfg *config.UpstreamConfig, metrics *monitoring.Metrics, log logger.Logger) *JWKSCache {
	fetchTimeout := jwksFetchTimeout
	if cfg.FetchTimeout > 0 {
		fetchTimeout = time.Duration(cfg.FetchTimeout) * time.Second
	}
	cacheTTL := jwksCacheTTL
	if cfg.KeyCacheTTL > 0 {
		cacheTTL = time.Duration(cfg.KeyCacheTTL) * time.Second
	}
	return &JWKSCache{
		url:     strings.TrimRight(cfg.Issuer, "/") + constants.JWKSWellKnownPath,
		client:  &http.Client{Timeout: fetchTimeout},
		cache:   gocache.New(cacheTTL, 2*cacheTTL),
		metrics: metrics,
		log:     log.WithComponent("upstream_jwks"),
	}
}

func (c *JWKSCache) countFetch(result string) {
	if c.metrics != nil {
		c.metrics.UpstreamJWKSFetches.WithLabelValues(result).Inc()
	}
}

// Key returns the upstream public key for kid, fetching the JWKS document
// when the cache is cold or the kid is unknown.
func (c *JWKSCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if entry, ok := c.cache.Get(jwksCacheKey); ok {
		keys := entry.(map[string]*rsa.PublicKey)
		if key, ok := keys[kid]; ok {
			return key, nil
		}
		// Unknown kid with a warm cache usually means the upstream rotated;
		// fall through and refetch.
	}

	v, err, _ := c.group.Do(jwksCacheKey, func() (interface{}, error) {
		return c.fetch(ctx, true)
	})
	if err != nil {
		return nil, err
	}

	keys := v.(map[string]*rsa.PublicKey)
	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("no upstream key with id %q", kid)
	}
	return key, nil
}

// retryOn304 bounds the cold-cache 304 path to a single unconditional
// refetch so a misbehaving upstream cannot stall callers.
func (c *JWKSCache) fetch(ctx context.Context, retryOn304 bool) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building JWKS request: %w", err)
	}
	c.mu.RLock()
	if c.etag != "" {
		req.Header.Set("If-None-Match", c.etag)
	}
	c.mu.RUnlock()

	resp, err := c.client.Do(req)
	if err != nil {
		c.countFetch("error")
		return nil, fmt.Errorf("fetching upstream JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		if entry, ok := c.cache.Get(jwksCacheKey); ok {
			keys := entry.(map[string]*rsa.PublicKey)
			c.cache.Set(jwksCacheKey, keys, gocache.DefaultExpiration)
			c.countFetch("not_modified")
			return keys, nil
		}
		// 304 with nothing cached: clear the ETag and retry once without it.
		if !retryOn304 {
			c.countFetch("error")
			return nil, fmt.Errorf("upstream JWKS endpoint returned 304 to an unconditional request")
		}
		c.mu.Lock()
		c.etag = ""
		c.mu.Unlock()
		return c.fetch(ctx, false)
	}
	if resp.StatusCode != http.StatusOK {
		c.countFetch("error")
		return nil, fmt.Errorf("upstream JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading upstream JWKS: %w", err)
	}

	set, err := crypto.ParseKeySet(body)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		pub, err := crypto.PublicKeyFromJWK(jwk)
		if err != nil {
			c.log.Warn("skipping unparseable upstream key", logger.String("kid", jwk.Kid))
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("upstream JWKS document contained no usable RSA keys")
	}

	c.mu.Lock()
	c.etag = resp.Header.Get("ETag")
	c.mu.Unlock()
	c.cache.Set(jwksCacheKey, keys, gocache.DefaultExpiration)

	c.countFetch("success")
	c.log.Debug("upstream JWKS refreshed", logger.Int("key_count", len(keys)))
	return keys, nil
}
