package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// admitScript increments the key's counter and stamps the window expiry on
// the first hit, so the count and its TTL move atomically. It returns the
// new count and the remaining window in milliseconds.
var admitScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// RedisAdmitter is a fixed-window counter shared across broker replicas
// through Redis. Errors are returned to the caller, which decides whether
// to fail open.
type RedisAdmitter struct {
	client    redis.UniversalClient
	capacity  int
	span      time.Duration
	keyPrefix string
}

// NewRedisAdmitter creates a shared admitter allowing capacity requests per
// key per window.
func NewRedisAdmitter(client redis.UniversalClient, capacity int, span time.Duration) *RedisAdmitter {
	return &RedisAdmitter{
		client:    client,
		capacity:  capacity,
		span:      span,
		keyPrefix: "ratelimit:",
	}
}

func (r *RedisAdmitter) Admit(ctx context.Context, key string) (Decision, error) {
	res, err := admitScript.Run(ctx, r.client, []string{r.keyPrefix + key}, r.span.Milliseconds()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("admission counter update: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return Decision{}, fmt.Errorf("admission script returned unexpected result %v", res)
	}
	count, ok1 := vals[0].(int64)
	ttlMillis, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return Decision{}, fmt.Errorf("admission script returned unexpected result %v", res)
	}
	if ttlMillis < 0 {
		ttlMillis = r.span.Milliseconds()
	}

	remaining := r.capacity - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   int(count) <= r.capacity,
		Limit:     r.capacity,
		Remaining: remaining,
		ResetAt:   time.Now().Add(time.Duration(ttlMillis) * time.Millisecond),
	}, nil
}

var _ Admitter = (*RedisAdmitter)(nil)
