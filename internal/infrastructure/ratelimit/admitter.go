package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one admission check. Remaining and ResetAt are
// surfaced to clients in rate-limit response headers.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Admitter answers whether a request identified by key may proceed within
// the current window. Implementations count the request as part of the
// check; a denied request still consumed an attempt.
type Admitter interface {
	Admit(ctx context.Context, key string) (Decision, error)
}

// UserKey and IPKey prefix the two admission dimensions so a tenant id can
// never collide with an address in the shared counter space.
func UserKey(subject string) string { return "user:" + subject }
func IPKey(addr string) string      { return "ip:" + addr }

// Combine merges two decisions under AND semantics: the request proceeds
// only when both dimensions allow it. The headers reflect the tighter of
// the two budgets.
func Combine(a, b Decision) Decision {
	out := Decision{
		Allowed: a.Allowed && b.Allowed,
		Limit:   a.Limit,
	}
	out.Remaining = a.Remaining
	if b.Remaining < out.Remaining {
		out.Remaining = b.Remaining
		out.Limit = b.Limit
	}
	out.ResetAt = a.ResetAt
	if b.ResetAt.After(out.ResetAt) {
		out.ResetAt = b.ResetAt
	}
	return out
}
