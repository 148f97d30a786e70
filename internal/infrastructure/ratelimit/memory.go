package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryAdmitter is a fixed-window counter held in process memory. It is
// correct for a single instance; deployments with more than one replica
// should use the Redis-backed admitter so all replicas share one budget.
type MemoryAdmitter struct {
	mu       sync.Mutex
	windows  map[string]*window
	capacity int
	span     time.Duration
	now      func() time.Time
}

// NewMemoryAdmitter creates an in-process admitter allowing capacity
// requests per key per window.
func NewMemoryAdmitter(capacity int, span time.Duration) *MemoryAdmitter {
	return &MemoryAdmitter{
		windows:  make(map[string]*window),
		capacity: capacity,
		span:     span,
		now:      time.Now,
	}
}

// Admit counts the request against the key's current window and reports
// whether it fit inside the capacity.
func (m *MemoryAdmitter) Admit(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(m.span)}
		m.windows[key] = w
	}
	w.count++

	remaining := m.capacity - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   w.count <= m.capacity,
		Limit:     m.capacity,
		Remaining: remaining,
		ResetAt:   w.resetAt,
	}, nil
}

var _ Admitter = (*MemoryAdmitter)(nil)
