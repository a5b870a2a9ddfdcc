package ws

import (
	"sync"
	"time"

	"github.com/dkeye/Banter/internal/core"
)

// EventRateLimiter caps chat events per connection over a sliding
// window. Presence events stay exempt so a flooding client can still be
// cleaned up.
type EventRateLimiter struct {
	mu       sync.Mutex
	history  map[core.ConnID][]time.Time
	limit    int
	interval time.Duration
}

func NewEventRateLimiter(limit int, interval time.Duration) *EventRateLimiter {
	return &EventRateLimiter{
		history:  make(map[core.ConnID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *EventRateLimiter) Allow(conn core.ConnID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[conn]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[conn] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[conn] = fresh
	return true
}

// Forget drops a connection's window on disconnect.
func (rl *EventRateLimiter) Forget(conn core.ConnID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, conn)
}
