// Package ratelimit keeps one token bucket per key (client IP, login email).
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Keyed is a set of limiters sharing one rate and burst.
type Keyed struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu       sync.Mutex
	limiters map[string]*entry
}

// NewKeyed creates limiters allowing limit events per second with burst.
func NewKeyed(limit rate.Limit, burst int) *Keyed {
	return &Keyed{
		limit:    limit,
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*entry),
	}
}

// PerMinute converts n events per minute to a rate.Limit.
func PerMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

// Allow reports whether one more event for key may happen now.
func (k *Keyed) Allow(key string) bool {
	now := k.now()

	k.mu.Lock()
	e, ok := k.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.limiters[key] = e
	}
	e.lastAccess = now
	k.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// RetryAfter is the wait until the next token for an exhausted key, at
// least one second.
func (k *Keyed) RetryAfter() time.Duration {
	if k.limit == rate.Inf || k.limit <= 0 {
		return time.Second
	}
	secs := math.Ceil(1/float64(k.limit) - 1e-9)
	if secs < 1 {
		return time.Second
	}
	return time.Duration(secs) * time.Second
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

// Prune drops keys not seen for longer than idle.
func (k *Keyed) Prune(idle time.Duration) {
	cutoff := k.now().Add(-idle)

	k.mu.Lock()
	defer k.mu.Unlock()
	for key, e := range k.limiters {
		if e.lastAccess.Before(cutoff) {
			delete(k.limiters, key)
		}
	}
}

// Cleanup prunes idle keys every interval until ctx is done.
func (k *Keyed) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			k.Prune(2 * interval)
		case <-ctx.Done():
			return
		}
	}
}
