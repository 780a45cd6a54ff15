package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestKeyed_AllowPerKey(t *testing.T) {
	k := NewKeyed(PerMinute(2), 2)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	k.now = func() time.Time { return now }

	assert.True(t, k.Allow("a@x.com"))
	assert.True(t, k.Allow("a@x.com"))
	assert.False(t, k.Allow("a@x.com"))

	// Other keys have their own bucket.
	assert.True(t, k.Allow("b@x.com"))

	// One token every thirty seconds.
	now = now.Add(31 * time.Second)
	assert.True(t, k.Allow("a@x.com"))
	assert.False(t, k.Allow("a@x.com"))
	assert.Equal(t, 2, k.Len())
}

func TestKeyed_Prune(t *testing.T) {
	k := NewKeyed(rate.Limit(1), 1)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	k.now = func() time.Time { return now }

	k.Allow("old")
	now = now.Add(10 * time.Minute)
	k.Allow("fresh")

	k.Prune(5 * time.Minute)
	assert.Equal(t, 1, k.Len())
	assert.True(t, k.Allow("old"), "pruned key starts with a full bucket")
}

func TestPerMinute(t *testing.T) {
	assert.Equal(t, rate.Inf, PerMinute(0))
	assert.InDelta(t, 5.0/60.0, float64(PerMinute(5)), 1e-9)
}

func TestKeyed_RetryAfter(t *testing.T) {
	assert.Equal(t, 12*time.Second, NewKeyed(PerMinute(5), 5).RetryAfter())
	assert.Equal(t, time.Second, NewKeyed(rate.Limit(20), 40).RetryAfter())
	assert.Equal(t, time.Second, NewKeyed(rate.Inf, 1).RetryAfter())
}
