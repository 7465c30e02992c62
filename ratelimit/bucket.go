package ratelimit

import (
	"math"
	"sync"
	"time"
)

// bucket holds the token state for a single rate-limit key.
// Tokens refill lazily from elapsed wall-clock time; refill and debit are
// applied as one unit under the bucket mutex so concurrent callers can never
// double-spend the same tokens.
type bucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

// newBucket creates a full bucket. Configuration is validated by the Limiter
// before buckets are created.
func newBucket(capacity, refillRate float64, now time.Time) *bucket {
	return &bucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     capacity,
		lastRefill: now,
	}
}

// refillLocked adds tokens proportional to the time elapsed since the last
// accounting update, capped at capacity. Callers must hold b.mu.
func (b *bucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
	}
	b.lastRefill = now
}

// tryConsume attempts to debit cost tokens after applying lazy refill.
// On failure the bucket state is unchanged beyond the refill accounting.
func (b *bucket) tryConsume(cost float64, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(now)

	if b.tokens >= cost {
		b.tokens -= cost
		return true
	}
	return false
}

// consumeOrWait attempts to debit cost tokens. When the bucket cannot satisfy
// the cost it returns the wait until enough tokens will have refilled, so the
// caller can sleep instead of polling.
func (b *bucket) consumeOrWait(cost float64, now time.Time) (ok bool, wait time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(now)

	if b.tokens >= cost {
		b.tokens -= cost
		return true, 0
	}

	missing := cost - b.tokens
	return false, time.Duration(missing / b.refillRate * float64(time.Second))
}

// available reports the current token count after refill accounting.
func (b *bucket) available(now time.Time) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(now)
	return b.tokens
}

// reset restores the bucket to full.
func (b *bucket) reset(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = b.capacity
	b.lastRefill = now
}

// lastTouched reports when the bucket was last refilled or debited.
// Used for stale-bucket eviction.
func (b *bucket) lastTouched() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.lastRefill
}
