// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// KeyConfig holds the bucket parameters for a rate-limit key.
type KeyConfig struct {
	Capacity   float64
	RefillRate float64 // tokens per second
}

// Limiter admits or delays units of work per key under a token-bucket
// discipline. Buckets are created lazily on first reference to a key, using
// the default configuration unless a per-key override was registered.
//
// All methods are safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	defaults  KeyConfig
	overrides map[string]KeyConfig
	logger    *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter) error

// WithKeyConfig registers a per-key bucket configuration that overrides the
// limiter defaults when the key's bucket is created.
func WithKeyConfig(key string, capacity, refillRate float64) Option {
	return func(l *Limiter) error {
		if capacity <= 0 {
			return ErrInvalidCapacity
		}
		if refillRate <= 0 {
			return ErrInvalidRefillRate
		}
		l.overrides[key] = KeyConfig{Capacity: capacity, RefillRate: refillRate}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// New creates a Limiter whose buckets default to the given capacity and
// refill rate (tokens per second). Non-positive values are rejected.
func New(capacity, refillRate float64, opts ...Option) (*Limiter, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if refillRate <= 0 {
		return nil, ErrInvalidRefillRate
	}

	l := &Limiter{
		buckets:   make(map[string]*bucket),
		defaults:  KeyConfig{Capacity: capacity, RefillRate: refillRate},
		overrides: make(map[string]KeyConfig),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// getBucket returns the bucket for key, creating it if absent. Insertion is
// atomic under the map mutex so two concurrent callers presenting a new key
// always share one bucket.
func (l *Limiter) getBucket(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		cfg, found := l.overrides[key]
		if !found {
			cfg = l.defaults
		}
		b = newBucket(cfg.Capacity, cfg.RefillRate, time.Now())
		l.buckets[key] = b
	}
	return b
}

// TryAcquire attempts to consume cost tokens from the key's bucket without
// blocking. It returns false when not enough tokens are available, when cost
// is not positive, or when cost exceeds the bucket capacity.
func (l *Limiter) TryAcquire(key string, cost int) bool {
	if cost <= 0 {
		return false
	}
	return l.getBucket(key).tryConsume(float64(cost), time.Now())
}

// Acquire consumes cost tokens from the key's bucket, waiting for refill when
// necessary. Each wait is computed from the token deficit and the refill rate;
// the bucket is never locked while waiting, and waiters are not served in any
// promised order.
//
// A cost larger than the bucket capacity fails immediately with
// ErrCostExceedsCapacity. When the context deadline elapses first the returned
// error wraps ErrAcquireTimeout; plain cancellation returns ctx.Err().
func (l *Limiter) Acquire(ctx context.Context, key string, cost int) error {
	if cost <= 0 {
		return ErrInvalidCost
	}

	b := l.getBucket(key)
	if float64(cost) > b.capacity {
		return fmt.Errorf("%w: need %d, capacity %g", ErrCostExceedsCapacity, cost, b.capacity)
	}

	for {
		ok, wait := b.consumeOrWait(float64(cost), time.Now())
		if ok {
			return nil
		}

		l.logger.Debug("waiting for tokens", "key", key, "cost", cost, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %w", ErrAcquireTimeout, ctx.Err())
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available reports the token count for key after applying refill accounting.
// The bucket is created if it does not exist yet. The value is a snapshot and
// may change immediately under concurrent access.
func (l *Limiter) Available(key string) float64 {
	return l.getBucket(key).available(time.Now())
}

// Reset restores the key's bucket to full. Unknown keys are ignored.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	b, ok := l.buckets[key]
	l.mu.Unlock()

	if ok {
		b.reset(time.Now())
	}
}

// Len reports the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.buckets)
}

// RemoveStale evicts buckets that have not been touched for at least maxIdle
// and returns the number removed. A full bucket holds no useful state, so
// eviction only forgets keys, never tokens owed.
func (l *Limiter) RemoveStale(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.lastTouched().Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanup launches a goroutine that evicts buckets idle for longer than
// maxIdle every interval. It returns a function that stops the goroutine.
func (l *Limiter) StartCleanup(interval, maxIdle time.Duration) func() {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if n := l.RemoveStale(maxIdle); n > 0 {
					l.logger.Debug("evicted stale rate-limit buckets", "count", n)
				}
			}
		}
	}()

	return func() { close(done) }
}
