package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(0, 1)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New(-1, 1)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New(10, 0)
	assert.ErrorIs(t, err, ErrInvalidRefillRate)

	_, err = New(10, -0.5)
	assert.ErrorIs(t, err, ErrInvalidRefillRate)
}

func TestNew_RejectsInvalidKeyConfig(t *testing.T) {
	_, err := New(10, 1, WithKeyConfig("api.example.com", 0, 1))
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New(10, 1, WithKeyConfig("api.example.com", 5, -1))
	assert.ErrorIs(t, err, ErrInvalidRefillRate)
}

func TestTryAcquire_PerKeyIsolation(t *testing.T) {
	l, err := New(2, 1)
	require.NoError(t, err)

	require.True(t, l.TryAcquire("alpha", 2))
	require.False(t, l.TryAcquire("alpha", 1), "alpha is exhausted")

	// Draining alpha must not affect beta.
	assert.True(t, l.TryAcquire("beta", 2))
}

func TestTryAcquire_InvalidCost(t *testing.T) {
	l, err := New(10, 1)
	require.NoError(t, err)

	assert.False(t, l.TryAcquire("key", 0))
	assert.False(t, l.TryAcquire("key", -3))
}

func TestTryAcquire_CostAboveCapacity(t *testing.T) {
	l, err := New(10, 1000)
	require.NoError(t, err)

	assert.False(t, l.TryAcquire("key", 11), "cost above capacity can never succeed")
}

func TestWithKeyConfig_OverridesDefaults(t *testing.T) {
	l, err := New(1, 1, WithKeyConfig("big", 100, 50))
	require.NoError(t, err)

	assert.True(t, l.TryAcquire("big", 100))
	assert.False(t, l.TryAcquire("small", 2), "unknown keys use the defaults")
}

func TestAcquire_WaitsForRefill(t *testing.T) {
	// 50 tokens/sec: one missing token is a ~20ms wait.
	l, err := New(5, 50)
	require.NoError(t, err)

	require.True(t, l.TryAcquire("key", 5))

	start := time.Now()
	err = l.Acquire(context.Background(), "key", 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond, "should have waited for refill")
}

func TestAcquire_CostExceedsCapacityFailsFast(t *testing.T) {
	l, err := New(5, 1)
	require.NoError(t, err)

	start := time.Now()
	err = l.Acquire(context.Background(), "key", 6)
	assert.ErrorIs(t, err, ErrCostExceedsCapacity)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "must not block waiting for impossible cost")
}

func TestAcquire_InvalidCost(t *testing.T) {
	l, err := New(5, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, l.Acquire(context.Background(), "key", 0), ErrInvalidCost)
}

func TestAcquire_Timeout(t *testing.T) {
	// 1 token per 10s: an empty bucket cannot refill within the deadline.
	l, err := New(1, 0.1)
	require.NoError(t, err)
	require.True(t, l.TryAcquire("key", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err = l.Acquire(ctx, "key", 1)
	assert.ErrorIs(t, err, ErrAcquireTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquire_TimeoutLeavesStateUntouched(t *testing.T) {
	l, err := New(10, 0.1)
	require.NoError(t, err)
	require.True(t, l.TryAcquire("key", 10))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Acquire(ctx, "key", 5))

	avail := l.Available("key")
	assert.GreaterOrEqual(t, avail, 0.0)
	assert.Less(t, avail, 1.0, "timed-out acquisition must not debit tokens")
}

func TestAcquire_Cancellation(t *testing.T) {
	l, err := New(1, 0.1)
	require.NoError(t, err)
	require.True(t, l.TryAcquire("key", 1))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err = l.Acquire(ctx, "key", 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrAcquireTimeout, "cancellation is distinct from timeout")
}

func TestTryAcquire_ConcurrentNoOversubscription(t *testing.T) {
	// A slow refill keeps the window tight: successes are bounded by
	// capacity + refillRate * elapsed, which stays below 101 here.
	const capacity = 100
	l, err := New(capacity, 0.001)
	require.NoError(t, err)

	var successes atomic.Int64
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				if l.TryAcquire("shared", 1) {
					successes.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, successes.Load(), int64(capacity), "concurrent debits must never oversubscribe the bucket")
	assert.Equal(t, int64(capacity), successes.Load(), "all tokens should have been handed out")
}

func TestAcquire_ConcurrentWaiters(t *testing.T) {
	// 100 tokens/sec, 10 waiters of cost 1 each: everyone should be served
	// well within a second.
	l, err := New(2, 100)
	require.NoError(t, err)
	require.True(t, l.TryAcquire("key", 2))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = l.Acquire(ctx, "key", 1)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestAvailable_AppliesRefill(t *testing.T) {
	l, err := New(10, 1000)
	require.NoError(t, err)

	require.True(t, l.TryAcquire("key", 10))
	time.Sleep(20 * time.Millisecond)

	assert.Greater(t, l.Available("key"), 0.0, "Available projects refill accounting")
}

func TestReset_RestoresFullBucket(t *testing.T) {
	l, err := New(10, 0.001)
	require.NoError(t, err)

	require.True(t, l.TryAcquire("key", 10))
	l.Reset("key")
	assert.True(t, l.TryAcquire("key", 10))

	// Resetting an unknown key is a no-op.
	l.Reset("never-seen")
}

func TestRemoveStale_EvictsIdleBuckets(t *testing.T) {
	l, err := New(10, 1)
	require.NoError(t, err)

	l.TryAcquire("old", 1)
	require.Equal(t, 1, l.Len())

	time.Sleep(30 * time.Millisecond)
	l.TryAcquire("fresh", 1)

	removed := l.RemoveStale(20 * time.Millisecond)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Len())
}

func TestStartCleanup_StopsOnDemand(t *testing.T) {
	l, err := New(10, 1)
	require.NoError(t, err)

	l.TryAcquire("key", 1)
	stop := l.StartCleanup(10*time.Millisecond, 1*time.Millisecond)

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)
	stop()
}
