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


package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Limiter gates attempts on an admission controller. ratelimit.Limiter
// satisfies this interface; the indirection keeps the two packages decoupled.
type Limiter interface {
	Acquire(ctx context.Context, key string, cost int) error
}

// Attempt records the outcome of a single attempt, for observability only.
type Attempt struct {
	// Number is the 1-based attempt number.
	Number int

	// Err is the attempt's failure, nil on success.
	Err error

	// NextDelay is the jittered sleep before the following attempt,
	// zero when no further attempt follows.
	NextDelay time.Duration
}

// Executor retries operations under an immutable Policy.
// An Executor is safe for concurrent use.
type Executor struct {
	policy     Policy
	retryable  func(error) bool
	limiter    Limiter
	limiterKey string
	observer   func(Attempt)
	logger     *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClassifier sets the predicate deciding whether a failure should trigger
// another attempt. The default retries every error.
func WithClassifier(retryable func(error) bool) Option {
	return func(e *Executor) {
		if retryable != nil {
			e.retryable = retryable
		}
	}
}

// WithLimiter gates every attempt, including the first, on acquiring one
// token for key from the given limiter. Retries are thereby rate-limited
// alongside first attempts.
func WithLimiter(l Limiter, key string) Option {
	return func(e *Executor) {
		e.limiter = l
		e.limiterKey = key
	}
}

// WithObserver registers a callback invoked after every attempt.
// The callback must not block.
func WithObserver(observer func(Attempt)) Option {
	return func(e *Executor) {
		e.observer = observer
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Executor, validating the policy.
func New(policy Policy, opts ...Option) (*Executor, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{
		policy:    policy,
		retryable: func(error) bool { return true },
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Do runs op until it succeeds, fails non-retryably, exhausts the attempt
// budget, or the context is done.
//
// Terminal errors are distinguishable with errors.Is: exhaustion wraps both
// ErrRetryExhausted and the last underlying error; a rejected classification
// wraps ErrNonRetryable and the original error; cancellation during a sleep
// or limiter wait surfaces ctx.Err() unmixed with either.
//
// Execution is at-least-once; op must be idempotent if the caller needs
// exactly-once effects.
func (e *Executor) Do(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Acquire(ctx, e.limiterKey, 1); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 1 {
				e.logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			e.observe(Attempt{Number: attempt})
			return nil
		}

		if !e.retryable(lastErr) {
			e.observe(Attempt{Number: attempt, Err: lastErr})
			return fmt.Errorf("%w: %w", ErrNonRetryable, lastErr)
		}

		if attempt == e.policy.MaxAttempts {
			e.observe(Attempt{Number: attempt, Err: lastErr})
			break
		}

		delay := e.jitter(e.policy.Delay(attempt))
		e.observe(Attempt{Number: attempt, Err: lastErr, NextDelay: delay})
		e.logger.Debug("operation failed, will retry",
			"attempt", attempt, "maxAttempts", e.policy.MaxAttempts, "delay", delay, "error", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, e.policy.MaxAttempts, lastErr)
}

// DoValue runs op through e and returns its result alongside the terminal
// error, with the same semantics as Do.
func DoValue[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// jitter randomizes a delay within [d*(1-JitterFraction), d], so jitter never
// raises a delay above its deterministic value. The process-wide PRNG is
// deliberate: tests wanting determinism set JitterFraction to zero instead of
// mocking the generator.
func (e *Executor) jitter(d time.Duration) time.Duration {
	jf := e.policy.JitterFraction
	if jf == 0 {
		return d
	}
	return time.Duration(float64(d) * (1 - jf + jf*rand.Float64()))
}

func (e *Executor) observe(a Attempt) {
	if e.observer != nil {
		e.observer(a)
	}
}
