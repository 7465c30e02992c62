package retry

import (
	"math"
	"time"
)

// Policy describes an exponential backoff schedule. A Policy is immutable
// configuration; one value may be shared read-only across any number of
// executors and invocations.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first attempt.
	MaxAttempts int

	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration

	// Multiplier is the per-attempt exponential growth factor. Must be
	// greater than 1.
	Multiplier float64

	// JitterFraction in [0, 1) is the fraction of each delay randomized
	// away to spread concurrent retriers. Zero gives deterministic delays.
	JitterFraction float64
}

// DefaultPolicy returns the policy used when callers have no specific
// requirements: 3 attempts, 1s base, 60s cap, doubling, half-jittered.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      1 * time.Second,
		MaxDelay:       60 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.5,
	}
}

// Validate checks the policy and returns the first configuration error.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if p.BaseDelay <= 0 {
		return ErrInvalidBaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		return ErrInvalidMaxDelay
	}
	if p.Multiplier <= 1 {
		return ErrInvalidMultiplier
	}
	if p.JitterFraction < 0 || p.JitterFraction >= 1 {
		return ErrInvalidJitterFraction
	}
	return nil
}

// Delay returns the pre-jitter delay that follows the given failed attempt
// (1-based): min(MaxDelay, BaseDelay * Multiplier^(attempt-1)).
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}
