// Package retry provides an exponential-backoff retry executor.
//
// An Executor re-invokes a fallible operation on retryable failures, sleeping
// between attempts with exponentially growing, jittered delays, up to a
// bounded number of attempts. An optional admission controller can gate every
// attempt so retries are also rate-limited.
//
// Execution is at-least-once: a retried operation may have partially executed
// before failing. Callers needing exactly-once effects must make the
// operation idempotent.
package retry
