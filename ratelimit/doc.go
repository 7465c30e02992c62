// Package ratelimit provides per-key token-bucket admission control.
//
// A Limiter owns one independent bucket per string key (a remote host, an API
// key, a tenant). Callers consume tokens before performing a unit of work:
//   - TryAcquire never blocks and reports whether tokens were available.
//   - Acquire waits until tokens become available, the context is done, or the
//     cost can never be satisfied.
//
// Buckets refill lazily from elapsed wall-clock time; there is no background
// refill goroutine. Buckets for distinct keys are fully independent.
//
// No fairness ordering is promised among callers waiting on the same key: the
// first caller to recheck after a refill wins.
package ratelimit
