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

import "errors"

var (
	// ErrInvalidMaxAttempts indicates a MaxAttempts below 1.
	ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")

	// ErrInvalidBaseDelay indicates a non-positive base delay.
	ErrInvalidBaseDelay = errors.New("base delay must be positive")

	// ErrInvalidMaxDelay indicates a max delay smaller than the base delay.
	ErrInvalidMaxDelay = errors.New("max delay must be at least the base delay")

	// ErrInvalidMultiplier indicates a backoff multiplier of 1 or below.
	ErrInvalidMultiplier = errors.New("multiplier must be greater than 1")

	// ErrInvalidJitterFraction indicates a jitter fraction outside [0, 1).
	ErrInvalidJitterFraction = errors.New("jitter fraction must be in [0, 1)")

	// ErrRetryExhausted wraps the last failure after the attempt budget is
	// spent.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrNonRetryable wraps a failure the classifier rejected for retrying.
	ErrNonRetryable = errors.New("non-retryable failure")
)
