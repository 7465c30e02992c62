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

import "errors"

var (
	// ErrInvalidCapacity indicates a non-positive bucket capacity.
	ErrInvalidCapacity = errors.New("bucket capacity must be positive")

	// ErrInvalidRefillRate indicates a non-positive refill rate.
	ErrInvalidRefillRate = errors.New("refill rate must be positive")

	// ErrInvalidCost indicates a non-positive acquisition cost.
	ErrInvalidCost = errors.New("acquisition cost must be positive")

	// ErrCostExceedsCapacity indicates a cost that no amount of waiting
	// can satisfy because it is larger than the bucket capacity.
	ErrCostExceedsCapacity = errors.New("cost exceeds bucket capacity")

	// ErrAcquireTimeout indicates the context deadline elapsed before
	// enough tokens became available.
	ErrAcquireTimeout = errors.New("timed out waiting for tokens")
)
