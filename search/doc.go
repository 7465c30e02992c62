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


// Package search provides retrieval and grounded answer generation.
//
// The Retriever type implements a two-stage search algorithm:
//   - Semantic search over stored embedding vectors
//   - Verbatim keyword boosting with stop-word filtering
//
// Results are scored and ranked, and the Answer method feeds the top
// passages to a generation model to produce an answer with source
// attribution. All AI calls are routed through a retry executor that
// can be gated by a shared rate limiter.
package search
