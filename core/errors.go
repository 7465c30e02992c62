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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a TextChunk failed validation.
	ErrInvalidChunk = errors.New("invalid text chunk")

	// ErrInvalidEmbedding indicates an Embedding failed validation.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrInvalidQuery indicates a Query failed validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmptyContent indicates an empty content field.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyURL indicates an empty URL field.
	ErrEmptyURL = errors.New("URL cannot be empty")

	// ErrInvalidStatus indicates an invalid DocumentStatus value.
	ErrInvalidStatus = errors.New("invalid document status")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrInvalidChunkBounds indicates inconsistent chunk character offsets.
	ErrInvalidChunkBounds = errors.New("chunk bounds are inconsistent")

	// ErrEmptyVector indicates an embedding with no vector.
	ErrEmptyVector = errors.New("embedding vector cannot be empty")

	// ErrDimensionMismatch indicates a Dimension field that disagrees with
	// the vector length.
	ErrDimensionMismatch = errors.New("dimension does not match vector length")

	// ErrEmptyModelName indicates an embedding without a model name.
	ErrEmptyModelName = errors.New("model name cannot be empty")

	// ErrInvalidMaxResults indicates a non-positive result limit.
	ErrInvalidMaxResults = errors.New("max results must be positive")
)
