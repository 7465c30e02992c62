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

import (
	"fmt"
	"time"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - URL must not be empty
//   - Content must not be empty
//   - Status must be a known value
//   - CrawledAt must not be in the future
//
// NOT validated (populated by storage and processors):
//   - ID and Checksum (0 is valid before insertion)
//   - ProcessedAt (zero until processing completes)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyURL)
	}

	if doc.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	if err := ValidateDocumentStatus(doc.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !IsValidTimestamp(doc.CrawledAt) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateChunk validates a TextChunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Index must not be negative
//   - StartChar/EndChar must describe a non-empty, ordered range
//
// NOT validated:
//   - ID, DocumentId, Prev/NextChunkId (0 is valid)
func ValidateChunk(chunk *TextChunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Index < 0 || chunk.StartChar < 0 || chunk.EndChar <= chunk.StartChar {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidChunkBounds)
	}

	return nil
}

// ValidateEmbedding validates an Embedding according to domain rules.
//
// Validation rules:
//   - Vector must not be empty
//   - Dimension must equal the vector length
//   - ModelName must not be empty
func ValidateEmbedding(embedding *Embedding) error {
	if embedding == nil {
		return fmt.Errorf("%w: embedding is nil", ErrInvalidEmbedding)
	}

	if len(embedding.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEmbedding, ErrEmptyVector)
	}

	if embedding.Dimension != len(embedding.Vector) {
		return fmt.Errorf("%w: %w: declared %d, actual %d",
			ErrInvalidEmbedding, ErrDimensionMismatch, embedding.Dimension, len(embedding.Vector))
	}

	if embedding.ModelName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEmbedding, ErrEmptyModelName)
	}

	return nil
}

// ValidateQuery validates a Query according to domain rules.
func ValidateQuery(query *Query) error {
	if query == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}

	if query.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrEmptyContent)
	}

	if query.MaxResults <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrInvalidMaxResults)
	}

	return nil
}

// ValidateDocumentStatus validates that a DocumentStatus has a known value.
func ValidateDocumentStatus(status DocumentStatus) error {
	switch status {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusCompleted, DocumentStatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidStatus, status)
	}
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
