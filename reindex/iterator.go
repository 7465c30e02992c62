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


package reindex

import (
	"context"

	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/storage"
)

const (
	// DefaultBatchSize is the default number of documents to process in
	// each batch
	DefaultBatchSize = 50
)

// DocumentIterator iterates over all completed documents in batches.
// Only completed documents carry a full set of chunks, so they are the
// only ones worth re-embedding.
type DocumentIterator struct {
	repo      storage.DocumentRepository
	batchSize int
}

// NewDocumentIterator creates a new document iterator.
// batchSize: number of documents per batch (must be > 0)
func NewDocumentIterator(repo storage.DocumentRepository, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &DocumentIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach iterates over all completed documents, calling fn for each batch.
// Iteration stops on first error from fn or when all documents are
// processed. Context cancellation is checked between batches.
func (it *DocumentIterator) ForEach(ctx context.Context, fn func([]*core.Document) error) error {
	// Check context before starting
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	documents, err := it.repo.GetDocumentsByStatus(ctx, core.DocumentStatusCompleted)
	if err != nil {
		return err
	}

	if len(documents) == 0 {
		return nil
	}

	for i := 0; i < len(documents); i += it.batchSize {
		end := i + it.batchSize
		if end > len(documents) {
			end = len(documents)
		}

		if err := fn(documents[i:end]); err != nil {
			return err
		}

		// Check context after each batch
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
