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
	"fmt"
	"io"
	"time"

	"github.com/poiesic/ragbase/ai"
	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/retry"
	"github.com/poiesic/ragbase/storage"
)

// Config holds configuration for the reindexing operation.
type Config struct {
	// BatchSize is the number of documents to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// RetryPolicy governs retries of embedding API calls
	RetryPolicy retry.Policy
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: DefaultBatchSize,
		RetryPolicy:    retry.DefaultPolicy(),
	}
}

// Reindexer orchestrates re-embedding of all completed documents in a
// store.
type Reindexer struct {
	documentRepository storage.DocumentRepository
	embedder           ai.Embedder
	config             *Config
	progress           io.Writer
	processor          *BatchProcessor
	iterator           *DocumentIterator
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(
	documentRepository storage.DocumentRepository,
	chunkRepository storage.ChunkRepository,
	embeddingRepository storage.EmbeddingRepository,
	embedder ai.Embedder,
	config *Config,
	progress io.Writer,
) (*Reindexer, error) {
	if config == nil {
		config = DefaultConfig()
	}

	exec, err := retry.New(config.RetryPolicy)
	if err != nil {
		return nil, err
	}

	return &Reindexer{
		documentRepository: documentRepository,
		embedder:           embedder,
		config:             config,
		progress:           progress,
		processor:          NewBatchProcessor(chunkRepository, embeddingRepository, embedder, exec),
		iterator:           NewDocumentIterator(documentRepository, config.BatchSize),
	}, nil
}

// Run executes the reindexing operation. Every completed document has
// its chunks re-embedded with the configured embedder, and its stored
// embeddings replaced. Progress is reported to the configured writer.
func (r *Reindexer) Run(ctx context.Context) error {
	documents, err := r.documentRepository.GetDocumentsByStatus(ctx, core.DocumentStatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to query documents: %w", err)
	}

	total := len(documents)
	if total == 0 {
		fmt.Fprintf(r.progress, "No completed documents found (0 documents)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d documents with model %s (batch size: %d)\n",
		total, r.embedder.ModelName(), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.iterator.ForEach(ctx, func(batch []*core.Document) error {
		if err := r.processor.Process(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(batch)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d documents in %v (%.1f documents/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return nil
}
