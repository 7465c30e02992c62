package reindex

import (
	"context"
	"fmt"

	"github.com/poiesic/ragbase/ai"
	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/retry"
	"github.com/poiesic/ragbase/search"
	"github.com/poiesic/ragbase/storage"
)

// BatchProcessor re-embeds the chunks of a batch of documents and
// replaces their stored embeddings.
type BatchProcessor struct {
	chunkRepository     storage.ChunkRepository
	embeddingRepository storage.EmbeddingRepository
	embedder            ai.Embedder
	exec                *retry.Executor
}

// NewBatchProcessor creates a new batch processor. Embedding API calls
// go through exec so transient failures are retried with backoff.
func NewBatchProcessor(
	chunkRepository storage.ChunkRepository,
	embeddingRepository storage.EmbeddingRepository,
	embedder ai.Embedder,
	exec *retry.Executor,
) *BatchProcessor {
	return &BatchProcessor{
		chunkRepository:     chunkRepository,
		embeddingRepository: embeddingRepository,
		embedder:            embedder,
		exec:                exec,
	}
}

// Process re-embeds every chunk of each document in the batch. Old
// embeddings for a document are deleted only after its new vectors have
// been generated, so an embedding failure leaves the document's previous
// vectors intact. Vectors are normalized for cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, documents []*core.Document) error {
	for _, doc := range documents {
		if err := bp.processDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to reindex document %d: %w", doc.Id, err)
		}
	}
	return nil
}

func (bp *BatchProcessor) processDocument(ctx context.Context, doc *core.Document) error {
	chunks, err := bp.chunkRepository.GetChunksByDocument(ctx, doc.Id)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := retry.DoValue(ctx, bp.exec, func(ctx context.Context) ([][]float32, error) {
		return bp.embedder.EmbedTexts(ctx, texts)
	})
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(chunks), len(vectors))
	}

	embeddings := make([]*core.Embedding, len(chunks))
	for i, chunk := range chunks {
		embeddings[i] = &core.Embedding{
			DocumentId: doc.Id,
			ChunkId:    chunk.Id,
			Text:       chunk.Content,
			Vector:     search.NormalizeVector(vectors[i]),
			ModelName:  bp.embedder.ModelName(),
			Dimension:  len(vectors[i]),
		}
	}

	if err := bp.embeddingRepository.DeleteEmbeddingsByDocument(ctx, doc.Id); err != nil {
		return err
	}
	_, err = bp.embeddingRepository.AddEmbeddings(ctx, embeddings...)
	return err
}
