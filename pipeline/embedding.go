package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/ragbase/ai"
	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/retry"
	"github.com/poiesic/ragbase/search"
	"github.com/poiesic/ragbase/storage"
)

// embeddingProcessor generates embeddings for document chunks.
// Every embedding call goes through the retry executor, so transient
// provider failures are absorbed and rate limits respected.
type embeddingProcessor struct {
	chunkRepository     storage.ChunkRepository
	embeddingRepository storage.EmbeddingRepository
	embedder            ai.Embedder
	exec                *retry.Executor
	logger              *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(
	chunkRepository storage.ChunkRepository,
	embeddingRepository storage.EmbeddingRepository,
	embedder ai.Embedder,
	exec *retry.Executor,
	logger *slog.Logger,
) (processor, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embeddingRepository == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if exec == nil {
		return nil, fmt.Errorf("retry executor required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		chunkRepository:     chunkRepository,
		embeddingRepository: embeddingRepository,
		embedder:            embedder,
		exec:                exec,
		logger:              logger.With("processor", "embeddings"),
	}, nil
}

// process generates and stores embeddings for all chunks of the
// specified documents.
func (ep *embeddingProcessor) process(ctx context.Context, documentIDs ...core.ID) error {
	ep.logger.Info("processing documents for embeddings", "documents", len(documentIDs))

	for _, docID := range documentIDs {
		chunks, err := ep.chunkRepository.GetChunksByDocument(ctx, docID)
		if err != nil {
			ep.logger.Error("error retrieving chunks", "document", docID, "err", err)
			return err
		}
		if len(chunks) == 0 {
			ep.logger.Debug("no chunks to embed", "document", docID)
			continue
		}

		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}

		ep.logger.Debug("generating embeddings for chunks", "document", docID, "chunks", len(texts))
		vectors, err := retry.DoValue(ctx, ep.exec, func(ctx context.Context) ([][]float32, error) {
			return ep.embedder.EmbedTexts(ctx, texts)
		})
		if err != nil {
			ep.logger.Error("error generating embeddings", "document", docID, "err", err)
			return err
		}

		if len(vectors) != len(chunks) {
			return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(chunks), len(vectors))
		}

		// Stored vectors must be unit length so the dot product in
		// similarity search is a cosine score.
		embeddings := make([]*core.Embedding, len(chunks))
		for i, chunk := range chunks {
			embeddings[i] = &core.Embedding{
				DocumentId: chunk.DocumentId,
				ChunkId:    chunk.Id,
				Text:       chunk.Content,
				Vector:     search.NormalizeVector(vectors[i]),
				ModelName:  ep.embedder.ModelName(),
				Dimension:  len(vectors[i]),
			}
		}

		if _, err := ep.embeddingRepository.AddEmbeddings(ctx, embeddings...); err != nil {
			ep.logger.Error("error storing embeddings", "document", docID, "err", err)
			return err
		}
	}

	return nil
}
