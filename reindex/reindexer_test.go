package reindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ragbase/ai/mock"
	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/retry"
	"github.com/poiesic/ragbase/storage"
	"github.com/poiesic/ragbase/storage/badger"
)

func setupTestRepositories(t *testing.T) (storage.DocumentRepository, storage.ChunkRepository, storage.EmbeddingRepository) {
	t.Helper()
	docRepo, chunkRepo, embRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		embRepo.Close()
		chunkRepo.Close()
		docRepo.Close()
		backend.Close()
	})
	return docRepo, chunkRepo, embRepo
}

func fastConfig(batchSize, reportInterval int) *Config {
	return &Config{
		BatchSize:      batchSize,
		ReportInterval: reportInterval,
		RetryPolicy: retry.Policy{
			MaxAttempts:    2,
			BaseDelay:      time.Millisecond,
			MaxDelay:       10 * time.Millisecond,
			Multiplier:     2.0,
			JitterFraction: 0,
		},
	}
}

// seedCompletedDocuments stores n completed documents with chunksPer
// chunks each and returns the stored documents.
func seedCompletedDocuments(t *testing.T, docRepo storage.DocumentRepository, chunkRepo storage.ChunkRepository, n, chunksPer int) []*core.Document {
	t.Helper()
	ctx := context.Background()

	docs := make([]*core.Document, n)
	for i := 0; i < n; i++ {
		docs[i] = &core.Document{
			URL:       fmt.Sprintf("https://example.com/doc-%d", i),
			Title:     fmt.Sprintf("Document %d", i),
			Content:   fmt.Sprintf("Content of document %d.", i),
			Status:    core.DocumentStatusCompleted,
			CrawledAt: time.Now().UTC(),
		}
	}
	stored, err := docRepo.AddDocuments(ctx, docs...)
	require.NoError(t, err)

	for _, doc := range stored {
		chunks := make([]*core.TextChunk, chunksPer)
		for j := 0; j < chunksPer; j++ {
			chunks[j] = &core.TextChunk{
				DocumentId: doc.Id,
				Index:      j,
				Content:    fmt.Sprintf("Chunk %d of document %d.", j, doc.Id),
			}
		}
		_, err := chunkRepo.AddChunks(ctx, chunks...)
		require.NoError(t, err)
	}
	return stored
}

func TestReindexer_Run(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	ctx := context.Background()

	docs := seedCompletedDocuments(t, docRepo, chunkRepo, 5, 2)

	// Stale embeddings from a previous model
	for _, doc := range docs {
		_, err := embRepo.AddEmbeddings(ctx, &core.Embedding{
			DocumentId: doc.Id,
			ChunkId:    core.IDFromContent(doc.URL),
			Text:       "stale",
			Vector:     []float32{1, 0, 0},
			ModelName:  "old-model",
			Dimension:  3,
		})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8

	reindexer, err := NewReindexer(docRepo, chunkRepo, embRepo, embedder, fastConfig(2, 2), &buf)
	require.NoError(t, err)
	require.NoError(t, reindexer.Run(ctx))

	for _, doc := range docs {
		embeddings, err := embRepo.GetEmbeddingsByDocument(ctx, doc.Id)
		require.NoError(t, err)
		require.Len(t, embeddings, 2, "document %d should have one embedding per chunk", doc.Id)

		for _, emb := range embeddings {
			assert.Equal(t, "mock-embedder", emb.ModelName)
			assert.Equal(t, 8, emb.Dimension)

			// Verify normalization
			var magnitude float32
			for _, v := range emb.Vector {
				magnitude += v * v
			}
			assert.InDelta(t, 1.0, magnitude, 0.01, "vector should be normalized")
		}
	}

	output := buf.String()
	assert.Contains(t, output, "5/5", "should show completion")
	assert.Contains(t, output, "mock-embedder")
}

func TestReindexer_EmptyStore(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)

	var buf bytes.Buffer
	reindexer, err := NewReindexer(docRepo, chunkRepo, embRepo, mock.NewMockEmbedder(), DefaultConfig(), &buf)
	require.NoError(t, err)
	require.NoError(t, reindexer.Run(context.Background()))

	assert.Contains(t, buf.String(), "0 documents", "should report zero documents")
}

func TestReindexer_SkipsUnfinishedDocuments(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	ctx := context.Background()

	seedCompletedDocuments(t, docRepo, chunkRepo, 2, 1)
	_, err := docRepo.AddDocuments(ctx, &core.Document{
		URL:     "https://example.com/pending",
		Content: "Not processed yet.",
		Status:  core.DocumentStatusPending,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	reindexer, err := NewReindexer(docRepo, chunkRepo, embRepo, mock.NewMockEmbedder(), fastConfig(10, 10), &buf)
	require.NoError(t, err)
	require.NoError(t, reindexer.Run(ctx))

	count, err := embRepo.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "only completed documents get embeddings")
}

func TestReindexer_ContextCancellation(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	seedCompletedDocuments(t, docRepo, chunkRepo, 10, 1)

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel after processing a few
	callCount := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		callCount++
		if callCount == 2 {
			cancel()
		}
		result := make([][]float32, len(texts))
		for i := range result {
			result[i] = []float32{1.0, 0.0, 0.0}
		}
		return result, nil
	}

	var buf bytes.Buffer
	reindexer, err := NewReindexer(docRepo, chunkRepo, embRepo, embedder, fastConfig(1, 1), &buf)
	require.NoError(t, err)

	err = reindexer.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReindexer_EmbeddingError(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	ctx := context.Background()

	docs := seedCompletedDocuments(t, docRepo, chunkRepo, 1, 1)

	// Old embeddings must survive the failure
	_, err := embRepo.AddEmbeddings(ctx, &core.Embedding{
		DocumentId: docs[0].Id,
		ChunkId:    core.IDFromContent("old"),
		Text:       "old",
		Vector:     []float32{0, 1, 0},
		ModelName:  "old-model",
	})
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("persistent error")
	}

	var buf bytes.Buffer
	reindexer, err := NewReindexer(docRepo, chunkRepo, embRepo, embedder, fastConfig(1, 1), &buf)
	require.NoError(t, err)

	err = reindexer.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistent error")

	remaining, err := embRepo.GetEmbeddingsByDocument(ctx, docs[0].Id)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "old-model", remaining[0].ModelName)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Greater(t, config.BatchSize, 0, "batch size should be positive")
	assert.Greater(t, config.ReportInterval, 0, "report interval should be positive")
	assert.NoError(t, config.RetryPolicy.Validate())
}

func TestReindexer_ProgressTracking(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	seedCompletedDocuments(t, docRepo, chunkRepo, 25, 1)

	var buf bytes.Buffer
	reindexer, err := NewReindexer(docRepo, chunkRepo, embRepo, mock.NewMockEmbedder(), fastConfig(5, 10), &buf)
	require.NoError(t, err)
	require.NoError(t, reindexer.Run(context.Background()))

	output := buf.String()
	assert.Contains(t, output, "Progress:", "should show progress")
	assert.Contains(t, output, "25/25", "should show final count")
}
