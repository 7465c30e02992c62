package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/ragbase/ai"
	"github.com/poiesic/ragbase/ai/mock"
	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/ratelimit"
	"github.com/poiesic/ragbase/retry"
	"github.com/poiesic/ragbase/storage"
	"github.com/poiesic/ragbase/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyEmbedder fails a configurable number of times before delegating
// to a mock embedder.
type flakyEmbedder struct {
	inner     ai.Embedder
	failures  int
	callCount int
}

func (f *flakyEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return nil, errors.New("embedder unavailable")
	}
	return f.inner.EmbedText(ctx, text)
}

func (f *flakyEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return nil, errors.New("embedder unavailable")
	}
	return f.inner.EmbedTexts(ctx, texts)
}

func (f *flakyEmbedder) ModelName() string {
	return f.inner.ModelName()
}

func setupTestRepositories(t *testing.T) (storage.DocumentRepository, storage.ChunkRepository, storage.EmbeddingRepository) {
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

func fastRetryExecutor(t *testing.T) *retry.Executor {
	exec, err := retry.New(retry.Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       10 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	})
	require.NoError(t, err)
	return exec
}

func storedDocument(t *testing.T, docRepo storage.DocumentRepository, chunkRepo storage.ChunkRepository, numChunks int) *core.Document {
	ctx := context.Background()

	doc := &core.Document{
		URL:       "https://example.com/article",
		Title:     "Test Article",
		Content:   "Some article content.",
		Status:    core.DocumentStatusPending,
		CrawledAt: time.Now().UTC(),
	}
	added, err := docRepo.AddDocuments(ctx, doc)
	require.NoError(t, err)
	doc = added[0]

	chunks := make([]*core.TextChunk, numChunks)
	for i := 0; i < numChunks; i++ {
		chunks[i] = &core.TextChunk{
			DocumentId: doc.Id,
			Content:    fmt.Sprintf("Chunk %d of the test article.", i),
			Index:      i,
		}
	}
	_, err = chunkRepo.AddChunks(ctx, chunks...)
	require.NoError(t, err)

	return doc
}

func TestNewPipeline_Validation(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	provider := mock.NewMockProvider()

	tests := []struct {
		name     string
		docs     storage.DocumentRepository
		chunks   storage.ChunkRepository
		embs     storage.EmbeddingRepository
		provider ai.Provider
		wantErr  error
	}{
		{"missing document repository", nil, chunkRepo, embRepo, provider, ErrDocumentRepositoryRequired},
		{"missing chunk repository", docRepo, nil, embRepo, provider, ErrChunkRepositoryRequired},
		{"missing embedding repository", docRepo, chunkRepo, nil, provider, ErrEmbeddingRepositoryRequired},
		{"missing provider", docRepo, chunkRepo, embRepo, nil, ErrProviderRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.docs, tt.chunks, tt.embs, tt.provider)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEmbeddingProcessor_Process(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	ctx := context.Background()

	doc := storedDocument(t, docRepo, chunkRepo, 3)

	embedder := mock.NewMockEmbedder()
	proc, err := newEmbeddingProcessor(chunkRepo, embRepo, embedder, fastRetryExecutor(t), nil)
	require.NoError(t, err)

	err = proc.process(ctx, doc.Id)
	require.NoError(t, err)

	stored, err := embRepo.GetEmbeddingsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	for _, emb := range stored {
		assert.Equal(t, doc.Id, emb.DocumentId)
		assert.NotZero(t, emb.ChunkId)
		assert.Equal(t, embedder.ModelName(), emb.ModelName)
		assert.Equal(t, len(emb.Vector), emb.Dimension)
		assert.NotEmpty(t, emb.Vector)
	}
}

func TestEmbeddingProcessor_NormalizesVectors(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	ctx := context.Background()

	doc := storedDocument(t, docRepo, chunkRepo, 2)

	// Providers are not guaranteed to return unit-length vectors
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{3, 4}
		}
		return vectors, nil
	}

	proc, err := newEmbeddingProcessor(chunkRepo, embRepo, embedder, fastRetryExecutor(t), nil)
	require.NoError(t, err)
	require.NoError(t, proc.process(ctx, doc.Id))

	stored, err := embRepo.GetEmbeddingsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	// Similarity search treats the dot product as cosine similarity, so
	// stored vectors must be unit length
	for _, emb := range stored {
		require.Len(t, emb.Vector, 2)
		assert.InDelta(t, 0.6, emb.Vector[0], 0.001)
		assert.InDelta(t, 0.8, emb.Vector[1], 0.001)

		var magnitude float32
		for _, v := range emb.Vector {
			magnitude += v * v
		}
		assert.InDelta(t, 1.0, magnitude, 0.001, "stored vector should be unit length")
	}
}

func TestEmbeddingProcessor_NoChunks(t *testing.T) {
	_, chunkRepo, embRepo := setupTestRepositories(t)
	ctx := context.Background()

	proc, err := newEmbeddingProcessor(chunkRepo, embRepo, mock.NewMockEmbedder(), fastRetryExecutor(t), nil)
	require.NoError(t, err)

	// A document with no chunks is not an error
	err = proc.process(ctx, core.IDFromContent("no chunks"))
	require.NoError(t, err)
}

func TestEmbeddingProcessor_RetriesTransientFailures(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	ctx := context.Background()

	doc := storedDocument(t, docRepo, chunkRepo, 2)

	embedder := &flakyEmbedder{inner: mock.NewMockEmbedder(), failures: 2}
	proc, err := newEmbeddingProcessor(chunkRepo, embRepo, embedder, fastRetryExecutor(t), nil)
	require.NoError(t, err)

	err = proc.process(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, 3, embedder.callCount)

	stored, err := embRepo.GetEmbeddingsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestEmbeddingProcessor_ExhaustedRetries(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	ctx := context.Background()

	doc := storedDocument(t, docRepo, chunkRepo, 1)

	embedder := &flakyEmbedder{inner: mock.NewMockEmbedder(), failures: 10}
	proc, err := newEmbeddingProcessor(chunkRepo, embRepo, embedder, fastRetryExecutor(t), nil)
	require.NoError(t, err)

	err = proc.process(ctx, doc.Id)
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrRetryExhausted)
}

func successfulCrawl(url, content string) *core.CrawlResult {
	return &core.CrawlResult{
		URL:     url,
		Success: true,
		Document: &core.Document{
			URL:       url,
			Title:     "Test Page",
			Content:   content,
			Status:    core.DocumentStatusPending,
			Checksum:  core.IDFromContent(content),
			CrawledAt: time.Now().UTC(),
		},
		StatusCode: 200,
		CrawledAt:  time.Now().UTC(),
	}
}

func TestPipeline_Ingest(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	ctx := context.Background()

	limiter, err := ratelimit.New(100, 100)
	require.NoError(t, err)

	p, err := NewPipeline(docRepo, chunkRepo, embRepo, mock.NewMockProvider(),
		WithPoolSize(1),
		WithLimiter(limiter),
		WithRetryPolicy(retry.Policy{
			MaxAttempts:    2,
			BaseDelay:      time.Millisecond,
			MaxDelay:       10 * time.Millisecond,
			Multiplier:     2.0,
			JitterFraction: 0,
		}),
	)
	require.NoError(t, err)
	defer p.Release()

	results := []*core.CrawlResult{
		successfulCrawl("https://example.com/one", "Go is a statically typed, compiled language."),
		{URL: "https://example.com/broken", Success: false, ErrorMessage: "connection refused"},
		successfulCrawl("https://example.com/two", "BadgerDB is an embeddable key-value store."),
	}

	ingested, err := p.Ingest(ctx, results...)
	require.NoError(t, err)
	require.Len(t, ingested, 2)

	// Documents and chunks are stored synchronously
	count, err := docRepo.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	chunks, err := chunkRepo.GetChunksByDocument(ctx, ingested[0].Id)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)

	// Embeddings arrive asynchronously
	require.Eventually(t, func() bool {
		n, err := embRepo.CountEmbeddings(ctx)
		return err == nil && n >= 2
	}, 5*time.Second, 10*time.Millisecond)

	// Documents end up completed
	require.Eventually(t, func() bool {
		completed, err := docRepo.GetDocumentsByStatus(ctx, core.DocumentStatusCompleted)
		return err == nil && len(completed) == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPipeline_Ingest_DuplicateURL(t *testing.T) {
	docRepo, chunkRepo, embRepo := setupTestRepositories(t)
	ctx := context.Background()

	p, err := NewPipeline(docRepo, chunkRepo, embRepo, mock.NewMockProvider(), WithPoolSize(1))
	require.NoError(t, err)
	defer p.Release()

	first, err := p.Ingest(ctx, successfulCrawl("https://example.com/page", "Some content here."))
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Same URL again is skipped, not an error
	second, err := p.Ingest(ctx, successfulCrawl("https://example.com/page", "Changed content."))
	require.NoError(t, err)
	assert.Empty(t, second)

	count, err := docRepo.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
