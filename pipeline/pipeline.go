package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragbase/ai"
	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/ratelimit"
	"github.com/poiesic/ragbase/retry"
	"github.com/poiesic/ragbase/storage"
	"github.com/poiesic/ragbase/textproc"
)

// embeddingLimitKey is the rate limiter key shared by all embedding calls.
const embeddingLimitKey = "embeddings"

// Pipeline orchestrates ingestion of crawled content.
// Crawl results are cleaned, chunked, and stored synchronously;
// embedding generation runs asynchronously on a worker pool.
type Pipeline struct {
	documentRepository  storage.DocumentRepository
	chunkRepository     storage.ChunkRepository
	embeddingRepository storage.EmbeddingRepository
	textProcessor       *textproc.Processor
	chunker             *textproc.Chunker
	embeddingPool       *ants.Pool
	embeddingProc       processor
	retryPolicy         retry.Policy
	limiter             *ratelimit.Limiter
	logger              *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		p.embeddingPool = embeddingPool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithRetryPolicy sets the retry policy applied to embedding calls.
// Default is retry.DefaultPolicy().
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		p.retryPolicy = policy
		return nil
	}
}

// WithLimiter sets a rate limiter that gates every embedding call,
// including retries.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(p *Pipeline) error {
		p.limiter = l
		return nil
	}
}

// WithChunker sets a custom chunker.
func WithChunker(c *textproc.Chunker) Option {
	return func(p *Pipeline) error {
		if c == nil {
			return errors.New("chunker required")
		}
		p.chunker = c
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documentRepository storage.DocumentRepository,
	chunkRepository storage.ChunkRepository,
	embeddingRepository storage.EmbeddingRepository,
	provider ai.Provider,
	opts ...Option,
) (*Pipeline, error) {
	if documentRepository == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embeddingRepository == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	chunker, err := textproc.NewChunker()
	if err != nil {
		embeddingPool.Release()
		return nil, err
	}

	p := &Pipeline{
		documentRepository:  documentRepository,
		chunkRepository:     chunkRepository,
		embeddingRepository: embeddingRepository,
		textProcessor:       textproc.New(),
		chunker:             chunker,
		embeddingPool:       embeddingPool,
		retryPolicy:         retry.DefaultPolicy(),
		logger:              slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Build the retry executor after options are applied so it sees
	// the final policy and limiter
	retryOpts := []retry.Option{retry.WithLogger(p.logger)}
	if p.limiter != nil {
		retryOpts = append(retryOpts, retry.WithLimiter(p.limiter, embeddingLimitKey))
	}
	exec, err := retry.New(p.retryPolicy, retryOpts...)
	if err != nil {
		p.Release()
		return nil, err
	}

	embeddingProc, err := newEmbeddingProcessor(chunkRepository, embeddingRepository,
		provider.Embedder(), exec, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	p.embeddingProc = embeddingProc

	return p, nil
}

// Ingest stores successful crawl results and schedules their chunks for
// embedding. Content is cleaned and chunked synchronously; embedding
// generation runs asynchronously and its errors are logged, not returned.
// Already stored URLs are skipped. Returns the documents stored.
func (p *Pipeline) Ingest(ctx context.Context, results ...*core.CrawlResult) ([]*core.Document, error) {
	var ingested []*core.Document

	for _, result := range results {
		if !result.Success || result.Document == nil {
			p.logger.Warn("skipping failed crawl", "url", result.URL, "err", result.ErrorMessage)
			continue
		}

		doc := result.Document
		doc.Content = p.textProcessor.Clean(doc.Content)
		if doc.Content == "" {
			p.logger.Warn("skipping document with no content after cleaning", "url", doc.URL)
			continue
		}

		added, err := p.documentRepository.AddDocuments(ctx, doc)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				p.logger.Debug("document already stored", "url", doc.URL)
				continue
			}
			return ingested, err
		}
		doc = added[0]

		chunks, err := p.chunker.Chunk(doc.Id, doc.Content)
		if err != nil {
			return ingested, err
		}

		chunkPtrs := make([]*core.TextChunk, len(chunks))
		for i := range chunks {
			chunkPtrs[i] = &chunks[i]
		}
		if _, err := p.chunkRepository.AddChunks(ctx, chunkPtrs...); err != nil {
			return ingested, err
		}

		doc.MarkProcessing()
		if _, err := p.documentRepository.UpdateDocuments(ctx, doc); err != nil {
			return ingested, err
		}

		ingested = append(ingested, doc)
		p.scheduleEmbedding(doc.Id)
	}

	return ingested, nil
}

// scheduleEmbedding submits a document for async embedding generation.
// The document is marked completed or failed when processing finishes.
func (p *Pipeline) scheduleEmbedding(documentID core.ID) {
	p.embeddingPool.Submit(func() {
		ctx := context.Background()

		if err := p.embeddingProc.process(ctx, documentID); err != nil {
			p.logger.Error("error processing embeddings", "document", documentID, "err", err)
			p.setDocumentFailed(ctx, documentID, err)
			return
		}
		p.setDocumentCompleted(ctx, documentID)
	})
}

func (p *Pipeline) setDocumentCompleted(ctx context.Context, documentID core.ID) {
	doc, err := p.documentRepository.GetDocument(ctx, documentID)
	if err != nil {
		p.logger.Error("error loading document for status update", "document", documentID, "err", err)
		return
	}
	doc.MarkCompleted()
	if _, err := p.documentRepository.UpdateDocuments(ctx, doc); err != nil {
		p.logger.Error("error marking document completed", "document", documentID, "err", err)
	}
}

func (p *Pipeline) setDocumentFailed(ctx context.Context, documentID core.ID, cause error) {
	doc, err := p.documentRepository.GetDocument(ctx, documentID)
	if err != nil {
		p.logger.Error("error loading document for status update", "document", documentID, "err", err)
		return
	}
	doc.MarkFailed(cause.Error())
	if _, err := p.documentRepository.UpdateDocuments(ctx, doc); err != nil {
		p.logger.Error("error marking document failed", "document", documentID, "err", err)
	}
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
