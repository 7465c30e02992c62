package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/poiesic/ragbase/ai"
	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/ratelimit"
	"github.com/poiesic/ragbase/retry"
	"github.com/poiesic/ragbase/storage"
)

// queryLimitKey is the rate limiter key shared by all query-time AI calls.
const queryLimitKey = "queries"

// defaultMinSimilarity is the cosine similarity floor for vector matches.
const defaultMinSimilarity = 0.60

// verbatimBoost is added to the score of a match whose text contains
// every significant query word.
const verbatimBoost = 0.3

// Retriever provides semantic search over stored embeddings and
// grounded answer generation.
type Retriever struct {
	embeddingRepository storage.EmbeddingRepository
	embedder            ai.Embedder
	generator           ai.Generator
	exec                *retry.Executor
	minSimilarity       float32
	retryPolicy         retry.Policy
	limiter             *ratelimit.Limiter
	logger              *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the similarity floor for vector matches.
// Default is 0.60.
func WithMinSimilarity(min float32) Option {
	return func(r *Retriever) error {
		r.minSimilarity = min
		return nil
	}
}

// WithRetryPolicy sets the retry policy applied to AI calls.
// Default is retry.DefaultPolicy().
func WithRetryPolicy(policy retry.Policy) Option {
	return func(r *Retriever) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		r.retryPolicy = policy
		return nil
	}
}

// WithLimiter sets a rate limiter that gates every AI call, including
// retries.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(r *Retriever) error {
		r.limiter = l
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(
	embeddingRepository storage.EmbeddingRepository,
	provider ai.Provider,
	opts ...Option,
) (*Retriever, error) {
	if embeddingRepository == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	r := &Retriever{
		embeddingRepository: embeddingRepository,
		embedder:            provider.Embedder(),
		generator:           provider.Generator(),
		minSimilarity:       defaultMinSimilarity,
		retryPolicy:         retry.DefaultPolicy(),
		logger:              slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	retryOpts := []retry.Option{retry.WithLogger(r.logger)}
	if r.limiter != nil {
		retryOpts = append(retryOpts, retry.WithLimiter(r.limiter, queryLimitKey))
	}
	exec, err := retry.New(r.retryPolicy, retryOpts...)
	if err != nil {
		return nil, err
	}
	r.exec = exec

	return r, nil
}

// FindSimilar searches for stored embeddings similar to the query.
// Returns up to maxHits results, ranked by relevance score.
func (r *Retriever) FindSimilar(ctx context.Context, query string, maxHits int) ([]*core.SearchResult, error) {
	return r.FindSimilarWithMonitor(ctx, query, maxHits, nil)
}

// FindSimilarWithMonitor searches for stored embeddings similar to the query
// with monitoring. The monitor receives callbacks at each stage of the search.
// Returns up to maxHits results, ranked by relevance score.
func (r *Retriever) FindSimilarWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if maxHits < 1 {
		return nil, ErrInvalidMaxHits
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	// 1. Embed the query, retrying transient provider failures
	vector, err := retry.DoValue(ctx, r.exec, func(ctx context.Context) ([]float32, error) {
		return r.embedder.EmbedText(ctx, query)
	})
	if err != nil {
		r.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	vector = NormalizeVector(vector)
	monitor.AfterQueryEmbedding(len(vector))

	// 2. Vector search
	matches, err := r.embeddingRepository.FindSimilar(ctx, vector, r.minSimilarity, maxHits)
	if err != nil {
		r.logger.Error("error querying for similar embeddings", "err", err)
		return nil, err
	}

	ids := make([]uint64, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, uint64(match.Embedding.Id))
	}
	monitor.AfterVectorSearch(ids)

	// 3. Boost matches that contain every significant query word verbatim
	for _, match := range matches {
		if containsAllQueryWords(match.Embedding.Text, query) {
			match.Score += verbatimBoost
			monitor.VerbatimHit(match.Embedding)
		}
	}

	// Re-rank after boosting
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > maxHits {
		matches = matches[:maxHits]
	}
	monitor.Finish(matches)

	return matches, nil
}

// Answer retrieves passages relevant to the query and generates a grounded
// answer with source attribution.
func (r *Retriever) Answer(ctx context.Context, query *core.Query) (*core.Response, error) {
	if err := core.ValidateQuery(query); err != nil {
		return nil, err
	}

	matches, err := r.FindSimilar(ctx, query.Text, query.MaxResults)
	if err != nil {
		return nil, err
	}

	passages := make([]string, len(matches))
	for i, match := range matches {
		passages[i] = match.Embedding.Text
	}

	started := time.Now()
	answer, err := retry.DoValue(ctx, r.exec, func(ctx context.Context) (string, error) {
		return r.generator.Generate(ctx, query.Text, passages)
	})
	if err != nil {
		r.logger.Error("error generating answer", "query", query.Text, "err", err)
		return nil, err
	}

	// Attribute source documents, deduplicated, best match first
	seen := make(map[core.ID]bool)
	sources := make([]core.ID, 0, len(matches))
	for _, match := range matches {
		if !seen[match.Embedding.DocumentId] {
			seen[match.Embedding.DocumentId] = true
			sources = append(sources, match.Embedding.DocumentId)
		}
	}

	var confidence float32
	if len(matches) > 0 {
		confidence = matches[0].Score
		if confidence > 1 {
			confidence = 1
		}
	}

	return &core.Response{
		Id:             core.IDFromContent(query.Text + answer),
		QueryId:        query.Id,
		Text:           answer,
		Confidence:     confidence,
		Sources:        sources,
		ModelName:      r.generator.ModelName(),
		TokenCount:     len(answer) / 4,
		GenerationTime: time.Since(started),
		CreatedAt:      time.Now().UTC(),
	}, nil
}
