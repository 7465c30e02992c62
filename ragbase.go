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

package ragbase

import (
	"context"
	"log/slog"

	"github.com/poiesic/ragbase/ai"
	"github.com/poiesic/ragbase/ai/openai"
	"github.com/poiesic/ragbase/config"
	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/crawl"
	"github.com/poiesic/ragbase/pipeline"
	"github.com/poiesic/ragbase/ratelimit"
	"github.com/poiesic/ragbase/retry"
	"github.com/poiesic/ragbase/search"
	"github.com/poiesic/ragbase/storage"
	"github.com/poiesic/ragbase/storage/badger"
	"github.com/poiesic/ragbase/textproc"
)

// System wires storage, AI services, rate limiting, and retry policy
// together from a single configuration. It is the entry point for
// embedding ragbase in an application.
type System struct {
	cfg           *config.Config
	backend       *badger.Backend
	documentRepo  storage.DocumentRepository
	chunkRepo     storage.ChunkRepository
	embeddingRepo storage.EmbeddingRepository
	provider      ai.Provider
	limiter       *ratelimit.Limiter
	retryPolicy   retry.Policy
	stopCleanup   func()
	logger        *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	provider ai.Provider
	logger   *slog.Logger
}

// WithProvider replaces the OpenAI-compatible provider built from the
// configuration. Useful for testing with mock services.
func WithProvider(provider ai.Provider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithSystemLogger attaches a structured logger.
func WithSystemLogger(logger *slog.Logger) SystemOption {
	return func(o *systemOptions) {
		o.logger = logger
	}
}

// Open builds a System from the given configuration. The configuration
// must already be validated; config.Load, config.LoadFile, and
// config.Parse all validate before returning.
func Open(cfg *config.Config, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		return nil, err
	}

	// Create document repository
	documentRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create chunk repository
	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	// Create embedding repository
	embeddingRepo, err := badger.NewEmbeddingRepository(backend)
	if err != nil {
		chunkRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(cfg.AI.EmbeddingHost),
			ai.WithGeneratorHost(cfg.AI.GeneratorHost),
			ai.WithEmbeddingModel(cfg.AI.EmbeddingModel),
			ai.WithGeneratorModel(cfg.AI.GeneratorModel),
			ai.WithMaxTokens(cfg.AI.MaxTokens),
			ai.WithTemperature(cfg.AI.Temperature),
		)
		provider, err = openai.NewProvider(aiConfig)
		if err != nil {
			embeddingRepo.Close()
			chunkRepo.Close()
			documentRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	limiterOpts := []ratelimit.Option{ratelimit.WithLogger(options.logger)}
	for key, kc := range cfg.RateLimit.Keys {
		limiterOpts = append(limiterOpts, ratelimit.WithKeyConfig(key, kc.Capacity, kc.RefillRate))
	}
	limiter, err := ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate, limiterOpts...)
	if err != nil {
		provider.Close()
		embeddingRepo.Close()
		chunkRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	var stopCleanup func()
	if cfg.RateLimit.CleanupInterval.Duration > 0 {
		interval := cfg.RateLimit.CleanupInterval.Duration
		stopCleanup = limiter.StartCleanup(interval, 2*interval)
	}

	return &System{
		cfg:           cfg,
		backend:       backend,
		documentRepo:  documentRepo,
		chunkRepo:     chunkRepo,
		embeddingRepo: embeddingRepo,
		provider:      provider,
		limiter:       limiter,
		retryPolicy:   retryPolicyFromConfig(cfg.Retry),
		stopCleanup:   stopCleanup,
		logger:        options.logger,
	}, nil
}

func retryPolicyFromConfig(rc config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts:    rc.MaxAttempts,
		BaseDelay:      rc.BaseDelay.Duration,
		MaxDelay:       rc.MaxDelay.Duration,
		Multiplier:     rc.Multiplier,
		JitterFraction: rc.JitterFraction,
	}
}

func (s *System) Close() error {
	if s.stopCleanup != nil {
		s.stopCleanup()
	}

	// Close AI provider first
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := s.embeddingRepo.Close(); err != nil {
		s.logger.Error("error closing embedding repository", "err", err)
		return err
	}
	if err := s.chunkRepo.Close(); err != nil {
		s.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := s.documentRepo.Close(); err != nil {
		s.logger.Error("error closing document repository", "err", err)
		return err
	}

	// Close backend
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (s *System) DocumentRepository() storage.DocumentRepository {
	return s.documentRepo
}

func (s *System) ChunkRepository() storage.ChunkRepository {
	return s.chunkRepo
}

func (s *System) EmbeddingRepository() storage.EmbeddingRepository {
	return s.embeddingRepo
}

func (s *System) Provider() ai.Provider {
	return s.provider
}

func (s *System) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// NewFetcher builds a crawler configured from the system settings.
// Fetch requests share the system rate limiter and retry policy.
func (s *System) NewFetcher(opts ...crawl.FetcherOption) (*crawl.Fetcher, error) {
	validator := crawl.NewValidator(
		crawl.WithAllowedSchemes(s.cfg.Crawl.AllowedSchemes...),
		crawl.WithBlockedDomains(s.cfg.Crawl.BlockedDomains...),
	)
	base := []crawl.FetcherOption{
		crawl.WithValidator(validator),
		crawl.WithUserAgent(s.cfg.Crawl.UserAgent),
		crawl.WithMaxBodySize(s.cfg.Crawl.MaxBodySize),
		crawl.WithLimiter(s.limiter),
		crawl.WithRetryPolicy(s.retryPolicy),
		crawl.WithFetcherLogger(s.logger),
	}
	return crawl.NewFetcher(append(base, opts...)...)
}

// NewPipeline builds an ingestion pipeline over the system repositories.
func (s *System) NewPipeline(opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	chunker, err := textproc.NewChunker(
		textproc.WithChunkSize(s.cfg.Pipeline.ChunkSize),
		textproc.WithOverlap(s.cfg.Pipeline.ChunkOverlap),
	)
	if err != nil {
		return nil, err
	}
	base := []pipeline.Option{
		pipeline.WithChunker(chunker),
		pipeline.WithRetryPolicy(s.retryPolicy),
		pipeline.WithLimiter(s.limiter),
		pipeline.WithLogger(s.logger),
	}
	if s.cfg.Pipeline.PoolSize > 0 {
		base = append(base, pipeline.WithPoolSize(s.cfg.Pipeline.PoolSize))
	}
	return pipeline.NewPipeline(s.documentRepo, s.chunkRepo, s.embeddingRepo, s.provider, append(base, opts...)...)
}

// NewRetriever builds a retriever over the system embedding store.
func (s *System) NewRetriever(opts ...search.Option) (*search.Retriever, error) {
	base := []search.Option{
		search.WithRetryPolicy(s.retryPolicy),
		search.WithLimiter(s.limiter),
		search.WithLogger(s.logger),
	}
	return search.NewRetriever(s.embeddingRepo, s.provider, append(base, opts...)...)
}

// Stats reports store-wide counts.
type Stats struct {
	Documents  int
	Embeddings int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Stats counts documents and embeddings, broken down by document status.
func (s *System) Stats(ctx context.Context) (*Stats, error) {
	documents, err := s.documentRepo.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	embeddings, err := s.embeddingRepo.CountEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Documents:  documents,
		Embeddings: embeddings,
	}
	for status, target := range map[core.DocumentStatus]*int{
		core.DocumentStatusPending:    &stats.Pending,
		core.DocumentStatusProcessing: &stats.Processing,
		core.DocumentStatusCompleted:  &stats.Completed,
		core.DocumentStatusFailed:     &stats.Failed,
	} {
		docs, err := s.documentRepo.GetDocumentsByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		*target = len(docs)
	}
	return stats, nil
}
