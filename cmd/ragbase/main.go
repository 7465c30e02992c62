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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/ragbase"
	"github.com/poiesic/ragbase/ai"
	"github.com/poiesic/ragbase/ai/openai"
	"github.com/poiesic/ragbase/config"
	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/reindex"
	"github.com/poiesic/ragbase/retry"
	"github.com/poiesic/ragbase/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "ragbase",
		Usage: "Retrieval-augmented question answering over crawled documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML configuration file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Crawl URLs and add them to the document store",
				ArgsUsage: "URL [URL ...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to BadgerDB database directory",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.DurationFlag{
						Name:  "wait-timeout",
						Usage: "How long to wait for embedding generation to finish",
						Value: 5 * time.Minute,
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Ask a question over the ingested documents",
				ArgsUsage: "QUESTION",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to BadgerDB database directory",
					},
					&cli.StringFlag{
						Name:  "generator-host",
						Usage: "Answer generation service host URL",
					},
					&cli.StringFlag{
						Name:  "generator-model",
						Usage: "Answer generation model name",
					},
					&cli.IntFlag{
						Name:    "max-results",
						Aliases: []string{"n"},
						Usage:   "Maximum number of passages to retrieve",
						Value:   5,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show document and embedding counts",
				Action: statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to BadgerDB database directory",
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed all completed documents with a new embedding model",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch",
						Value: reindex.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: reindex.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig builds the effective configuration from the optional config
// file plus command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if v := c.String("db"); v != "" {
		cfg.Storage.Path = v
	}
	if v := c.String("embedding-host"); c.IsSet("embedding-host") && v != "" {
		cfg.AI.EmbeddingHost = v
	}
	if v := c.String("embedding-model"); c.IsSet("embedding-model") && v != "" {
		cfg.AI.EmbeddingModel = v
	}
	if v := c.String("generator-host"); c.IsSet("generator-host") && v != "" {
		cfg.AI.GeneratorHost = v
	}
	if v := c.String("generator-model"); c.IsSet("generator-model") && v != "" {
		cfg.AI.GeneratorModel = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	urls := c.Args().Slice()
	if len(urls) == 0 {
		return fmt.Errorf("at least one URL is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	sys, err := ragbase.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer sys.Close()

	fetcher, err := sys.NewFetcher()
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	pipe, err := sys.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipe.Release()

	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(os.Stderr, "Crawling %d URLs\n\n", len(urls))

	results := fetcher.FetchAll(ctx, urls)
	for _, result := range results {
		if result.Success {
			fmt.Fprintf(os.Stderr, "  fetched %s\n", result.URL)
		} else {
			fmt.Fprintf(os.Stderr, "  failed  %s: %s\n", result.URL, result.ErrorMessage)
		}
	}

	ingested, err := pipe.Ingest(ctx, results...)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "\nIngested %d new documents, embedding in background\n", len(ingested))

	if len(ingested) > 0 {
		if err := waitForEmbeddings(ctx, sys, c.Duration("wait-timeout")); err != nil {
			return err
		}
	}

	stats, err := sys.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Store now holds %d documents and %d embeddings\n",
		stats.Documents, stats.Embeddings)
	return nil
}

// waitForEmbeddings polls until no document is left in the processing
// state or the timeout elapses.
func waitForEmbeddings(ctx context.Context, sys *ragbase.System, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		stats, err := sys.Stats(ctx)
		if err != nil {
			return err
		}
		if stats.Processing == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %d documents to finish embedding", stats.Processing)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func queryCommand(c *cli.Context) error {
	ctx := context.Background()

	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	sys, err := ragbase.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer sys.Close()

	retriever, err := sys.NewRetriever()
	if err != nil {
		return fmt.Errorf("failed to create retriever: %w", err)
	}

	response, err := retriever.Answer(ctx, &core.Query{
		Text:       question,
		MaxResults: c.Int("max-results"),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Println(response.Text)
	fmt.Fprintf(os.Stderr, "\nconfidence: %.2f  model: %s  sources: %d  took: %v\n",
		response.Confidence, response.ModelName, len(response.Sources),
		response.GenerationTime.Round(time.Millisecond))
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	sys, err := ragbase.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer sys.Close()

	stats, err := sys.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	fmt.Printf("Documents:  %d\n", stats.Documents)
	fmt.Printf("  pending:    %d\n", stats.Pending)
	fmt.Printf("  processing: %d\n", stats.Processing)
	fmt.Printf("  completed:  %d\n", stats.Completed)
	fmt.Printf("  failed:     %d\n", stats.Failed)
	fmt.Printf("Embeddings: %d\n", stats.Embeddings)
	return nil
}

func reindexCommand(c *cli.Context) error {
	ctx := context.Background()

	dbPath := c.String("db")
	if dbPath == "" {
		return fmt.Errorf("database path is required")
	}

	// Open database
	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	docRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create document repository: %w", err)
	}
	defer docRepo.Close()

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create chunk repository: %w", err)
	}
	defer chunkRepo.Close()

	embRepo, err := badger.NewEmbeddingRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create embedding repository: %w", err)
	}
	defer embRepo.Close()

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = c.Int("max-retries")
	policy.BaseDelay = c.Duration("retry-delay")

	reindexConfig := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		RetryPolicy:    policy,
	}

	reindexer, err := reindex.NewReindexer(docRepo, chunkRepo, embRepo, embedder, reindexConfig, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create reindexer: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reindexer.Run(ctx); err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}

	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
