// Package pipeline provides orchestration for ingesting crawled content.
//
// The Pipeline type manages the ingestion workflow for crawl results, including:
//   - Cleaning and chunking document content
//   - Storing documents and chunks
//   - Generating embeddings asynchronously
//
// Embedding generation is performed concurrently using a worker pool, with
// every provider call routed through a retry executor that can be gated by
// a shared rate limiter. Errors during async processing are logged but do
// not fail the ingestion operation.
package pipeline
