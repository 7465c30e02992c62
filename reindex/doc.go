// Package reindex rebuilds stored embeddings with a new or updated
// embedding model.
//
// This package supports batch processing of completed documents, progress
// tracking, and retry with exponential backoff on embedding API calls.
// Existing embeddings are replaced atomically per document so a search
// never mixes vectors from different models.
package reindex
