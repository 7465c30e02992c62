package storage

import (
	"context"
	"time"

	"github.com/poiesic/ragbase/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// FindSimilar finds stored embeddings similar to the given vector.
	// Returns embeddings with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing crawled documents.
type DocumentRepository interface {
	Repository
	// AddDocuments adds one or more documents to storage.
	// Documents with ID=0 get content-based IDs derived from their URL.
	// Sets InsertedAt/UpdatedAt timestamps.
	// Returns ErrDuplicateKey if a document with the same URL already exists.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// UpdateDocuments updates existing documents.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs.
	// Also removes associated indices.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// GetDocumentByURL retrieves a document by its normalized URL.
	// Returns ErrNotFound if no document with that URL exists.
	GetDocumentByURL(ctx context.Context, url string) (*core.Document, error)

	// GetDocumentsByStatus retrieves documents in the given processing state.
	GetDocumentsByStatus(ctx context.Context, status core.DocumentStatus) ([]*core.Document, error)

	// GetDocumentsByDateRange retrieves documents crawled within a time range.
	// Returns documents where start <= CrawledAt < end, ordered by crawl time.
	GetDocumentsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Document, error)

	// GetRecentDocuments retrieves the N most recently crawled documents,
	// most recent first.
	GetRecentDocuments(ctx context.Context, limit int) ([]*core.Document, error)

	// CountDocuments returns the total number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
}

// ChunkRepository provides operations for managing text chunks.
type ChunkRepository interface {
	Repository
	// AddChunks adds one or more chunks to storage.
	// Chunks use content-based IDs; chunks with ID=0 get one derived
	// from their content.
	AddChunks(ctx context.Context, chunks ...*core.TextChunk) ([]*core.TextChunk, error)

	// DeleteChunksByDocument removes all chunks belonging to a document.
	DeleteChunksByDocument(ctx context.Context, documentID core.ID) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.TextChunk, error)

	// GetChunksByDocument retrieves all chunks of a document ordered by Index.
	GetChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.TextChunk, error)
}

// EmbeddingRepository provides operations for managing vector embeddings.
type EmbeddingRepository interface {
	Repository
	// AddEmbeddings adds one or more embeddings to storage.
	// Embeddings with ID=0 get content-based IDs derived from their
	// text and model name.
	AddEmbeddings(ctx context.Context, embeddings ...*core.Embedding) ([]*core.Embedding, error)

	// DeleteEmbeddings removes embeddings by their IDs.
	// Returns ErrNotFound if any embedding doesn't exist.
	DeleteEmbeddings(ctx context.Context, ids ...core.ID) error

	// DeleteEmbeddingsByDocument removes all embeddings belonging to a document.
	DeleteEmbeddingsByDocument(ctx context.Context, documentID core.ID) error

	// GetEmbedding retrieves a single embedding by ID.
	// Returns ErrNotFound if the embedding doesn't exist.
	GetEmbedding(ctx context.Context, id core.ID) (*core.Embedding, error)

	// GetEmbeddingsByDocument retrieves all embeddings of a document.
	GetEmbeddingsByDocument(ctx context.Context, documentID core.ID) ([]*core.Embedding, error)

	// CountEmbeddings returns the total number of stored embeddings.
	CountEmbeddings(ctx context.Context) (int, error)
}
