package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b
// hashing, so identical content always produces the same ID.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentStatus tracks a document through the pipeline.
type DocumentStatus int

const (
	// DocumentStatusPending marks a freshly crawled, unprocessed document.
	DocumentStatusPending DocumentStatus = iota + 1
	// DocumentStatusProcessing marks a document being chunked and embedded.
	DocumentStatusProcessing
	// DocumentStatusCompleted marks a fully processed document.
	DocumentStatusCompleted
	// DocumentStatusFailed marks a document whose processing failed.
	DocumentStatusFailed
)

// String returns the lowercase status name.
func (s DocumentStatus) String() string {
	switch s {
	case DocumentStatusPending:
		return "pending"
	case DocumentStatusProcessing:
		return "processing"
	case DocumentStatusCompleted:
		return "completed"
	case DocumentStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Document is a crawled document with metadata, ready for processing or
// already processed.
type Document struct {
	Id          ID
	URL         string
	Title       string
	Content     string
	ContentType string
	Language    string
	Status      DocumentStatus
	Checksum    ID // content hash, for change detection
	Metadata    map[string]string
	CrawledAt   time.Time
	ProcessedAt time.Time // zero until processing completes
	InsertedAt  time.Time // when the record was inserted into storage
	UpdatedAt   time.Time // when the record was last updated
}

// MarkProcessing marks the document as being processed.
func (d *Document) MarkProcessing() {
	d.Status = DocumentStatusProcessing
}

// MarkCompleted marks the document as successfully processed.
func (d *Document) MarkCompleted() {
	d.Status = DocumentStatusCompleted
	d.ProcessedAt = time.Now().UTC()
}

// MarkFailed marks the document's processing as failed and records the
// reason under the "error" metadata key.
func (d *Document) MarkFailed(reason string) {
	d.Status = DocumentStatusFailed
	if d.Metadata == nil {
		d.Metadata = make(map[string]string, 1)
	}
	d.Metadata["error"] = reason
}

// CrawlResult describes the outcome of crawling a single URL.
type CrawlResult struct {
	URL           string
	Success       bool
	Document      *Document // nil when the crawl failed
	ErrorMessage  string
	StatusCode    int
	ResponseTime  time.Duration
	RedirectChain []string
	CrawledAt     time.Time
}

// TextChunk is a processed slice of a document, ready for embedding.
// Prev/Next links preserve the chunk's context within the document.
type TextChunk struct {
	Id           ID
	DocumentId   ID
	Content      string
	Index        int // position within the parent document
	StartChar    int
	EndChar      int
	TokenCount   int
	Language     string
	SectionTitle string
	PrevChunkId  ID // zero when first
	NextChunkId  ID // zero when last
	Metadata     map[string]string
	CreatedAt    time.Time
}

// Length returns the content length in characters.
func (c *TextChunk) Length() int {
	return len(c.Content)
}

// WordCount returns the approximate word count.
func (c *TextChunk) WordCount() int {
	return len(strings.Fields(c.Content))
}

// Embedding is a vector embedding of text content with the metadata needed
// for storage and retrieval.
type Embedding struct {
	Id         ID
	DocumentId ID
	ChunkId    ID
	Text       string
	Vector     []float32
	ModelName  string
	Dimension  int
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Query is a user query with its search parameters.
type Query struct {
	Id         ID
	Text       string
	UserId     string
	SessionId  string
	Language   string
	MaxResults int
	Filters    map[string]string
	CreatedAt  time.Time
}

// Response is a generated answer to a query, with source attribution.
type Response struct {
	Id             ID
	QueryId        ID
	Text           string
	Confidence     float32
	Sources        []ID // document IDs the answer drew on
	ModelName      string
	TokenCount     int
	GenerationTime time.Duration
	CreatedAt      time.Time
}

// SearchResult pairs a stored embedding with its relevance score.
type SearchResult struct {
	Embedding *Embedding
	Score     float32
}
