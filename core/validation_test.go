package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDocument(t *testing.T) {
	validTime := time.Now().Add(-1 * time.Hour)
	futureTime := time.Now().Add(1 * time.Hour)

	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc: &Document{
				Id:        1,
				URL:       "https://example.com/page",
				Content:   "Page body.",
				Status:    DocumentStatusPending,
				CrawledAt: validTime,
			},
			wantErr: nil,
		},
		{
			name: "valid document with zero crawl time",
			doc: &Document{
				Id:      1,
				URL:     "https://example.com/page",
				Content: "Page body.",
				Status:  DocumentStatusCompleted,
			},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name: "empty URL",
			doc: &Document{
				Content:   "Page body.",
				Status:    DocumentStatusPending,
				CrawledAt: validTime,
			},
			wantErr: ErrEmptyURL,
		},
		{
			name: "empty content",
			doc: &Document{
				URL:       "https://example.com/page",
				Status:    DocumentStatusPending,
				CrawledAt: validTime,
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "unknown status",
			doc: &Document{
				URL:       "https://example.com/page",
				Content:   "Page body.",
				Status:    DocumentStatus(42),
				CrawledAt: validTime,
			},
			wantErr: ErrInvalidStatus,
		},
		{
			name: "future crawl time",
			doc: &Document{
				URL:       "https://example.com/page",
				Content:   "Page body.",
				Status:    DocumentStatusPending,
				CrawledAt: futureTime,
			},
			wantErr: ErrInvalidTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() = %v, want %v", err, tt.wantErr)
			}
			if tt.doc != nil && !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("ValidateDocument() = %v, want wrapped %v", err, ErrInvalidDocument)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *TextChunk
		wantErr error
	}{
		{
			name: "valid chunk",
			chunk: &TextChunk{
				DocumentId: 1,
				Content:    "A chunk of text.",
				Index:      0,
				StartChar:  0,
				EndChar:    16,
			},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name: "empty content",
			chunk: &TextChunk{
				DocumentId: 1,
				EndChar:    16,
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "negative index",
			chunk: &TextChunk{
				Content: "text",
				Index:   -1,
				EndChar: 4,
			},
			wantErr: ErrInvalidChunkBounds,
		},
		{
			name: "inverted char range",
			chunk: &TextChunk{
				Content:   "text",
				StartChar: 10,
				EndChar:   4,
			},
			wantErr: ErrInvalidChunkBounds,
		},
		{
			name: "empty char range",
			chunk: &TextChunk{
				Content:   "text",
				StartChar: 4,
				EndChar:   4,
			},
			wantErr: ErrInvalidChunkBounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmbedding(t *testing.T) {
	tests := []struct {
		name      string
		embedding *Embedding
		wantErr   error
	}{
		{
			name: "valid embedding",
			embedding: &Embedding{
				ChunkId:   1,
				Vector:    []float32{0.1, 0.2, 0.3},
				Dimension: 3,
				ModelName: "nomic-embed-text",
			},
			wantErr: nil,
		},
		{
			name:      "nil embedding",
			embedding: nil,
			wantErr:   ErrInvalidEmbedding,
		},
		{
			name: "empty vector",
			embedding: &Embedding{
				Dimension: 3,
				ModelName: "nomic-embed-text",
			},
			wantErr: ErrEmptyVector,
		},
		{
			name: "dimension mismatch",
			embedding: &Embedding{
				Vector:    []float32{0.1, 0.2},
				Dimension: 3,
				ModelName: "nomic-embed-text",
			},
			wantErr: ErrDimensionMismatch,
		},
		{
			name: "missing model name",
			embedding: &Embedding{
				Vector:    []float32{0.1, 0.2, 0.3},
				Dimension: 3,
			},
			wantErr: ErrEmptyModelName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbedding(tt.embedding)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateEmbedding() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateEmbedding() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   *Query
		wantErr error
	}{
		{
			name: "valid query",
			query: &Query{
				Text:       "what is a token bucket",
				MaxResults: 10,
			},
			wantErr: nil,
		},
		{
			name:    "nil query",
			query:   nil,
			wantErr: ErrInvalidQuery,
		},
		{
			name: "empty text",
			query: &Query{
				MaxResults: 10,
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "zero max results",
			query: &Query{
				Text: "anything",
			},
			wantErr: ErrInvalidMaxResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateQuery() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateQuery() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsValidTimestamp(t *testing.T) {
	if !IsValidTimestamp(time.Now().Add(-time.Minute)) {
		t.Error("past timestamp reported invalid")
	}
	if IsValidTimestamp(time.Now().Add(time.Minute)) {
		t.Error("future timestamp reported valid")
	}
}
