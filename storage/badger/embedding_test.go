package badger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/storage"
)

func testEmbeddings(documentID core.ID, n int) []*core.Embedding {
	embeddings := make([]*core.Embedding, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("Passage %d of document %d.", i, documentID)
		embeddings[i] = testEmbedding(text, []float32{float32(i), 1.0, 0.0})
		embeddings[i].DocumentId = documentID
	}
	return embeddings
}

func TestEmbeddingBasics(t *testing.T) {
	_, _, embRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		embRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	docID := core.IDFromContent("https://example.com/page")

	embeddings := testEmbeddings(docID, 1)
	added, err := embRepo.AddEmbeddings(ctx, embeddings...)
	if err != nil {
		t.Fatalf("Failed to add embedding: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("Expected 1 embedding, got %d", len(added))
	}
	if added[0].Id == 0 {
		t.Error("Expected a non-zero ID after insert")
	}
	if added[0].Dimension != 3 {
		t.Errorf("Expected dimension 3, got %d", added[0].Dimension)
	}

	got, err := embRepo.GetEmbedding(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get embedding: %v", err)
	}
	if got.Text != embeddings[0].Text {
		t.Errorf("Expected text %q, got %q", embeddings[0].Text, got.Text)
	}
	if len(got.Vector) != 3 {
		t.Errorf("Expected 3 vector components, got %d", len(got.Vector))
	}
}

func TestEmbeddingDeterministicID(t *testing.T) {
	_, _, embRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		embRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	docID := core.IDFromContent("https://example.com/page")

	first := testEmbeddings(docID, 1)
	if _, err := embRepo.AddEmbeddings(ctx, first...); err != nil {
		t.Fatalf("Failed to add first embedding: %v", err)
	}

	// Same text and model produce the same ID, so re-adding
	// overwrites rather than duplicates
	second := testEmbeddings(docID, 1)
	added, err := embRepo.AddEmbeddings(ctx, second...)
	if err != nil {
		t.Fatalf("Failed to re-add embedding: %v", err)
	}
	if added[0].Id != first[0].Id {
		t.Errorf("Expected identical IDs, got %d and %d", first[0].Id, added[0].Id)
	}

	count, err := embRepo.CountEmbeddings(ctx)
	if err != nil {
		t.Fatalf("Failed to count embeddings: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 embedding, got %d", count)
	}
}

func TestEmbeddingsByDocument(t *testing.T) {
	_, _, embRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		embRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	docID := core.IDFromContent("https://example.com/page")
	otherID := core.IDFromContent("https://example.com/other")

	if _, err := embRepo.AddEmbeddings(ctx, testEmbeddings(docID, 3)...); err != nil {
		t.Fatalf("Failed to add embeddings: %v", err)
	}
	if _, err := embRepo.AddEmbeddings(ctx, testEmbeddings(otherID, 2)...); err != nil {
		t.Fatalf("Failed to add other embeddings: %v", err)
	}

	got, err := embRepo.GetEmbeddingsByDocument(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to get embeddings by document: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 embeddings, got %d", len(got))
	}
	for _, emb := range got {
		if emb.DocumentId != docID {
			t.Errorf("Expected document ID %d, got %d", docID, emb.DocumentId)
		}
	}
}

func TestDeleteEmbeddings(t *testing.T) {
	_, _, embRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		embRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	docID := core.IDFromContent("https://example.com/page")

	added, err := embRepo.AddEmbeddings(ctx, testEmbeddings(docID, 2)...)
	if err != nil {
		t.Fatalf("Failed to add embeddings: %v", err)
	}

	if err := embRepo.DeleteEmbeddings(ctx, added[0].Id); err != nil {
		t.Fatalf("Failed to delete embedding: %v", err)
	}

	if _, err := embRepo.GetEmbedding(ctx, added[0].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for deleted embedding, got %v", err)
	}
	if _, err := embRepo.GetEmbedding(ctx, added[1].Id); err != nil {
		t.Errorf("Expected surviving embedding to be readable, got %v", err)
	}

	// Deleting a missing embedding reports ErrNotFound
	if err := embRepo.DeleteEmbeddings(ctx, added[0].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for double delete, got %v", err)
	}
}

func TestDeleteEmbeddingsByDocument(t *testing.T) {
	_, _, embRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		embRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	docID := core.IDFromContent("https://example.com/page")
	otherID := core.IDFromContent("https://example.com/other")

	if _, err := embRepo.AddEmbeddings(ctx, testEmbeddings(docID, 3)...); err != nil {
		t.Fatalf("Failed to add embeddings: %v", err)
	}
	if _, err := embRepo.AddEmbeddings(ctx, testEmbeddings(otherID, 2)...); err != nil {
		t.Fatalf("Failed to add other embeddings: %v", err)
	}

	if err := embRepo.DeleteEmbeddingsByDocument(ctx, docID); err != nil {
		t.Fatalf("Failed to delete embeddings: %v", err)
	}

	remaining, err := embRepo.GetEmbeddingsByDocument(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to get embeddings after delete: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Expected 0 embeddings after delete, got %d", len(remaining))
	}

	count, err := embRepo.CountEmbeddings(ctx)
	if err != nil {
		t.Fatalf("Failed to count embeddings: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 surviving embeddings, got %d", count)
	}
}
