package badger

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/poiesic/chronicle/core"
	"github.com/poiesic/chronicle/storage"
)

func seedSearchFixture(t *testing.T) (storage.ArchiveRepository, context.Context) {
	t.Helper()

	repo, _, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	docA := testDocument("Mining output", jan)
	docA.Region = "andes"
	docA.Category = "mining"
	idA, err := repo.UpsertDocument(ctx, docA)
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	docB := testDocument("Harvest season", jun)
	docB.Region = "pampas"
	docB.Category = "agriculture"
	idB, err := repo.UpsertDocument(ctx, docB)
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	chunks := []*core.Chunk{
		{DocumentId: idA, ChunkNo: 1, Content: "copper up", Embedding: []float32{1, 0, 0}, Region: "andes", Category: "mining", DocDate: jan},
		{DocumentId: idA, ChunkNo: 2, Content: "lithium flat", Embedding: []float32{0.9, 0.1, 0}, Region: "andes", Category: "mining", DocDate: jan},
		{DocumentId: idB, ChunkNo: 1, Content: "soy record", Embedding: []float32{0, 1, 0}, Region: "pampas", Category: "agriculture", DocDate: jun},
		{DocumentId: idB, ChunkNo: 2, Content: "wheat down", Embedding: []float32{0, 0, 1}, Region: "pampas", Category: "agriculture", DocDate: jun},
	}
	if err := repo.BulkInsertChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to insert chunks: %v", err)
	}

	return repo, ctx
}

func TestVectorSearchRanksBySimilarity(t *testing.T) {
	repo, ctx := seedSearchFixture(t)

	results, err := repo.VectorSearch(ctx, []float32{1, 0, 0}, 10, storage.Filters{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}
	if results[0].Chunk.Content != "copper up" {
		t.Fatalf("Expected exact match first, got %q", results[0].Chunk.Content)
	}
	if math.Abs(float64(results[0].Similarity)-1.0) > 1e-5 {
		t.Fatalf("Expected similarity 1.0 for identical vector, got %f", results[0].Similarity)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Fatal("Expected results ordered by similarity descending")
		}
	}
}

func TestVectorSearchAppliesFilters(t *testing.T) {
	repo, ctx := seedSearchFixture(t)

	results, err := repo.VectorSearch(ctx, []float32{1, 0, 0}, 10, storage.Filters{Region: "pampas"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 pampas results, got %d", len(results))
	}
	for _, r := range results {
		if r.Chunk.Region != "pampas" {
			t.Fatalf("Filter leaked region %q", r.Chunk.Region)
		}
	}

	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	results, err = repo.VectorSearch(ctx, []float32{1, 0, 0}, 10, storage.Filters{DateSince: since})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, r := range results {
		if r.Chunk.DocDate.Before(since) {
			t.Fatalf("Filter leaked chunk dated %v", r.Chunk.DocDate)
		}
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results since March, got %d", len(results))
	}

	results, err = repo.VectorSearch(ctx, []float32{1, 0, 0}, 10, storage.Filters{Region: "andes", Category: "agriculture"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected no results for contradictory filters, got %d", len(results))
	}
}

func TestVectorSearchLimitsToK(t *testing.T) {
	repo, ctx := seedSearchFixture(t)

	results, err := repo.VectorSearch(ctx, []float32{1, 0, 0}, 2, storage.Filters{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	if _, err := repo.VectorSearch(ctx, []float32{1, 0, 0}, 0, storage.Filters{}); err == nil {
		t.Fatal("Expected error for non-positive k")
	}
}

func TestVectorSearchEmptyEmbeddingScansByRecency(t *testing.T) {
	repo, ctx := seedSearchFixture(t)

	results, err := repo.VectorSearch(ctx, nil, 10, storage.Filters{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}
	// June chunks before January chunks, chunk order within a document
	if results[0].Chunk.Content != "soy record" || results[1].Chunk.Content != "wheat down" {
		t.Fatalf("Expected June chunks first in order, got %q then %q",
			results[0].Chunk.Content, results[1].Chunk.Content)
	}
	for _, r := range results {
		if r.Similarity != 0 {
			t.Fatalf("Expected zero similarity on filter-only scan, got %f", r.Similarity)
		}
	}
}

func TestClosedBackendReturnsErrStorageClosed(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ctx := context.Background()
	if _, err := repo.ListDocuments(ctx); !errors.Is(err, storage.ErrStorageClosed) {
		t.Fatalf("Expected ErrStorageClosed from ListDocuments, got %v", err)
	}
	if _, err := repo.VectorSearch(ctx, []float32{1, 0, 0}, 5, storage.Filters{}); !errors.Is(err, storage.ErrStorageClosed) {
		t.Fatalf("Expected ErrStorageClosed from VectorSearch, got %v", err)
	}
	if _, err := repo.UpsertDocument(ctx, testDocument("Late write", time.Now().UTC())); !errors.Is(err, storage.ErrStorageClosed) {
		t.Fatalf("Expected ErrStorageClosed from UpsertDocument, got %v", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(float64(got)-1) > 1e-6 {
		t.Fatalf("Expected 1, got %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); math.Abs(float64(got)) > 1e-6 {
		t.Fatalf("Expected 0, got %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{-2, 0}); math.Abs(float64(got)+1) > 1e-6 {
		t.Fatalf("Expected -1, got %f", got)
	}
	if got := cosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Fatalf("Expected 0 for zero-norm vector, got %f", got)
	}
}
