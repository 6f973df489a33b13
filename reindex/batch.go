package reindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/chronicle/ai"
	"github.com/poiesic/chronicle/core"
	"github.com/poiesic/chronicle/storage"
)

// BatchProcessor regenerates embeddings for batches of chunks.
type BatchProcessor struct {
	repo           storage.ArchiveRepository
	embeddings     *ai.Service
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.ArchiveRepository, embeddings *ai.Service, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embeddings:     embeddings,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process regenerates embeddings for a batch of chunks and rewrites them in
// place. Vectors are normalized after embedding so cosine similarity keeps
// working regardless of what the new model returns. Chunks whose new
// embedding fails validation keep their old vector and are logged.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	// Generate embeddings with retry
	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embeddings.GenerateBatch(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)

	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	updated := make([]*core.Chunk, 0, len(chunks))
	for i, chunk := range chunks {
		vector := embeddings[i]
		if vector == nil || !bp.embeddings.Validate(vector) {
			slog.Warn("keeping previous embedding for chunk",
				"document_id", uint64(chunk.DocumentId),
				"chunk_no", chunk.ChunkNo)
			continue
		}
		chunk.Embedding = NormalizeVector(vector)
		updated = append(updated, chunk)
	}

	if len(updated) == 0 {
		return nil
	}

	if err := bp.repo.UpdateChunks(ctx, updated...); err != nil {
		return fmt.Errorf("failed to update chunks: %w", err)
	}

	return nil
}
