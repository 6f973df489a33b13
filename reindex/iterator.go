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


package reindex

import (
	"context"

	"github.com/poiesic/chronicle/core"
	"github.com/poiesic/chronicle/storage"
)

const (
	// DefaultBatchSize is the default number of chunks to process per batch
	DefaultBatchSize = 100
)

// ChunkIterator iterates over every chunk in the archive in batches,
// document by document. Batches never straddle two documents.
type ChunkIterator struct {
	repo      storage.ArchiveRepository
	batchSize int
}

// NewChunkIterator creates a new chunk iterator.
// batchSize: number of chunks per batch (must be > 0)
func NewChunkIterator(repo storage.ArchiveRepository, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ChunkIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach iterates over all chunks, calling fn for each batch.
// Iteration stops on first error from fn or when all chunks are processed.
// Context cancellation is checked between batches.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]*core.Chunk) error) error {
	// Check context before starting
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	docs, err := it.repo.ListDocuments(ctx)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		chunks, err := it.repo.GetChunks(ctx, doc.Id)
		if err != nil {
			return err
		}

		for i := 0; i < len(chunks); i += it.batchSize {
			end := i + it.batchSize
			if end > len(chunks) {
				end = len(chunks)
			}

			if err := fn(chunks[i:end]); err != nil {
				return err
			}

			// Check context after each batch
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}

	return nil
}
