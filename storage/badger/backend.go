package badger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/chronicle/core"
	"github.com/poiesic/chronicle/storage"
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: slog.Default(),
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// RunGC triggers a value-log garbage collection pass. Returns badger's
// ErrNoRewrite when nothing was reclaimed; callers may treat that as success.
func (b *Backend) RunGC(discardRatio float64) error {
	return b.db.RunValueLogGC(discardRatio)
}

// WithTransaction executes a function within a transaction.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		// Execute the callback function
		if err := fn(ctx); err != nil {
			return err
		}
		// Commit the transaction
		return tx.Commit()
	}, true)
}

// VectorSearch scans chunk records, applies the filters, scores each
// surviving chunk against the query embedding and returns the top k by
// cosine similarity. An empty embedding skips scoring entirely: the call
// becomes a filter-only scan ordered by document date descending.
func (b *Backend) VectorSearch(ctx context.Context, embedding []float32, k int, filters storage.Filters) ([]*core.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", storage.ErrInvalidQuery, k)
	}

	filterOnly := len(embedding) == 0

	var results []*core.SearchResult

	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			// Read the chunk record
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}

			if !matchesFilters(chunk, filters) {
				continue
			}

			if filterOnly {
				results = append(results, &core.SearchResult{Chunk: chunk})
				continue
			}

			// Chunks without embeddings can't be scored
			if len(chunk.Embedding) == 0 {
				continue
			}

			results = append(results, &core.SearchResult{
				Chunk:      chunk,
				Similarity: cosineSimilarity(embedding, chunk.Embedding),
			})
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	if filterOnly {
		// Most recent documents first, chunks in order within a document
		slices.SortFunc(results, func(a, b *core.SearchResult) int {
			if !a.Chunk.DocDate.Equal(b.Chunk.DocDate) {
				if a.Chunk.DocDate.After(b.Chunk.DocDate) {
					return -1
				}
				return 1
			}
			return a.Chunk.ChunkNo - b.Chunk.ChunkNo
		})
	} else {
		// Sort by similarity descending
		slices.SortFunc(results, func(a, b *core.SearchResult) int {
			if a.Similarity > b.Similarity {
				return -1
			}
			if a.Similarity < b.Similarity {
				return 1
			}
			return 0
		})
	}

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// matchesFilters reports whether a chunk passes every set filter field.
func matchesFilters(chunk *core.Chunk, filters storage.Filters) bool {
	if filters.Region != "" && chunk.Region != filters.Region {
		return false
	}
	if filters.Category != "" && chunk.Category != filters.Category {
		return false
	}
	if !filters.DateSince.IsZero() && chunk.DocDate.Before(filters.DateSince) {
		return false
	}
	return true
}

// cosineSimilarity calculates cosine similarity between two vectors.
// Returns 0 if either vector has zero norm.
func cosineSimilarity(a, b []float32) float32 {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < minLen; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return float32(sim)
}
