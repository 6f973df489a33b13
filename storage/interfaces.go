package storage

import (
	"context"
	"time"

	"github.com/poiesic/chronicle/core"
)

// Filters narrows a vector search before scoring. Zero values mean "no
// constraint" for that field.
type Filters struct {
	// Region restricts results to chunks tagged with this region.
	Region string
	// Category restricts results to chunks tagged with this category.
	Category string
	// DateSince restricts results to chunks whose document date is at or
	// after this instant.
	DateSince time.Time
}

// Counts summarizes the archive's size for health reporting.
type Counts struct {
	Documents int
	Chunks    int
}

// ArchiveRepository provides persistence and query operations for documents
// and their chunks. Implementations must be thread-safe and support
// concurrent access.
type ArchiveRepository interface {
	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocumentByKey retrieves a document by its identity key.
	// Returns ErrNotFound if no document with that key exists.
	GetDocumentByKey(ctx context.Context, key string) (*core.Document, error)

	// UpsertDocument inserts or replaces the document row for the document's
	// identity key and returns its ID. InsertedAt is preserved across
	// replacements; UpdatedAt is always refreshed.
	UpsertDocument(ctx context.Context, doc *core.Document) (core.ID, error)

	// DeleteChunks removes every chunk owned by the document.
	// Returns the number of chunks removed; deleting a document with no
	// chunks is not an error.
	DeleteChunks(ctx context.Context, documentID core.ID) (int, error)

	// BulkInsertChunks stores chunks. Chunk IDs are derived from
	// (DocumentId, ChunkNo), so re-inserting the same position overwrites.
	BulkInsertChunks(ctx context.Context, chunks ...*core.Chunk) error

	// UpdateChunks rewrites existing chunk rows in place.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunks retrieves a document's chunks ordered by chunk number.
	GetChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// CountChunks returns the number of chunks owned by the document.
	CountChunks(ctx context.Context, documentID core.ID) (int, error)

	// VectorSearch finds up to k chunks nearest to the embedding, after
	// applying the filters. Results are ordered by similarity descending.
	// An empty embedding turns the call into a filter-only scan whose
	// results carry zero similarity and are ordered by document recency.
	VectorSearch(ctx context.Context, embedding []float32, k int, filters Filters) ([]*core.SearchResult, error)

	// ListDocuments retrieves all document rows.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// DeleteDocumentsBefore removes documents whose date is before the
	// cutoff, along with their chunks. Returns the number of documents
	// removed. This is the retention/maintenance capability; normal
	// archival never deletes documents.
	DeleteDocumentsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Counts reports how many documents and chunks the archive holds.
	Counts(ctx context.Context) (Counts, error)

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}
