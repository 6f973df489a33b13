package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chronicle/core"
	"github.com/poiesic/chronicle/storage"
)

// Repository implements storage.ArchiveRepository for BadgerDB.
type Repository struct {
	backend *Backend
}

var _ storage.ArchiveRepository = (*Repository)(nil)

// NewRepository creates an ArchiveRepository backed by a BadgerDB database
// at the given path.
func NewRepository(filePath string) (storage.ArchiveRepository, error) {
	backend, err := OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}
	return &Repository{backend: backend}, nil
}

// NewRepositoryWithBackend wraps an already-open backend. The caller keeps
// ownership of the backend; closing the repository closes it.
func NewRepositoryWithBackend(backend *Backend) *Repository {
	return &Repository{backend: backend}
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.backend.Close()
}

// WithTransaction delegates to the backend.
func (r *Repository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// VectorSearch delegates to the backend.
func (r *Repository) VectorSearch(ctx context.Context, embedding []float32, k int, filters storage.Filters) ([]*core.SearchResult, error) {
	return r.backend.VectorSearch(ctx, embedding, k, filters)
}

// GetDocument retrieves a document by ID.
func (r *Repository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetDocumentByKey retrieves a document by its identity key. Document IDs
// are derived from the identity key, so this is a direct lookup rather
// than a scan.
func (r *Repository) GetDocumentByKey(ctx context.Context, key string) (*core.Document, error) {
	return r.GetDocument(ctx, core.IDFromContent(key))
}

// UpsertDocument inserts or replaces the document row for the document's
// identity key. The ID is always recomputed from the key, so archiving the
// same logical document twice lands on the same row.
func (r *Repository) UpsertDocument(ctx context.Context, doc *core.Document) (core.ID, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return 0, err
	}

	doc.Id = core.IDFromContent(doc.Key())

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.Id)

		old, err := readDocument(tx, key)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if old != nil {
			doc.InsertedAt = old.InsertedAt
			// Drop the stale date index entry if the date moved
			if !old.DocDate.Equal(doc.DocDate) {
				if err := tx.Delete(makeDocumentDateKey(old.DocDate, old.Id)); err != nil {
					return err
				}
			}
		} else {
			doc.InsertedAt = now
		}
		doc.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		dateKey := makeDocumentDateKey(doc.DocDate, doc.Id)
		if err := tx.Set(dateKey, storage.MarshalID(doc.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return doc.Id, err
}

// BulkInsertChunks stores chunks. Chunk IDs are derived from
// (DocumentId, ChunkNo); a missing ID is filled in here.
func (r *Repository) BulkInsertChunks(ctx context.Context, chunks ...*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if err := core.ValidateChunk(chunk); err != nil {
				return err
			}
			if chunk.Id == 0 {
				chunk.Id = core.ChunkID(chunk.DocumentId, chunk.ChunkNo)
			}
			key := makeChunkKey(chunk.DocumentId, chunk.ChunkNo)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// UpdateChunks rewrites existing chunk rows in place.
func (r *Repository) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.DocumentId, chunk.ChunkNo)
			if _, err := tx.Get(key); err != nil {
				if err == badger.ErrKeyNotFound {
					return storage.ErrNotFound
				}
				return err
			}
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteChunks removes every chunk owned by the document and returns how
// many were removed.
func (r *Repository) DeleteChunks(ctx context.Context, documentID core.ID) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		keys, err := collectChunkKeys(tx, documentID)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		count = len(keys)
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetChunks retrieves a document's chunks ordered by chunk number. The
// composite chunk keys are big-endian, so iteration order is chunk order.
func (r *Repository) GetChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkKey(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// CountChunks returns the number of chunks owned by the document.
func (r *Repository) CountChunks(ctx context.Context, documentID core.ID) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkKey(documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListDocuments retrieves all document rows.
func (r *Repository) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)
	return results, err
}

// DeleteDocumentsBefore removes documents dated before the cutoff, along
// with their chunks and date index entries.
func (r *Repository) DeleteDocumentsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Walk the date index up to the cutoff, collecting victims first
		// so deletion doesn't disturb the iterator.
		type victim struct {
			id       core.ID
			indexKey []byte
		}
		var victims []victim

		endKey := makePartialDocumentDateKey(cutoff)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentDatePrefix + ":")
		iter := tx.NewIterator(opts)

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().KeyCopy(nil)
			if string(key) >= string(endKey) {
				break
			}
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				iter.Close()
				return err
			}
			victims = append(victims, victim{id: id, indexKey: key})
		}
		iter.Close()

		for _, v := range victims {
			chunkKeys, err := collectChunkKeys(tx, v.id)
			if err != nil {
				return err
			}
			for _, ck := range chunkKeys {
				if err := tx.Delete(ck); err != nil {
					return err
				}
			}
			if err := tx.Delete(makeDocumentKey(v.id)); err != nil {
				return err
			}
			if err := tx.Delete(v.indexKey); err != nil {
				return err
			}
			deleted++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Counts reports how many documents and chunks the archive holds.
func (r *Repository) Counts(ctx context.Context) (storage.Counts, error) {
	var counts storage.Counts
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		counts.Documents = countPrefix(tx, []byte(documentRecordPrefix+":"))
		counts.Chunks = countPrefix(tx, []byte(chunkRecordPrefix+":"))
		return nil
	}, false)
	return counts, err
}

// Helper functions

// readDocument reads a document from the transaction. Returns nil, nil if
// the key doesn't exist.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}

// collectChunkKeys gathers the chunk keys for a document so they can be
// deleted without invalidating an open iterator.
func collectChunkKeys(tx *badger.Txn, documentID core.ID) ([][]byte, error) {
	var keys [][]byte
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkKey(documentID)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys, nil
}

// countPrefix counts keys under a prefix without fetching values.
func countPrefix(tx *badger.Txn, prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		count++
	}
	return count
}
