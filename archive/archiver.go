package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/chronicle/ai"
	"github.com/poiesic/chronicle/core"
	"github.com/poiesic/chronicle/segment"
	"github.com/poiesic/chronicle/storage"
)

const (
	// DefaultMaxChunksPerDocument bounds embedding cost per archival.
	DefaultMaxChunksPerDocument = 100

	// DefaultMinChunkLen drops fragments too short to carry meaning.
	DefaultMinChunkLen = 10

	// defaultEmbedBatchSize is the sub-batch size handed to the worker pool.
	defaultEmbedBatchSize = 16

	// integrityWarnRatio is the valid-chunk ratio below which an archival
	// is logged as degraded.
	integrityWarnRatio = 0.5
)

// Archiver turns content bundles into persisted documents and embedded
// chunks. It owns segmentation, embedding fan-out and the
// upsert/delete/reinsert replacement sequence.
type Archiver struct {
	repo           storage.ArchiveRepository
	embeddings     *ai.Service
	segmenter      *segment.Segmenter
	pool           *ants.Pool
	logger         *slog.Logger
	maxChunks      int
	minChunkLen    int
	embedBatchSize int

	// keyLocks serializes archivals of the same identity key; the
	// upsert/delete/insert sequence is not atomic.
	keyLocks sync.Map // string -> *sync.Mutex
}

// Option configures an Archiver.
type Option func(*Archiver) error

// WithPoolSize sets the worker pool size for embedding sub-batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(a *Archiver) error {
		if size < 1 {
			size = 1
		}
		if a.pool != nil {
			a.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		a.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archiver) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithSegmenter replaces the default segmenter.
func WithSegmenter(s *segment.Segmenter) Option {
	return func(a *Archiver) error {
		if s != nil {
			a.segmenter = s
		}
		return nil
	}
}

// WithMaxChunks overrides the per-document chunk bound.
func WithMaxChunks(n int) Option {
	return func(a *Archiver) error {
		if n > 0 {
			a.maxChunks = n
		}
		return nil
	}
}

// NewArchiver creates a new Archiver.
func NewArchiver(repo storage.ArchiveRepository, embeddings *ai.Service, opts ...Option) (*Archiver, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingServiceRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	a := &Archiver{
		repo:           repo,
		embeddings:     embeddings,
		segmenter:      segment.New(segment.DefaultChunkSize, segment.DefaultOverlap),
		pool:           pool,
		logger:         slog.Default(),
		maxChunks:      DefaultMaxChunksPerDocument,
		minChunkLen:    DefaultMinChunkLen,
		embedBatchSize: defaultEmbedBatchSize,
	}

	for _, opt := range opts {
		if optErr := opt(a); optErr != nil {
			a.Release()
			return nil, optErr
		}
	}

	return a, nil
}

// Release frees the worker pool. The repository and embedding service are
// owned by the caller.
func (a *Archiver) Release() {
	if a.pool != nil {
		a.pool.Release()
	}
}

// lockFor returns the mutex serializing archivals of an identity key.
func (a *Archiver) lockFor(key string) *sync.Mutex {
	mu, _ := a.keyLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ArchiveDocument archives a bundle as one document of the given type and
// date. Re-archiving the same identity key replaces the document's content
// and its entire chunk set. A document whose every chunk failed embedding
// is still archived, just with zero chunks.
//
// Archival is best-effort: a failure partway surfaces as ErrArchiveFailed
// and rows already written remain.
func (a *Archiver) ArchiveDocument(ctx context.Context, bundle *core.Bundle, docDate time.Time, docType core.DocType) (core.ID, error) {
	if err := core.ValidateBundle(bundle); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrArchiveFailed, err)
	}
	if err := core.ValidateDocType(docType); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrArchiveFailed, err)
	}

	key := core.DocumentKey(docType, docDate, bundle.Title)
	mu := a.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	// Segment per section so chunks inherit section tags and never
	// straddle section boundaries.
	candidates := a.segmentBundle(bundle, docDate)

	if len(candidates) > a.maxChunks {
		a.logger.Warn("truncating chunk list",
			"key", key,
			"candidates", len(candidates),
			"max", a.maxChunks)
		candidates = candidates[:a.maxChunks]
	}

	doc := &core.Document{
		Title:    bundle.Title,
		Content:  bundle.Text(),
		DocDate:  docDate,
		DocType:  docType,
		Source:   bundle.Source,
		URL:      bundle.URL,
		Metadata: map[string]string{},
	}
	for k, v := range bundle.Metadata {
		doc.Metadata[k] = v
	}
	doc.Metadata["expected_chunks"] = strconv.Itoa(len(candidates))
	doc.Tokens = CountTokens(doc.Content)
	if len(bundle.Sections) == 1 {
		doc.Region = bundle.Sections[0].Region
		doc.Category = bundle.Sections[0].Category
	}

	docID, err := a.repo.UpsertDocument(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("%w: upserting document %q: %w", ErrArchiveFailed, key, err)
	}

	// No stale chunks may survive a re-archival.
	if _, err := a.repo.DeleteChunks(ctx, docID); err != nil {
		return docID, fmt.Errorf("%w: clearing chunks for %q: %w", ErrArchiveFailed, key, err)
	}

	chunks := a.embedCandidates(ctx, docID, key, candidates)
	if len(chunks) == 0 {
		a.logger.Warn("document archived with zero chunks", "key", key, "document_id", uint64(docID))
		return docID, nil
	}

	if err := a.repo.BulkInsertChunks(ctx, chunks...); err != nil {
		return docID, fmt.Errorf("%w: inserting chunks for %q: %w", ErrArchiveFailed, key, err)
	}

	ratio := float64(len(chunks)) / float64(max(len(candidates), 1))
	if ratio < integrityWarnRatio {
		a.logger.Warn("low archival integrity",
			"key", key,
			"valid", len(chunks),
			"expected", len(candidates),
			"ratio", ratio)
	}

	a.logger.Info("document archived",
		"key", key,
		"document_id", uint64(docID),
		"chunks", len(chunks),
		"tokens", doc.Tokens)

	return docID, nil
}

// ArchiveArticles archives a batch of article bundles dated docDate.
// A single article becomes an article document keyed by its title; more
// than one becomes a single full-corpus document whose sections are the
// articles laid end to end, so no chunk straddles two articles.
func (a *Archiver) ArchiveArticles(ctx context.Context, articles []*core.Bundle, docDate time.Time) (core.ID, error) {
	switch len(articles) {
	case 0:
		return 0, fmt.Errorf("%w: %w", ErrArchiveFailed, ErrNoArticles)
	case 1:
		return a.ArchiveDocument(ctx, articles[0], docDate, core.DocTypeArticle)
	}

	corpus := &core.Bundle{
		Title:    "Full corpus " + docDate.UTC().Format("2006-01-02"),
		Metadata: map[string]string{"articles": strconv.Itoa(len(articles))},
	}
	// Stamp each article's source and URL onto its sections so chunks keep
	// per-article attribution after flattening.
	for _, article := range articles {
		for _, section := range article.Sections {
			if section.Source == "" {
				section.Source = article.Source
			}
			if section.URL == "" {
				section.URL = article.URL
			}
			corpus.Sections = append(corpus.Sections, section)
		}
	}

	return a.ArchiveDocument(ctx, corpus, docDate, core.DocTypeFullCorpus)
}

// VerifyIntegrity recomputes a document's advisory integrity score:
// stored chunk count over expected chunk count (floored at 1). A low score
// is logged but never blocks anything.
func (a *Archiver) VerifyIntegrity(ctx context.Context, docID core.ID) (float64, error) {
	doc, err := a.repo.GetDocument(ctx, docID)
	if err != nil {
		return 0, err
	}

	valid, err := a.repo.CountChunks(ctx, docID)
	if err != nil {
		return 0, err
	}

	expected := 0
	if raw, ok := doc.Metadata["expected_chunks"]; ok {
		expected, _ = strconv.Atoi(raw)
	}

	score := float64(valid) / float64(max(expected, 1))
	if score > 1 {
		score = 1
	}
	if score < integrityWarnRatio {
		a.logger.Warn("document integrity below threshold",
			"document_id", uint64(docID),
			"valid", valid,
			"expected", expected,
			"score", score)
	}
	return score, nil
}

// segmentBundle produces candidate chunks for a bundle, one segmentation
// pass per section, filtered by the length rules. Chunk numbers are
// assigned later, after embedding drops.
func (a *Archiver) segmentBundle(bundle *core.Bundle, docDate time.Time) []*core.Chunk {
	maxLen := a.segmenter.ChunkSize() * 3 / 2

	var candidates []*core.Chunk
	for _, section := range bundle.Sections {
		source := section.Source
		if source == "" {
			source = bundle.Source
		}
		url := section.URL
		if url == "" {
			url = bundle.URL
		}
		for _, piece := range a.segmenter.Split(section.Text) {
			if len(piece.Content) < a.minChunkLen || len(piece.Content) > maxLen {
				continue
			}
			candidates = append(candidates, &core.Chunk{
				Content:  piece.Content,
				Region:   section.Region,
				Category: section.Category,
				Source:   source,
				URL:      url,
				DocDate:  docDate,
			})
		}
	}
	return candidates
}

// embedCandidates embeds candidate chunks in sub-batches across the worker
// pool, drops chunks whose embedding failed or didn't validate, and
// renumbers the survivors contiguously from 1.
func (a *Archiver) embedCandidates(ctx context.Context, docID core.ID, key string, candidates []*core.Chunk) []*core.Chunk {
	if len(candidates) == 0 {
		return nil
	}

	type batch struct {
		start int
		texts []string
	}
	var batches []batch
	for start := 0; start < len(candidates); start += a.embedBatchSize {
		end := min(start+a.embedBatchSize, len(candidates))
		texts := make([]string, 0, end-start)
		for _, c := range candidates[start:end] {
			texts = append(texts, c.Content)
		}
		batches = append(batches, batch{start: start, texts: texts})
	}

	embeddings := make([][]float32, len(candidates))
	errs := make([]error, len(batches))

	var wg sync.WaitGroup
	for i, b := range batches {
		i, b := i, b
		wg.Add(1)
		submitErr := a.pool.Submit(func() {
			defer wg.Done()
			vectors, err := a.embeddings.GenerateBatch(ctx, b.texts)
			if err != nil {
				errs[i] = err
				return
			}
			copy(embeddings[b.start:], vectors)
		})
		if submitErr != nil {
			errs[i] = submitErr
			wg.Done()
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, ai.ErrEmbeddingUnavailable) {
			a.logger.Warn("embedding backend unavailable, batch skipped",
				"key", key, "batch", i, "error", err)
		} else {
			a.logger.Error("embedding batch failed",
				"key", key, "batch", i, "error", err)
		}
	}

	var survivors []*core.Chunk
	dropped := 0
	for i, candidate := range candidates {
		vector := embeddings[i]
		if vector == nil || !a.embeddings.Validate(vector) {
			dropped++
			continue
		}
		candidate.Embedding = vector
		candidate.DocumentId = docID
		candidate.ChunkNo = len(survivors) + 1
		candidate.Id = core.ChunkID(docID, candidate.ChunkNo)
		survivors = append(survivors, candidate)
	}

	if dropped > 0 {
		a.logger.Warn("dropped chunks with missing or invalid embeddings",
			"key", key,
			"dropped", dropped,
			"kept", len(survivors))
	}

	return survivors
}
