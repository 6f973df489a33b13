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


package chronicle

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/chronicle/ai"
	"github.com/poiesic/chronicle/ai/openai"
	"github.com/poiesic/chronicle/archive"
	"github.com/poiesic/chronicle/core"
	"github.com/poiesic/chronicle/reindex"
	"github.com/poiesic/chronicle/search"
	"github.com/poiesic/chronicle/storage"
	"github.com/poiesic/chronicle/storage/badger"
)

// Coordinator wires the archive's storage, embedding, archival and search
// layers into one handle. Every dependency is constructed explicitly here;
// there is no package-level shared state.
type Coordinator struct {
	backend    *badger.Backend
	repo       storage.ArchiveRepository
	embeddings *ai.Service
	archiver   *archive.Archiver
	searcher   *search.Searcher
	logger     *slog.Logger
}

// Option configures a Coordinator.
type Option func(*coordinatorOptions)

type coordinatorOptions struct {
	aiConfig     *ai.Config
	factory      ai.Factory
	inMemory     bool
	archiverOpts []archive.Option
	searcherOpts []search.Option
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(config *ai.Config) Option {
	return func(o *coordinatorOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithEmbedderFactory overrides how the embedding backend is constructed.
// The default dials an OpenAI-compatible endpoint from the AI config; tests
// inject mock factories here.
func WithEmbedderFactory(factory ai.Factory) Option {
	return func(o *coordinatorOptions) {
		if factory != nil {
			o.factory = factory
		}
	}
}

// WithInMemoryStore keeps the whole archive in memory. For tests.
func WithInMemoryStore() Option {
	return func(o *coordinatorOptions) { o.inMemory = true }
}

// WithArchiverOptions forwards options to the archiver.
func WithArchiverOptions(opts ...archive.Option) Option {
	return func(o *coordinatorOptions) {
		o.archiverOpts = append(o.archiverOpts, opts...)
	}
}

// WithSearcherOptions forwards options to the searcher.
func WithSearcherOptions(opts ...search.Option) Option {
	return func(o *coordinatorOptions) {
		o.searcherOpts = append(o.searcherOpts, opts...)
	}
}

// New opens the archive at filePath and wires up the full stack. The
// embedding model itself is loaded lazily on first use, so New succeeds even
// when the embedding backend is down.
func New(filePath string, opts ...Option) (*Coordinator, error) {
	options := &coordinatorOptions{
		aiConfig: ai.DefaultConfig(),
		factory:  openai.NewEmbedder,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}
	repo := badger.NewRepositoryWithBackend(backend)

	embeddings, err := ai.NewService(options.aiConfig, options.factory)
	if err != nil {
		backend.Close()
		return nil, err
	}

	archiver, err := archive.NewArchiver(repo, embeddings, options.archiverOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	searcher, err := search.NewSearcher(repo, embeddings, options.searcherOpts...)
	if err != nil {
		archiver.Release()
		backend.Close()
		return nil, err
	}

	return &Coordinator{
		backend:    backend,
		repo:       repo,
		embeddings: embeddings,
		archiver:   archiver,
		searcher:   searcher,
		logger:     slog.Default(),
	}, nil
}

// Close releases the worker pool and the storage backend.
func (c *Coordinator) Close() error {
	c.archiver.Release()
	if err := c.backend.Close(); err != nil {
		c.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Repository exposes the underlying archive repository.
func (c *Coordinator) Repository() storage.ArchiveRepository {
	return c.repo
}

// EmbeddingService exposes the shared embedding service.
func (c *Coordinator) EmbeddingService() *ai.Service {
	return c.embeddings
}

// ArchiveDocument archives one content bundle. See archive.Archiver.
func (c *Coordinator) ArchiveDocument(ctx context.Context, bundle *core.Bundle, docDate time.Time, docType core.DocType) (core.ID, error) {
	return c.archiver.ArchiveDocument(ctx, bundle, docDate, docType)
}

// ArchiveArticles archives a batch of articles. See archive.Archiver.
func (c *Coordinator) ArchiveArticles(ctx context.Context, articles []*core.Bundle, docDate time.Time) (core.ID, error) {
	return c.archiver.ArchiveArticles(ctx, articles, docDate)
}

// VerifyIntegrity recomputes a document's advisory integrity score.
func (c *Coordinator) VerifyIntegrity(ctx context.Context, docID core.ID) (float64, error) {
	return c.archiver.VerifyIntegrity(ctx, docID)
}

// Search runs a similarity search. Fails closed: errors yield empty results.
func (c *Coordinator) Search(ctx context.Context, query string, opts ...search.QueryOption) []*core.SearchResult {
	return c.searcher.Search(ctx, query, opts...)
}

// TrendingTopics aggregates recent category/region frequencies.
func (c *Coordinator) TrendingTopics(ctx context.Context, daysBack, topK int) []core.TrendingTopic {
	return c.searcher.TrendingTopics(ctx, daysBack, topK)
}

// RelatedContent finds chunks sharing the top seed's category and region.
func (c *Coordinator) RelatedContent(ctx context.Context, seeds []*core.SearchResult) *search.RelatedContent {
	return c.searcher.RelatedContent(ctx, seeds)
}

// Explain summarizes a result set for display.
func (c *Coordinator) Explain(query string, results []*core.SearchResult) *search.Explanation {
	return c.searcher.Explain(query, results)
}

// Status reports the archive's health for monitoring.
type Status struct {
	Documents      int
	Chunks         int
	EmbeddingReady bool
	Dimension      int
}

// Status reports document/chunk counts and embedding readiness. Readiness
// reflects whether the model handle has loaded; it never triggers a load.
func (c *Coordinator) Status(ctx context.Context) (*Status, error) {
	counts, err := c.repo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Documents:      counts.Documents,
		Chunks:         counts.Chunks,
		EmbeddingReady: c.embeddings.Ready(),
		Dimension:      c.embeddings.Dimension(),
	}, nil
}

// Cleanup removes documents older than the retention window, along with
// their chunks. Returns the number of documents removed.
func (c *Coordinator) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	removed, err := c.repo.DeleteDocumentsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.logger.Info("retention cleanup complete", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// NewReindexer builds a reindexer over this archive's chunks.
func (c *Coordinator) NewReindexer(config *reindex.Config, progress io.Writer) *reindex.Reindexer {
	return reindex.NewReindexer(c.repo, c.embeddings, config, progress)
}

// RunGC triggers a BadgerDB value-log garbage collection pass.
func (c *Coordinator) RunGC() error {
	return c.backend.RunGC(0.5)
}
