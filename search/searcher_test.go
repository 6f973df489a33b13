package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/chronicle/ai"
	"github.com/poiesic/chronicle/ai/mock"
	"github.com/poiesic/chronicle/core"
	"github.com/poiesic/chronicle/storage"
	"github.com/poiesic/chronicle/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 16

func newTestSearcher(t *testing.T, factory ai.Factory) (*Searcher, storage.ArchiveRepository) {
	t.Helper()
	repo, _, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cfg := ai.NewConfig(ai.WithDimension(testDimension))
	svc, err := ai.NewService(cfg, factory)
	require.NoError(t, err)

	searcher, err := NewSearcher(repo, svc)
	require.NoError(t, err)
	return searcher, repo
}

func seedChunks(t *testing.T, repo storage.ArchiveRepository, docDate time.Time) {
	t.Helper()
	contents := []struct {
		text     string
		region   string
		category string
	}{
		{"copper exports rose sharply this quarter", "andes", "mining"},
		{"lithium extraction permits under review", "andes", "mining"},
		{"soy harvest beats all previous records", "pampas", "agriculture"},
		{"central bank holds the reference rate", "cono-sur", "economy"},
	}

	chunks := make([]*core.Chunk, 0, len(contents))
	for i, c := range contents {
		chunks = append(chunks, &core.Chunk{
			DocumentId: core.ID(1000 + i),
			ChunkNo:    1,
			Content:    c.text,
			Embedding:  mock.DeterministicVector(c.text, testDimension),
			Region:     c.region,
			Category:   c.category,
			DocDate:    docDate,
		})
	}
	require.NoError(t, repo.BulkInsertChunks(context.Background(), chunks...))
}

func TestSearch_ExactContentRanksFirst(t *testing.T) {
	m := mock.NewEmbedder()
	m.Dimension = testDimension
	searcher, repo := newTestSearcher(t, func(*ai.Config) (ai.Embedder, error) { return m, nil })
	seedChunks(t, repo, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	// The mock embeds identical text to identical vectors, so querying with
	// a chunk's exact content must rank that chunk first with similarity 1.
	results := searcher.Search(context.Background(),
		"copper exports rose sharply this quarter",
		WithThreshold(0.99))

	require.NotEmpty(t, results)
	assert.Equal(t, "copper exports rose sharply this quarter", results[0].Chunk.Content)
	assert.InDelta(t, 1.0, float64(results[0].Similarity), 1e-5)
}

func TestSearch_ThresholdSubsetProperty(t *testing.T) {
	m := mock.NewEmbedder()
	m.Dimension = testDimension
	searcher, repo := newTestSearcher(t, func(*ai.Config) (ai.Embedder, error) { return m, nil })
	seedChunks(t, repo, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	ctx := context.Background()
	strict := searcher.Search(ctx, "mining news", WithThreshold(0.9))
	loose := searcher.Search(ctx, "mining news", WithThreshold(-1))

	looseIDs := make(map[core.ID]bool)
	for _, r := range loose {
		looseIDs[r.Chunk.Id] = true
	}
	for _, r := range strict {
		assert.True(t, looseIDs[r.Chunk.Id],
			"strict result %d missing from loose result set", r.Chunk.Id)
	}
	assert.LessOrEqual(t, len(strict), len(loose))
}

func TestSearch_AppliesFilters(t *testing.T) {
	m := mock.NewEmbedder()
	m.Dimension = testDimension
	searcher, repo := newTestSearcher(t, func(*ai.Config) (ai.Embedder, error) { return m, nil })
	seedChunks(t, repo, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	results := searcher.Search(context.Background(), "anything at all",
		WithRegion("pampas"),
		WithThreshold(-1))
	require.Len(t, results, 1)
	assert.Equal(t, "agriculture", results[0].Chunk.Category)
}

func TestSearch_FailsClosedOnEmbeddingError(t *testing.T) {
	factory := func(*ai.Config) (ai.Embedder, error) {
		return nil, errors.New("model missing")
	}
	searcher, repo := newTestSearcher(t, factory)
	seedChunks(t, repo, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	results := searcher.Search(context.Background(), "copper")
	assert.Empty(t, results)
}

func TestSearch_BlankQueryIsFilterOnly(t *testing.T) {
	// Factory must never run: a blank query skips embedding entirely.
	factory := func(*ai.Config) (ai.Embedder, error) {
		t.Fatal("factory must not be invoked for a filter-only search")
		return nil, nil
	}
	searcher, repo := newTestSearcher(t, factory)
	seedChunks(t, repo, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	results := searcher.Search(context.Background(), "", WithCategory("mining"))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "mining", r.Chunk.Category)
		assert.Zero(t, r.Similarity)
	}
}

// recordingMonitor captures the hook sequence of one search call.
type recordingMonitor struct {
	stages     []string
	candidates int
	survivors  int
	finished   int
}

var _ SearchMonitor = (*recordingMonitor)(nil)

func (r *recordingMonitor) Start(_ string) { r.stages = append(r.stages, "start") }
func (r *recordingMonitor) AfterQueryEmbedding(_ int) {
	r.stages = append(r.stages, "embedding")
}
func (r *recordingMonitor) AfterVectorSearch(candidates []*core.SearchResult) {
	r.stages = append(r.stages, "vector_search")
	r.candidates = len(candidates)
}
func (r *recordingMonitor) AfterThresholdFilter(survivors []*core.SearchResult) {
	r.stages = append(r.stages, "threshold")
	r.survivors = len(survivors)
}
func (r *recordingMonitor) Failed(stage string, _ error) {
	r.stages = append(r.stages, "failed:"+stage)
}
func (r *recordingMonitor) Finish(results []*core.SearchResult) {
	r.stages = append(r.stages, "finish")
	r.finished = len(results)
}

func TestSearch_MonitorObservesEveryStage(t *testing.T) {
	m := mock.NewEmbedder()
	m.Dimension = testDimension
	searcher, repo := newTestSearcher(t, func(*ai.Config) (ai.Embedder, error) { return m, nil })
	seedChunks(t, repo, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	monitor := &recordingMonitor{}
	results := searcher.Search(context.Background(),
		"copper exports rose sharply this quarter",
		WithThreshold(0.99),
		WithMonitor(monitor))

	assert.Equal(t,
		[]string{"start", "embedding", "vector_search", "threshold", "finish"},
		monitor.stages)
	assert.Equal(t, 4, monitor.candidates)
	assert.Equal(t, len(results), monitor.survivors)
	assert.Equal(t, len(results), monitor.finished)
}

func TestSearch_MonitorObservesEmbeddingFailure(t *testing.T) {
	factory := func(*ai.Config) (ai.Embedder, error) {
		return nil, errors.New("model missing")
	}
	searcher, repo := newTestSearcher(t, factory)
	seedChunks(t, repo, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	monitor := &recordingMonitor{}
	results := searcher.Search(context.Background(), "copper", WithMonitor(monitor))

	assert.Empty(t, results)
	assert.Equal(t, []string{"start", "failed:embedding"}, monitor.stages)
}

func TestTrendingTopics(t *testing.T) {
	m := mock.NewEmbedder()
	m.Dimension = testDimension
	searcher, repo := newTestSearcher(t, func(*ai.Config) (ai.Embedder, error) { return m, nil })

	// Recent chunks so the daysBack window includes them
	seedChunks(t, repo, time.Now().UTC().AddDate(0, 0, -1))

	topics := searcher.TrendingTopics(context.Background(), 7, 10)
	require.NotEmpty(t, topics)

	// Sorted descending by trend score
	for i := 1; i < len(topics); i++ {
		assert.GreaterOrEqual(t, topics[i-1].TrendScore, topics[i].TrendScore)
	}

	// Per-dimension counts can't exceed the matched total
	perDimension := map[string]int{}
	for _, topic := range topics {
		assert.Contains(t, []string{"category", "region"}, topic.Dimension)
		assert.InDelta(t, float64(topic.Count)/4.0, topic.TrendScore, 1e-9)
		perDimension[topic.Dimension] += topic.Count
	}
	for dimension, total := range perDimension {
		assert.LessOrEqual(t, total, 4, "dimension %s over-counted", dimension)
	}
}

func TestTrendingTopics_WindowExcludesOldChunks(t *testing.T) {
	m := mock.NewEmbedder()
	m.Dimension = testDimension
	searcher, repo := newTestSearcher(t, func(*ai.Config) (ai.Embedder, error) { return m, nil })

	seedChunks(t, repo, time.Now().UTC().AddDate(0, 0, -30))

	topics := searcher.TrendingTopics(context.Background(), 7, 10)
	assert.Empty(t, topics)
}

func TestRelatedContent(t *testing.T) {
	m := mock.NewEmbedder()
	m.Dimension = testDimension
	searcher, repo := newTestSearcher(t, func(*ai.Config) (ai.Embedder, error) { return m, nil })
	seedChunks(t, repo, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	seeds := searcher.Search(context.Background(),
		"copper exports rose sharply this quarter",
		WithThreshold(0.99))
	require.NotEmpty(t, seeds)
	seed := seeds[0].Chunk

	related := searcher.RelatedContent(context.Background(), seeds)
	require.NotNil(t, related)

	require.Len(t, related.SameCategory, 1, "one other mining chunk exists")
	assert.NotEqual(t, seed.Id, related.SameCategory[0].Chunk.Id)
	assert.Equal(t, "mining", related.SameCategory[0].Chunk.Category)

	require.Len(t, related.SameRegion, 1)
	assert.NotEqual(t, seed.Id, related.SameRegion[0].Chunk.Id)

	// Empty seeds yield an empty payload, never a nil pointer
	empty := searcher.RelatedContent(context.Background(), nil)
	require.NotNil(t, empty)
	assert.Empty(t, empty.SameCategory)
	assert.Empty(t, empty.SameRegion)
}

func TestExplain(t *testing.T) {
	m := mock.NewEmbedder()
	m.Dimension = testDimension
	searcher, repo := newTestSearcher(t, func(*ai.Config) (ai.Embedder, error) { return m, nil })
	seedChunks(t, repo, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	results := searcher.Search(context.Background(), "", WithTopK(10))
	explanation := searcher.Explain("", results)

	assert.Equal(t, 4, explanation.ResultCount)
	assert.Equal(t, []string{"agriculture", "economy", "mining"}, explanation.Categories)
	assert.Equal(t, []string{"andes", "cono-sur", "pampas"}, explanation.Regions)

	empty := searcher.Explain("nothing", nil)
	assert.Equal(t, 0, empty.ResultCount)
	assert.Zero(t, empty.MeanSimilarity)
}
