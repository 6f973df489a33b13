package search

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/chronicle/ai"
	"github.com/poiesic/chronicle/core"
	"github.com/poiesic/chronicle/storage"
)

const (
	// DefaultTopK is the default number of results per search.
	DefaultTopK = 10

	// DefaultThreshold is the default minimum cosine similarity for a chunk
	// to count as relevant.
	DefaultThreshold = 0.60

	// trendingCandidateK is the candidate pool for trend aggregation; wide
	// on purpose, trending wants recall over precision.
	trendingCandidateK = 200

	// relatedTopK bounds each related-content list.
	relatedTopK = 5

	// trendingQuery is the generic high-recall probe used for trend
	// aggregation.
	trendingQuery = "latest news developments announcements changes"
)

// Searcher runs filtered vector search over the archive.
//
// Search is advisory and fails closed: any internal error (embedding backend
// down, store unreachable) yields an empty result set, logged but never
// surfaced as an error to the caller.
type Searcher struct {
	repo             storage.ArchiveRepository
	embeddings       *ai.Service
	logger           *slog.Logger
	defaultTopK      int
	defaultThreshold float32
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDefaultTopK sets the result count used when a query doesn't specify one.
func WithDefaultTopK(k int) Option {
	return func(s *Searcher) error {
		if k > 0 {
			s.defaultTopK = k
		}
		return nil
	}
}

// WithDefaultThreshold sets the similarity threshold used when a query
// doesn't specify one.
func WithDefaultThreshold(t float32) Option {
	return func(s *Searcher) error {
		s.defaultThreshold = t
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(repo storage.ArchiveRepository, embeddings *ai.Service, opts ...Option) (*Searcher, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingServiceRequired
	}

	s := &Searcher{
		repo:             repo,
		embeddings:       embeddings,
		logger:           slog.Default(),
		defaultTopK:      DefaultTopK,
		defaultThreshold: DefaultThreshold,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// query collects per-call search parameters.
type query struct {
	topK         int
	region       string
	category     string
	dateSince    time.Time
	threshold    float32
	monitor      SearchMonitor
	excludeChunk core.ID
}

// QueryOption configures a single search call.
type QueryOption func(*query)

// WithTopK bounds the number of results.
func WithTopK(k int) QueryOption {
	return func(q *query) {
		if k > 0 {
			q.topK = k
		}
	}
}

// WithRegion restricts results to one region.
func WithRegion(region string) QueryOption {
	return func(q *query) { q.region = region }
}

// WithCategory restricts results to one category.
func WithCategory(category string) QueryOption {
	return func(q *query) { q.category = category }
}

// WithDateSince restricts results to documents dated at or after t.
func WithDateSince(t time.Time) QueryOption {
	return func(q *query) { q.dateSince = t }
}

// WithThreshold overrides the searcher's default similarity threshold.
func WithThreshold(t float32) QueryOption {
	return func(q *query) { q.threshold = t }
}

// WithMonitor attaches observation hooks to one search call.
func WithMonitor(m SearchMonitor) QueryOption {
	return func(q *query) {
		if m != nil {
			q.monitor = m
		}
	}
}

// withExcludedChunk drops one chunk from the results; used by related-content
// lookups so a seed never recommends itself.
func withExcludedChunk(id core.ID) QueryOption {
	return func(q *query) { q.excludeChunk = id }
}

// Search embeds the query text and returns up to TopK chunks ranked by
// cosine similarity, after applying region/category/date filters and the
// similarity threshold. A blank query skips embedding entirely and becomes a
// filter-only scan ordered by recency.
//
// Search never returns an error: failures yield an empty slice and a log
// line.
func (s *Searcher) Search(ctx context.Context, queryText string, opts ...QueryOption) []*core.SearchResult {
	q := &query{
		topK:      s.defaultTopK,
		threshold: s.defaultThreshold,
		monitor:   &noopMonitor{},
	}
	for _, opt := range opts {
		opt(q)
	}

	q.monitor.Start(queryText)

	filterOnly := strings.TrimSpace(queryText) == ""

	var embedding []float32
	if !filterOnly {
		var err error
		embedding, err = s.embeddings.Generate(ctx, queryText)
		if err != nil {
			s.logger.Error("query embedding failed, returning empty results",
				"query", queryText, "err", err)
			q.monitor.Failed("embedding", err)
			return nil
		}
	}
	q.monitor.AfterQueryEmbedding(len(embedding))

	filters := storage.Filters{
		Region:    q.region,
		Category:  q.category,
		DateSince: q.dateSince,
	}
	candidates, err := s.repo.VectorSearch(ctx, embedding, q.topK, filters)
	if err != nil {
		s.logger.Error("vector search failed, returning empty results",
			"query", queryText, "err", err)
		q.monitor.Failed("vector_search", err)
		return nil
	}
	q.monitor.AfterVectorSearch(candidates)

	results := make([]*core.SearchResult, 0, len(candidates))
	for _, candidate := range candidates {
		if q.excludeChunk != 0 && candidate.Chunk.Id == q.excludeChunk {
			continue
		}
		if !filterOnly && candidate.Similarity < q.threshold {
			continue
		}
		results = append(results, candidate)
	}
	q.monitor.AfterThresholdFilter(results)

	if !filterOnly {
		// Similarity descending; ties by chunk number ascending, then
		// document recency descending.
		sort.SliceStable(results, func(i, j int) bool {
			a, b := results[i], results[j]
			if a.Similarity != b.Similarity {
				return a.Similarity > b.Similarity
			}
			if a.Chunk.ChunkNo != b.Chunk.ChunkNo {
				return a.Chunk.ChunkNo < b.Chunk.ChunkNo
			}
			return a.Chunk.DocDate.After(b.Chunk.DocDate)
		})
	}

	q.monitor.Finish(results)
	return results
}

// TrendingTopics aggregates category and region frequencies over recent
// chunks into a heuristic trend signal. One broad high-recall query scoped
// to the last daysBack days feeds the aggregation; trend score is the share
// of matched chunks carrying the tag.
func (s *Searcher) TrendingTopics(ctx context.Context, daysBack, topK int) []core.TrendingTopic {
	if daysBack < 1 {
		daysBack = 1
	}
	if topK < 1 {
		topK = DefaultTopK
	}
	since := time.Now().UTC().AddDate(0, 0, -daysBack)

	// Threshold disabled: aggregation wants every in-window chunk the
	// candidate pool can hold.
	matched := s.Search(ctx, trendingQuery,
		WithTopK(trendingCandidateK),
		WithDateSince(since),
		WithThreshold(-1))
	if len(matched) == 0 {
		return nil
	}

	categories := make(map[string]int)
	regions := make(map[string]int)
	for _, result := range matched {
		if result.Chunk.Category != "" {
			categories[result.Chunk.Category]++
		}
		if result.Chunk.Region != "" {
			regions[result.Chunk.Region]++
		}
	}

	total := len(matched)
	topics := make([]core.TrendingTopic, 0, len(categories)+len(regions))
	for value, count := range categories {
		topics = append(topics, core.TrendingTopic{
			Dimension:  "category",
			Value:      value,
			Count:      count,
			TrendScore: float64(count) / float64(total),
		})
	}
	for value, count := range regions {
		topics = append(topics, core.TrendingTopic{
			Dimension:  "region",
			Value:      value,
			Count:      count,
			TrendScore: float64(count) / float64(total),
		})
	}

	slices.SortFunc(topics, func(a, b core.TrendingTopic) int {
		if a.TrendScore != b.TrendScore {
			if a.TrendScore > b.TrendScore {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Value, b.Value)
	})

	if len(topics) > topK {
		topics = topics[:topK]
	}
	return topics
}

// RelatedContent holds chunks sharing the seed result's category or region.
type RelatedContent struct {
	SameCategory []*core.SearchResult
	SameRegion   []*core.SearchResult
}

// RelatedContent finds chunks related to the top seed result through shared
// category and region tags, using filter-only searches that exclude the seed
// chunk itself.
func (s *Searcher) RelatedContent(ctx context.Context, seeds []*core.SearchResult) *RelatedContent {
	related := &RelatedContent{}
	if len(seeds) == 0 || seeds[0].Chunk == nil {
		return related
	}
	seed := seeds[0].Chunk

	if seed.Category != "" {
		related.SameCategory = s.Search(ctx, "",
			WithTopK(relatedTopK),
			WithCategory(seed.Category),
			withExcludedChunk(seed.Id))
	}
	if seed.Region != "" {
		related.SameRegion = s.Search(ctx, "",
			WithTopK(relatedTopK),
			WithRegion(seed.Region),
			withExcludedChunk(seed.Id))
	}
	return related
}

// Explanation is a descriptive summary of one search's results. It never
// affects ranking or filtering.
type Explanation struct {
	Query          string
	ResultCount    int
	MeanSimilarity float32
	Categories     []string
	Regions        []string
}

// Explain summarizes a result set for display and debugging.
func (s *Searcher) Explain(queryText string, results []*core.SearchResult) *Explanation {
	explanation := &Explanation{
		Query:       queryText,
		ResultCount: len(results),
	}
	if len(results) == 0 {
		return explanation
	}

	var sum float64
	categorySet := make(map[string]bool)
	regionSet := make(map[string]bool)
	for _, result := range results {
		sum += float64(result.Similarity)
		if result.Chunk.Category != "" {
			categorySet[result.Chunk.Category] = true
		}
		if result.Chunk.Region != "" {
			regionSet[result.Chunk.Region] = true
		}
	}
	explanation.MeanSimilarity = float32(sum / float64(len(results)))

	for category := range categorySet {
		explanation.Categories = append(explanation.Categories, category)
	}
	for region := range regionSet {
		explanation.Regions = append(explanation.Regions, region)
	}
	slices.Sort(explanation.Categories)
	slices.Sort(explanation.Regions)

	return explanation
}
