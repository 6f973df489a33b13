package chronicle

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/chronicle/ai"
	"github.com/poiesic/chronicle/ai/mock"
	"github.com/poiesic/chronicle/core"
	"github.com/poiesic/chronicle/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 16

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()

	m := mock.NewEmbedder()
	m.Dimension = testDimension

	c, err := New("",
		WithInMemoryStore(),
		WithAIConfig(ai.NewConfig(ai.WithDimension(testDimension))),
		WithEmbedderFactory(func(*ai.Config) (ai.Embedder, error) { return m, nil }))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func summaryBundle(title, region, category string) *core.Bundle {
	sentence := strings.Repeat("lorem ", 11) + "end."
	text := strings.Join([]string{sentence, sentence, sentence, sentence}, " ")
	return &core.Bundle{
		Title:    title,
		Sections: []core.Section{{Region: region, Category: category, Text: text}},
		Source:   "integration-test",
	}
}

func TestCoordinator_ArchiveThenSearch(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	docDate := time.Now().UTC().AddDate(0, 0, -1)

	id, err := c.ArchiveDocument(ctx, summaryBundle("Daily wrap", "andes", "mining"), docDate, core.DocTypeDailySummary)
	require.NoError(t, err)
	require.NotZero(t, id)

	score, err := c.VerifyIntegrity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	// Filter-only search sees the archived chunks
	results := c.Search(ctx, "", search.WithCategory("mining"))
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "andes", r.Chunk.Region)
	}

	topics := c.TrendingTopics(ctx, 7, 10)
	require.NotEmpty(t, topics)
	assert.Equal(t, 1.0, topics[0].TrendScore)

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Documents)
	assert.Greater(t, status.Chunks, 0)
	assert.True(t, status.EmbeddingReady)
	assert.Equal(t, testDimension, status.Dimension)
}

func TestCoordinator_Cleanup(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	oldDate := time.Now().UTC().AddDate(0, 0, -60)
	freshDate := time.Now().UTC().AddDate(0, 0, -1)

	_, err := c.ArchiveDocument(ctx, summaryBundle("Stale", "", "economy"), oldDate, core.DocTypeDailySummary)
	require.NoError(t, err)
	_, err = c.ArchiveDocument(ctx, summaryBundle("Fresh", "", "economy"), freshDate, core.DocTypeDailySummary)
	require.NoError(t, err)

	removed, err := c.Cleanup(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Documents)
}

func TestCoordinator_ReindexRoundTrip(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.ArchiveDocument(ctx, summaryBundle("Wrap", "pampas", "agriculture"),
		time.Now().UTC(), core.DocTypeDailySummary)
	require.NoError(t, err)

	var out strings.Builder
	r := c.NewReindexer(nil, &out)
	require.NoError(t, r.Run(ctx))
	assert.Contains(t, out.String(), "Reindex complete")
}

func TestCoordinator_StatusBeforeFirstEmbedding(t *testing.T) {
	c := newTestCoordinator(t)

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.EmbeddingReady, "readiness must not trigger a model load")
	assert.Equal(t, 0, status.Documents)
}
