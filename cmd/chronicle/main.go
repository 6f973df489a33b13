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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/chronicle"
	"github.com/poiesic/chronicle/ai"
	"github.com/poiesic/chronicle/core"
	"github.com/poiesic/chronicle/reindex"
	"github.com/poiesic/chronicle/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "chronicle",
		Usage: "Archive and semantic retrieval for generated news content",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "archive",
				Usage:  "Archive a content bundle from a JSON file",
				Action: archiveCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "bundle",
						Aliases:  []string{"b"},
						Usage:    "Path to the bundle JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Document date (YYYY-MM-DD), defaults to today",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Document type (daily_summary, article, full_corpus)",
						Value: "daily_summary",
					},
				),
			},
			{
				Name:   "search",
				Usage:  "Search archived chunks",
				Action: searchCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Query text (empty for a filter-only scan)",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of results",
						Value: search.DefaultTopK,
					},
					&cli.StringFlag{
						Name:  "region",
						Usage: "Restrict results to one region",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Restrict results to one category",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum cosine similarity",
						Value: search.DefaultThreshold,
					},
					&cli.IntFlag{
						Name:  "days-back",
						Usage: "Only match documents from the last N days (0 = no limit)",
					},
				),
			},
			{
				Name:   "trending",
				Usage:  "Show trending categories and regions",
				Action: trendingCommand,
				Flags: append(storeFlags(),
					&cli.IntFlag{
						Name:  "days-back",
						Usage: "Aggregation window in days",
						Value: 7,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of topics",
						Value: 10,
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Report archive counts and embedding readiness",
				Action: statusCommand,
				Flags:  storeFlags(),
			},
			{
				Name:   "cleanup",
				Usage:  "Delete documents older than the retention window",
				Action: cleanupCommand,
				Flags: append(storeFlags(),
					&cli.DurationFlag{
						Name:  "retention",
						Usage: "Retention window (e.g. 2160h for 90 days)",
						Value: 90 * 24 * time.Hour,
					},
				),
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every chunk with the configured model",
				Action: reindexCommand,
				Flags: append(storeFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
			{
				Name:   "gc",
				Usage:  "Run value-log garbage collection on the store",
				Action: gcCommand,
				Flags:  storeFlags(),
			},
		},
	}
}

// storeFlags are shared by every command that opens the archive.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.IntFlag{
			Name:  "dimension",
			Usage: "Embedding vector length",
			Value: 768,
		},
	}
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", c.String("log-level"))
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

func openCoordinator(c *cli.Context) (*chronicle.Coordinator, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithDimension(c.Int("dimension")),
	)
	return chronicle.New(c.String("db"), chronicle.WithAIConfig(aiConfig))
}

// bundleFile is the on-disk JSON shape accepted by the archive command.
type bundleFile struct {
	Title    string `json:"title"`
	Sections []struct {
		Region   string `json:"region"`
		Category string `json:"category"`
		Source   string `json:"source"`
		URL      string `json:"url"`
		Text     string `json:"text"`
	} `json:"sections"`
	Source   string            `json:"source"`
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata"`
}

func loadBundle(path string) (*core.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle file: %w", err)
	}

	var bf bundleFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse bundle file: %w", err)
	}

	bundle := &core.Bundle{
		Title:    bf.Title,
		Source:   bf.Source,
		URL:      bf.URL,
		Metadata: bf.Metadata,
	}
	for _, s := range bf.Sections {
		bundle.Sections = append(bundle.Sections, core.Section{
			Region:   s.Region,
			Category: s.Category,
			Source:   s.Source,
			URL:      s.URL,
			Text:     s.Text,
		})
	}
	return bundle, nil
}

func parseDocType(name string) (core.DocType, error) {
	switch name {
	case "daily_summary":
		return core.DocTypeDailySummary, nil
	case "article":
		return core.DocTypeArticle, nil
	case "full_corpus":
		return core.DocTypeFullCorpus, nil
	default:
		return 0, fmt.Errorf("unknown document type: %s", name)
	}
}

func archiveCommand(c *cli.Context) error {
	ctx := context.Background()

	bundle, err := loadBundle(c.String("bundle"))
	if err != nil {
		return err
	}

	docType, err := parseDocType(c.String("type"))
	if err != nil {
		return err
	}

	docDate := time.Now().UTC()
	if raw := c.String("date"); raw != "" {
		docDate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", raw, err)
		}
	}

	coordinator, err := openCoordinator(c)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer coordinator.Close()

	id, err := coordinator.ArchiveDocument(ctx, bundle, docDate, docType)
	if err != nil {
		return fmt.Errorf("archival failed: %w", err)
	}

	score, err := coordinator.VerifyIntegrity(ctx, id)
	if err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	fmt.Printf("Archived %q as %s (id %d, integrity %.2f)\n",
		bundle.Title, docType, uint64(id), score)
	return nil
}

func searchCommand(c *cli.Context) error {
	coordinator, err := openCoordinator(c)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer coordinator.Close()

	opts := []search.QueryOption{
		search.WithTopK(c.Int("top-k")),
		search.WithThreshold(float32(c.Float64("threshold"))),
	}
	if region := c.String("region"); region != "" {
		opts = append(opts, search.WithRegion(region))
	}
	if category := c.String("category"); category != "" {
		opts = append(opts, search.WithCategory(category))
	}
	if days := c.Int("days-back"); days > 0 {
		opts = append(opts, search.WithDateSince(time.Now().UTC().AddDate(0, 0, -days)))
	}

	query := c.String("query")
	results := coordinator.Search(context.Background(), query, opts...)
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%2d. [%.3f] %s/%s %s\n    %s\n",
			i+1, r.Similarity, r.Chunk.Region, r.Chunk.Category,
			r.Chunk.DocDate.Format("2006-01-02"), r.Chunk.Content)
	}

	explanation := coordinator.Explain(query, results)
	fmt.Printf("\n%d results, mean similarity %.3f, categories %v, regions %v\n",
		explanation.ResultCount, explanation.MeanSimilarity,
		explanation.Categories, explanation.Regions)
	return nil
}

func trendingCommand(c *cli.Context) error {
	coordinator, err := openCoordinator(c)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer coordinator.Close()

	topics := coordinator.TrendingTopics(context.Background(), c.Int("days-back"), c.Int("top-k"))
	if len(topics) == 0 {
		fmt.Println("No trending topics in the window.")
		return nil
	}

	for _, topic := range topics {
		fmt.Printf("%-8s %-20s %3d chunks (%.1f%%)\n",
			topic.Dimension, topic.Value, topic.Count, topic.TrendScore*100)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	coordinator, err := openCoordinator(c)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer coordinator.Close()

	status, err := coordinator.Status(context.Background())
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}

	fmt.Printf("Documents:        %d\n", status.Documents)
	fmt.Printf("Chunks:           %d\n", status.Chunks)
	fmt.Printf("Embedding ready:  %t\n", status.EmbeddingReady)
	fmt.Printf("Dimension:        %d\n", status.Dimension)
	return nil
}

func cleanupCommand(c *cli.Context) error {
	coordinator, err := openCoordinator(c)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer coordinator.Close()

	removed, err := coordinator.Cleanup(context.Background(), c.Duration("retention"))
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Printf("Removed %d documents past retention.\n", removed)
	return nil
}

func reindexCommand(c *cli.Context) error {
	coordinator, err := openCoordinator(c)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer coordinator.Close()

	config := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reindexer := coordinator.NewReindexer(config, os.Stderr)
	if err := reindexer.Run(context.Background()); err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	return nil
}

func gcCommand(c *cli.Context) error {
	coordinator, err := openCoordinator(c)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer coordinator.Close()

	if err := coordinator.RunGC(); err != nil {
		fmt.Printf("GC pass made no progress: %v\n", err)
		return nil
	}
	fmt.Println("GC pass complete.")
	return nil
}
