// Command benchmark runs a query against an existing index and reports
// retrieval quality and latency, for eyeballing embedding and index
// configuration before wiring a generative model in.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"docrag/config"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/vectorstore"
	"docrag/internal/port"
)

func main() {
	indexDir := flag.String("index", ".", "Path to indexed directory")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -index ./tmp -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Retrieval infrastructure (embedding provider, index)")
		fmt.Println("  2. Search latency")
		fmt.Println("  3. Score distribution of the top results")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*indexDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	embedder, index, err := setup(ctx, cfg, *indexDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval not available: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	count, _ := index.Count(ctx)
	fmt.Printf("Chunks indexed: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Println()

	fmt.Printf("Query: %q\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	vectors, err := embedder.Embed(ctx, []string{*query})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Query embedded: %d dimensions\n\n", len(vectors[0]))

	started := time.Now()
	matches, err := index.Query(ctx, vectors[0], *topK)
	elapsed := time.Since(started)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	if len(matches) == 0 {
		fmt.Println("No matches; ingest some documents first.")
		os.Exit(1)
	}

	fmt.Printf("Top %d matches in %s:\n\n", len(matches), elapsed.Round(time.Microsecond))

	totalScore := 0.0
	for i, m := range matches {
		preview := strings.ReplaceAll(m.Metadata[port.MetaText], "\n", " ")
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}

		totalScore += m.Score

		rating := "LOW"
		switch {
		case m.Score > 0.7:
			rating = "HIGH"
		case m.Score > 0.5:
			rating = "GOOD"
		case m.Score > 0.3:
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s#%s\n", i+1, rating, m.Score,
			m.Metadata[port.MetaLocation], m.Metadata[port.MetaOrdinal])
		fmt.Printf("   %s\n\n", preview)
	}

	avgScore := totalScore / float64(len(matches))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average score: %.3f\n", avgScore)
	fmt.Printf("  Top-1 score:   %.3f\n", matches[0].Score)
	fmt.Printf("  Latency:       %s\n", elapsed.Round(time.Microsecond))

	switch {
	case avgScore > 0.5:
		fmt.Println("  Status: GOOD - retrieval working well")
	case avgScore > 0.3:
		fmt.Println("  Status: OK - results are somewhat related")
	default:
		fmt.Println("  Status: POOR - consider a different model or chunk size")
	}
}

func setup(ctx context.Context, cfg *config.Config, dir string) (port.Embedder, port.VectorIndex, error) {
	var embedder port.Embedder
	var err error

	switch cfg.Embedding.Provider {
	case "mock":
		embedder = embedding.NewMock(cfg.Embedding.Dimension)
	case "openai", "":
		embedder, err = embedding.NewOpenAI(embedding.Config{
			APIKey:    os.Getenv(cfg.Embedding.APIKeyEnv),
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
		})
	default:
		return nil, nil, fmt.Errorf("unsupported provider: %s", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("embedder init failed: %w", err)
	}

	measure, err := vectorstore.ParseDistance(cfg.Index.Distance)
	if err != nil {
		return nil, nil, err
	}
	index, err := vectorstore.NewBolt(config.IndexDBPath(dir), embedder.Dimension(), measure)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}

	count, _ := index.Count(ctx)
	if count == 0 {
		return nil, nil, fmt.Errorf("empty index - run 'docrag ingest' first")
	}

	return embedder, index, nil
}
