package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docrag/config"
	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/llm"
	"docrag/internal/adapter/source"
	"docrag/internal/adapter/vectorstore"
	"docrag/internal/port"
)

// buildChunker constructs the chunker from config.
func buildChunker(cfg *config.Config) (port.Chunker, error) {
	return chunker.New(cfg.Chunker.MaxChunkSize, cfg.Chunker.Overlap, chunker.Policy(cfg.Chunker.Boundary))
}

// buildSource constructs the document source rooted at the working
// directory.
func buildSource(cfg *config.Config, dir string) (port.DocumentSource, error) {
	root := cfg.Source.Root
	if root == "" {
		root = dir
	} else if !filepath.IsAbs(root) {
		root = filepath.Join(dir, root)
	}
	return source.NewFS(root, cfg.Source.Excludes)
}

// buildEmbedder constructs the embedding client from config.
func buildEmbedder(cfg *config.Config) (port.Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case "mock":
		return embedding.NewMock(ec.Dimension), nil
	case "openai", "":
		return embedding.NewOpenAI(embedding.Config{
			APIKey:         os.Getenv(ec.APIKeyEnv),
			BaseURL:        ec.BaseURL,
			Model:          ec.Model,
			Dimension:      ec.Dimension,
			BatchSize:      ec.BatchSize,
			MaxTextLen:     ec.MaxTextLen,
			Timeout:        time.Duration(ec.TimeoutSecs) * time.Second,
			MaxRetries:     ec.MaxRetries,
			RequestsPerSec: ec.RequestsPerSec,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", ec.Provider)
	}
}

// buildIndex constructs the vector index from config. The returned
// closer is a no-op for indexes without local state.
func buildIndex(ctx context.Context, cfg *config.Config, dir string, dimension int) (port.VectorIndex, func() error, error) {
	measure, err := vectorstore.ParseDistance(cfg.Index.Distance)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Index.Provider {
	case "memory":
		return vectorstore.NewMemory(dimension, measure), func() error { return nil }, nil

	case "bolt", "":
		path := cfg.Index.Path
		if path == "" {
			path = config.IndexDBPath(dir)
		} else if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create index directory: %w", err)
		}
		idx, err := vectorstore.NewBolt(path, dimension, measure)
		if err != nil {
			return nil, nil, err
		}
		return idx, idx.Close, nil

	case "qdrant":
		qc := cfg.Index.Qdrant
		if qc == nil {
			return nil, nil, fmt.Errorf("qdrant index selected but not configured")
		}
		idx, err := vectorstore.NewQdrant(vectorstore.QdrantConfig{
			URL:        qc.URL,
			APIKey:     os.Getenv(qc.APIKeyEnv),
			Collection: qc.Collection,
			Dimension:  dimension,
			Measure:    measure,
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
			MaxRetries: qc.MaxRetries,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := idx.EnsureCollection(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to ensure qdrant collection: %w", err)
		}
		return idx, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown index provider: %s", cfg.Index.Provider)
	}
}

// buildLLM constructs the generative client from config.
func buildLLM(cfg *config.Config) (port.LLM, error) {
	gc := cfg.Generation
	switch gc.Provider {
	case "openai", "":
		return llm.NewOpenAI(llm.Config{
			APIKey:  os.Getenv(gc.APIKeyEnv),
			BaseURL: gc.BaseURL,
			Model:   gc.Model,
			Timeout: time.Duration(gc.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", gc.Provider)
	}
}
