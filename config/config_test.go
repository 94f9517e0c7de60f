package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1200, cfg.Chunker.MaxChunkSize)
	assert.Equal(t, 120, cfg.Chunker.Overlap)
	assert.Equal(t, "sentence", cfg.Chunker.Boundary)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, 100, cfg.Embedding.BatchSize)
	assert.Equal(t, "bolt", cfg.Index.Provider)
	assert.Equal(t, "cosine", cfg.Index.Distance)
	assert.Equal(t, 5, cfg.Retrieve.TopK)
	assert.Equal(t, 6000, cfg.Prompt.ContextBudget)
	assert.Equal(t, "gpt-4o-mini", cfg.Generation.Model)
	assert.False(t, cfg.Generation.FallbackUngrounded)
}

func TestLoadNonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/docrag.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docrag.yaml")
	content := `
chunker:
  max_chunk_size: 800
  boundary: paragraph
embedding:
  provider: mock
  dimension: 64
retrieve:
  top_k: 10
  min_score: 0.3
generation:
  fallback_ungrounded: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunker.MaxChunkSize)
	assert.Equal(t, "paragraph", cfg.Chunker.Boundary)
	assert.Equal(t, "mock", cfg.Embedding.Provider)
	assert.Equal(t, 64, cfg.Embedding.Dimension)
	assert.Equal(t, 10, cfg.Retrieve.TopK)
	assert.InDelta(t, 0.3, cfg.Retrieve.MinScore, 1e-9)
	assert.True(t, cfg.Generation.FallbackUngrounded)

	// Untouched sections keep their defaults.
	assert.Equal(t, 120, cfg.Chunker.Overlap)
	assert.Equal(t, "bolt", cfg.Index.Provider)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".docrag"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docrag", "config.yaml"),
		[]byte("retrieve:\n  top_k: 7\n"), 0644))
	cfg, err = LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retrieve.TopK)

	// docrag.yaml at the root wins over .docrag/config.yaml.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docrag.yaml"),
		[]byte("retrieve:\n  top_k: 9\n"), 0644))
	cfg, err = LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Retrieve.TopK)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docrag.yaml")

	cfg := DefaultConfig()
	cfg.Retrieve.TopK = 11
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
