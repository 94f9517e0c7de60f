package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/vectorstore"
	"docrag/internal/domain"
	"docrag/internal/port"
)

// keywordEmbedder maps texts onto a fixed vocabulary axis, so tests can
// predict which stored chunk a query lands nearest to.
type keywordEmbedder struct {
	vocab []string
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(e.vocab))
		lower := strings.ToLower(text)
		for j, word := range e.vocab {
			v[j] = float32(strings.Count(lower, word))
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *keywordEmbedder) Dimension() int    { return len(e.vocab) }
func (e *keywordEmbedder) ModelName() string { return "keyword" }

func seedIndex(t *testing.T, embedder port.Embedder) *vectorstore.MemoryIndex {
	t.Helper()
	ctx := context.Background()
	index := vectorstore.NewMemory(embedder.Dimension(), vectorstore.DistanceCosine)

	chunks := []struct {
		id, text, location, ordinal string
	}{
		{"c1", "The sky is blue on clear days.", "weather.txt", "0"},
		{"c2", "Grass is green in the spring.", "garden.txt", "0"},
		{"c3", "Roses are red and smell sweet.", "garden.txt", "1"},
	}
	for _, c := range chunks {
		vecs, err := embedder.Embed(ctx, []string{c.text})
		require.NoError(t, err)
		require.NoError(t, index.Upsert(ctx, []port.Record{{
			ID:     c.id,
			Vector: vecs[0],
			Metadata: map[string]string{
				port.MetaDocID:    "doc-" + c.location,
				port.MetaLocation: c.location,
				port.MetaOrdinal:  c.ordinal,
				port.MetaText:     c.text,
			},
		}}))
	}
	return index
}

func TestRetrieveRanksByRelevance(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"sky", "grass", "roses", "blue", "green", "red"}}
	index := seedIndex(t, embedder)
	uc := NewRetrieveUseCase(embedder, index, 0, nil)

	results, err := uc.Retrieve(context.Background(), "What color is the sky?", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Equal(t, "The sky is blue on clear days.", results[0].Chunk.Text)
	assert.Equal(t, "weather.txt", results[0].Location)
	assert.Equal(t, 0, results[0].Chunk.Ordinal)
	assert.Equal(t, "doc-weather.txt", results[0].Chunk.DocID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestRetrieveMinScoreFilter(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"sky", "grass", "roses"}}
	index := seedIndex(t, embedder)
	uc := NewRetrieveUseCase(embedder, index, 0.9, nil)

	// Only the sky chunk scores near 1 for a pure sky query.
	results, err := uc.Retrieve(context.Background(), "sky sky sky", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Chunk.ID)
}

func TestRetrieveZeroResultsIsNotAnError(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"sky", "grass", "roses"}}
	index := vectorstore.NewMemory(embedder.Dimension(), vectorstore.DistanceCosine)
	uc := NewRetrieveUseCase(embedder, index, 0, nil)

	results, err := uc.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveValidation(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"sky"}}
	index := vectorstore.NewMemory(1, vectorstore.DistanceCosine)
	uc := NewRetrieveUseCase(embedder, index, 0, nil)

	_, err := uc.Retrieve(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Retrieve(context.Background(), "query", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
