package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

func scored(id, docID, location string, ordinal int, text string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk:    domain.Chunk{ID: id, DocID: docID, Ordinal: ordinal, Text: text},
		Location: location,
		Score:    score,
	}
}

func TestComposeRendering(t *testing.T) {
	c, err := NewComposer(1000)
	require.NoError(t, err)

	results := []domain.ScoredChunk{
		scored("c1", "d1", "weather.txt", 0, "The sky is blue.", 0.9),
		scored("c2", "d2", "garden.txt", 3, "Grass is green.", 0.7),
	}

	prompt, err := c.Compose("What color is the sky?", results)
	require.NoError(t, err)

	want := "You are a helpful AI assistant. Answer the user's question based ONLY on the provided context. If the context does not contain the information needed to answer the question, state that you don't have enough information from the provided documents.\n" +
		"\n" +
		"CONTEXT:\n" +
		"[1] (source: weather.txt#0)\n" +
		"The sky is blue.\n" +
		"[2] (source: garden.txt#3)\n" +
		"Grass is green.\n" +
		"\n" +
		"QUESTION:\n" +
		"What color is the sky?\n" +
		"\n" +
		"ANSWER:\n"
	assert.Equal(t, want, prompt.Text)

	assert.Equal(t, "What color is the sky?", prompt.Query)
	require.Len(t, prompt.Citations, 2)
	assert.Equal(t, domain.Citation{ChunkID: "c1", DocID: "d1", Location: "weather.txt", Ordinal: 0}, prompt.Citations[0])
	assert.Equal(t, domain.Citation{ChunkID: "c2", DocID: "d2", Location: "garden.txt", Ordinal: 3}, prompt.Citations[1])
}

func TestComposeDeterministic(t *testing.T) {
	c, err := NewComposer(1000)
	require.NoError(t, err)

	results := []domain.ScoredChunk{
		scored("c1", "d1", "a.txt", 0, "Alpha.", 0.9),
		scored("c2", "d1", "a.txt", 1, "Beta.", 0.8),
	}

	first, err := c.Compose("query", results)
	require.NoError(t, err)
	second, err := c.Compose("query", results)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComposeSkipsOversizedPassages(t *testing.T) {
	c, err := NewComposer(20)
	require.NoError(t, err)

	results := []domain.ScoredChunk{
		scored("big", "d1", "a.txt", 0, strings.Repeat("x", 30), 0.9),
		scored("small", "d1", "a.txt", 1, "fits here", 0.5),
	}

	prompt, err := c.Compose("query", results)
	require.NoError(t, err)

	// The oversized passage is skipped whole; the smaller, lower-scored
	// one still fits.
	require.Len(t, prompt.Citations, 1)
	assert.Equal(t, "small", prompt.Citations[0].ChunkID)
	assert.Contains(t, prompt.Text, "fits here")
	assert.NotContains(t, prompt.Text, "xxx")
}

func TestComposeBudgetIsCumulative(t *testing.T) {
	c, err := NewComposer(25)
	require.NoError(t, err)

	results := []domain.ScoredChunk{
		scored("c1", "d1", "a.txt", 0, strings.Repeat("a", 10), 0.9),
		scored("c2", "d1", "a.txt", 1, strings.Repeat("b", 10), 0.8),
		scored("c3", "d1", "a.txt", 2, strings.Repeat("c", 10), 0.7),
		scored("c4", "d1", "a.txt", 3, strings.Repeat("d", 5), 0.6),
	}

	prompt, err := c.Compose("query", results)
	require.NoError(t, err)

	// 10 + 10 fit, the third 10 would exceed 25, the trailing 5 fits.
	require.Len(t, prompt.Citations, 3)
	assert.Equal(t, "c1", prompt.Citations[0].ChunkID)
	assert.Equal(t, "c2", prompt.Citations[1].ChunkID)
	assert.Equal(t, "c4", prompt.Citations[2].ChunkID)
}

func TestComposeEmptyResults(t *testing.T) {
	c, err := NewComposer(100)
	require.NoError(t, err)

	prompt, err := c.Compose("query", nil)
	require.NoError(t, err)
	assert.Empty(t, prompt.Citations)
	assert.Contains(t, prompt.Text, "QUESTION:\nquery")
}

func TestNewComposerValidation(t *testing.T) {
	_, err := NewComposer(0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
