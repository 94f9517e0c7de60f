package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/vectorstore"
	"docrag/internal/domain"
	"docrag/internal/port"
)

// scriptedLLM returns a fixed completion and records prompts.
type scriptedLLM struct {
	reply   string
	err     error
	prompts []string
}

func (l *scriptedLLM) Generate(_ context.Context, prompt string, _ port.GenerateOptions) (string, error) {
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	return l.reply, nil
}

func (l *scriptedLLM) ModelName() string { return "scripted" }

func newAnswerTest(t *testing.T, embedder port.Embedder, index port.VectorIndex, llm port.LLM, fallback bool) *AnswerUseCase {
	t.Helper()
	composer, err := NewComposer(1000)
	require.NoError(t, err)
	retriever := NewRetrieveUseCase(embedder, index, 0.5, nil)
	return NewAnswerUseCase(retriever, composer, llm, port.GenerateOptions{MaxTokens: 128}, fallback, nil)
}

func TestAnswerGrounded(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"sky", "grass", "roses"}}
	index := seedIndex(t, embedder)
	llm := &scriptedLLM{reply: "The sky is blue."}

	uc := newAnswerTest(t, embedder, index, llm, false)

	answer, err := uc.Answer(context.Background(), "What color is the sky?", 3)
	require.NoError(t, err)

	assert.True(t, answer.Grounded)
	assert.Equal(t, "The sky is blue.", answer.Text)
	require.NotEmpty(t, answer.Citations)
	assert.Equal(t, "c1", answer.Citations[0].ChunkID)
	assert.Equal(t, "weather.txt", answer.Citations[0].Location)

	// The model saw the composed prompt, not the bare query.
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "CONTEXT:")
	assert.Contains(t, llm.prompts[0], "The sky is blue on clear days.")
	assert.Contains(t, llm.prompts[0], "What color is the sky?")
}

func TestAnswerNoContextWithoutFallback(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"sky", "grass", "roses"}}
	index := vectorstore.NewMemory(embedder.Dimension(), vectorstore.DistanceCosine)
	llm := &scriptedLLM{reply: "should not be called"}

	uc := newAnswerTest(t, embedder, index, llm, false)

	answer, err := uc.Answer(context.Background(), "What color is the sky?", 3)
	require.NoError(t, err)

	assert.False(t, answer.Grounded)
	assert.Empty(t, answer.Text)
	assert.Empty(t, answer.Citations)
	assert.Empty(t, llm.prompts, "no generation without context or fallback")
}

func TestAnswerNoContextWithFallback(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"sky", "grass", "roses"}}
	index := vectorstore.NewMemory(embedder.Dimension(), vectorstore.DistanceCosine)
	llm := &scriptedLLM{reply: "From general knowledge: blue."}

	uc := newAnswerTest(t, embedder, index, llm, true)

	answer, err := uc.Answer(context.Background(), "What color is the sky?", 3)
	require.NoError(t, err)

	assert.False(t, answer.Grounded, "fallback answers are never grounded")
	assert.Equal(t, "From general knowledge: blue.", answer.Text)
	assert.Empty(t, answer.Citations)

	// Fallback sends the bare query, not a context prompt.
	require.Len(t, llm.prompts, 1)
	assert.Equal(t, "What color is the sky?", llm.prompts[0])
}

func TestAnswerGenerationFailureIsAnError(t *testing.T) {
	embedder := &keywordEmbedder{vocab: []string{"sky", "grass", "roses"}}
	index := seedIndex(t, embedder)
	llm := &scriptedLLM{err: domain.ErrTransientCapacity}

	uc := newAnswerTest(t, embedder, index, llm, false)

	_, err := uc.Answer(context.Background(), "What color is the sky?", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransientCapacity)
}

func TestAssemble(t *testing.T) {
	prompt := domain.Prompt{
		Text:  "rendered prompt",
		Query: "q",
		Citations: []domain.Citation{
			{ChunkID: "c1", DocID: "d1", Location: "a.txt", Ordinal: 0},
		},
	}

	answer := Assemble(prompt, "generated text")
	assert.Equal(t, "generated text", answer.Text)
	assert.True(t, answer.Grounded)
	assert.Equal(t, prompt.Citations, answer.Citations)

	empty := Assemble(domain.Prompt{Query: "q"}, "text")
	assert.False(t, empty.Grounded)
}
