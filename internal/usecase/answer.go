package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// Retriever finds the chunks nearest a query. *RetrieveUseCase
// satisfies it, as does any caching wrapper around one.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// AnswerUseCase is the query entry point: retrieve, compose, generate,
// assemble. "No supporting context" (zero results above the threshold)
// is a distinct outcome from a generation failure: the former yields an
// ungrounded Answer, the latter an error.
type AnswerUseCase struct {
	retriever Retriever
	composer  *Composer
	llm       port.LLM
	opts      port.GenerateOptions

	// fallbackUngrounded answers from the model's general knowledge when
	// no context is available. Such answers carry no citations.
	fallbackUngrounded bool

	log *zap.Logger
}

// NewAnswerUseCase creates the query pipeline.
func NewAnswerUseCase(
	retriever Retriever,
	composer *Composer,
	llm port.LLM,
	opts port.GenerateOptions,
	fallbackUngrounded bool,
	log *zap.Logger,
) *AnswerUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnswerUseCase{
		retriever:          retriever,
		composer:           composer,
		llm:                llm,
		opts:               opts,
		fallbackUngrounded: fallbackUngrounded,
		log:                log,
	}
}

// Answer retrieves context for the query and generates a cited answer.
// When nothing scores above the threshold, the result is ungrounded:
// empty unless fallback generation is enabled.
func (u *AnswerUseCase) Answer(ctx context.Context, query string, k int) (*domain.Answer, error) {
	results, err := u.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	prompt, err := u.composer.Compose(query, results)
	if err != nil {
		return nil, err
	}

	if len(prompt.Citations) == 0 {
		u.log.Info("no supporting context above threshold", zap.String("query", query))
		if !u.fallbackUngrounded {
			return &domain.Answer{Grounded: false}, nil
		}

		text, err := u.llm.Generate(ctx, query, u.opts)
		if err != nil {
			return nil, fmt.Errorf("fallback generation failed: %w", err)
		}
		return &domain.Answer{Text: text, Grounded: false}, nil
	}

	text, err := u.llm.Generate(ctx, prompt.Text, u.opts)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	answer := Assemble(prompt, text)
	u.log.Info("answer generated",
		zap.String("query", query),
		zap.Int("citations", len(answer.Citations)))
	return &answer, nil
}

// Assemble attaches to the generated text the sources that were
// actually included in the prompt, in prompt order. The text is passed
// through unmodified.
func Assemble(prompt domain.Prompt, generated string) domain.Answer {
	citations := make([]domain.Citation, len(prompt.Citations))
	copy(citations, prompt.Citations)
	return domain.Answer{
		Text:      generated,
		Citations: citations,
		Grounded:  len(citations) > 0,
	}
}
