package port

import "context"

// GenerateOptions are the sampling parameters for one generation call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// LLM represents a generative language model. Generation is not
// idempotent, so implementations must not retry on their own.
type LLM interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
