package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts. The result is
	// positionally aligned with the input: result[i] embeds texts[i].
	// Inputs larger than the provider batch limit are split into
	// sequential batches internally.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
