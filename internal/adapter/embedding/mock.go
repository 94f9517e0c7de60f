package embedding

import "context"

// MockEmbedder produces deterministic embeddings derived from the text
// bytes. Useful for tests and offline runs; not semantically meaningful.
type MockEmbedder struct {
	dimension int
}

// NewMock creates a mock embedder with the given dimension.
func NewMock(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, e.dimension)
		for j, r := range text {
			v[j%e.dimension] += float32(r) / 1000.0
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
