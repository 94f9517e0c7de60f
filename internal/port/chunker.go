package port

import "docrag/internal/domain"

// Chunker splits a document's text into bounded passages suitable for
// embedding and retrieval. Implementations are deterministic: the same
// document and configuration always produce the same chunks.
type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Chunk, error)
}
