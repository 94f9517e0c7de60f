package port

import "context"

// Metadata keys stored alongside every vector. The index owns this
// metadata once upserted; the ingestion pipeline keeps no authoritative
// copy.
const (
	MetaDocID    = "doc_id"
	MetaLocation = "location"
	MetaOrdinal  = "ordinal"
	MetaText     = "text"
)

// Record is a (vector, metadata) pair keyed by chunk ID.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Match is one nearest-neighbour search result. Score is normalised so
// higher is always closer, whatever the underlying distance measure.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// VectorIndex stores and searches embedding vectors.
//
// A successful Upsert does not guarantee immediate visibility to
// subsequent Query calls; remote indexes are eventually consistent and
// callers must not assume otherwise.
type VectorIndex interface {
	// Upsert adds or replaces records, keyed by record ID. Re-upserting
	// an ID replaces its vector and metadata rather than duplicating.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to k records nearest to the query vector,
	// ordered by descending score.
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)

	// Count returns the number of records in the index.
	Count(ctx context.Context) (int, error)
}
