package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// RetrieveUseCase embeds a query and finds its nearest chunks. Results
// keep the index's native ordering; no re-ranking is applied.
type RetrieveUseCase struct {
	embedder port.Embedder
	index    port.VectorIndex
	minScore float64
	log      *zap.Logger
}

// NewRetrieveUseCase creates a retrieval pipeline. minScore drops
// results scoring below the threshold (0 disables the filter).
func NewRetrieveUseCase(embedder port.Embedder, index port.VectorIndex, minScore float64, log *zap.Logger) *RetrieveUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &RetrieveUseCase{
		embedder: embedder,
		index:    index,
		minScore: minScore,
		log:      log,
	}
}

// Retrieve returns up to k chunks nearest the query, ordered by
// descending score. Zero results is a valid outcome, not an error.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}

	// Exactly one embedding call, batch of one.
	vectors, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	matches, err := u.index.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]domain.ScoredChunk, 0, len(matches))
	for _, m := range matches {
		if u.minScore > 0 && m.Score < u.minScore {
			continue
		}
		results = append(results, domain.ScoredChunk{
			Chunk:    chunkFromMatch(m),
			Location: m.Metadata[port.MetaLocation],
			Score:    m.Score,
		})
	}

	u.log.Debug("retrieval complete",
		zap.Int("requested", k),
		zap.Int("matches", len(matches)),
		zap.Int("above_threshold", len(results)))

	return results, nil
}

// chunkFromMatch rebuilds a chunk from the metadata the index carries.
func chunkFromMatch(m port.Match) domain.Chunk {
	ordinal, _ := strconv.Atoi(m.Metadata[port.MetaOrdinal])
	return domain.Chunk{
		ID:      m.ID,
		DocID:   m.Metadata[port.MetaDocID],
		Ordinal: ordinal,
		Text:    m.Metadata[port.MetaText],
	}
}
