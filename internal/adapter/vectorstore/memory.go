package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// MemoryIndex is an in-memory vector index. Unlike remote indexes it is
// read-after-write consistent, which makes it the reference
// implementation for pipeline tests.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	measure   Distance
	records   map[string]port.Record
}

// NewMemory creates an empty in-memory index with a fixed dimension.
func NewMemory(dimension int, measure Distance) *MemoryIndex {
	return &MemoryIndex{
		dimension: dimension,
		measure:   measure,
		records:   make(map[string]port.Record),
	}
}

// Upsert adds or replaces records keyed by ID.
func (s *MemoryIndex) Upsert(_ context.Context, records []port.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("%w: index dimension %d, record %q has %d", domain.ErrDimensionMismatch, s.dimension, r.ID, len(r.Vector))
		}
		s.records[r.ID] = copyRecord(r)
	}
	return nil
}

// Query returns up to k nearest records ordered by descending score.
func (s *MemoryIndex) Query(_ context.Context, vector []float32, k int) ([]port.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: index dimension %d, query has %d", domain.ErrDimensionMismatch, s.dimension, len(vector))
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}

	matches := make([]port.Match, 0, len(s.records))
	for id, r := range s.records {
		matches = append(matches, port.Match{
			ID:       id,
			Score:    score(s.measure, vector, r.Vector),
			Metadata: r.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of records in the index.
func (s *MemoryIndex) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func copyRecord(r port.Record) port.Record {
	vec := make([]float32, len(r.Vector))
	copy(vec, r.Vector)
	meta := make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		meta[k] = v
	}
	return port.Record{ID: r.ID, Vector: vec, Metadata: meta}
}
