package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var bucketRecords = []byte("records")

// BoltIndex is a bbolt-backed vector index. Vectors are kept in memory
// for brute-force search and persisted to disk on every upsert, so the
// index survives restarts. Search is exact; suitable for indexes up to
// the low hundreds of thousands of records.
type BoltIndex struct {
	db        *bbolt.DB
	dimension int
	measure   Distance

	mu      sync.RWMutex
	records map[string]port.Record
}

type storedRecord struct {
	Vector   []float32         `json:"v"`
	Metadata map[string]string `json:"m,omitempty"`
}

// NewBolt opens (or creates) a bolt-backed index at path.
func NewBolt(path string, dimension int, measure Distance) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create records bucket: %w", err)
	}

	s := &BoltIndex{
		db:        db,
		dimension: dimension,
		measure:   measure,
		records:   make(map[string]port.Record),
	}
	if err := s.loadRecords(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	return s, nil
}

func (s *BoltIndex) loadRecords() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b == nil {
			return fmt.Errorf("%w: records bucket missing", domain.ErrIndexNotReady)
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			s.records[string(k)] = port.Record{
				ID:       string(k),
				Vector:   stored.Vector,
				Metadata: stored.Metadata,
			}
			return nil
		})
	})
}

// Upsert adds or replaces records keyed by ID. The write is atomic per
// record: a record is either fully indexed with its metadata or not at
// all.
func (s *BoltIndex) Upsert(ctx context.Context, records []port.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b == nil {
			return fmt.Errorf("%w: records bucket missing", domain.ErrIndexNotReady)
		}

		for _, r := range records {
			if len(r.Vector) != s.dimension {
				return fmt.Errorf("%w: index dimension %d, record %q has %d", domain.ErrDimensionMismatch, s.dimension, r.ID, len(r.Vector))
			}

			data, err := json.Marshal(storedRecord{Vector: r.Vector, Metadata: r.Metadata})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(r.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, r := range records {
		s.records[r.ID] = copyRecord(r)
	}
	return nil
}

// Query returns up to k nearest records ordered by descending score.
func (s *BoltIndex) Query(ctx context.Context, vector []float32, k int) ([]port.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

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
func (s *BoltIndex) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close closes the underlying database.
func (s *BoltIndex) Close() error {
	return s.db.Close()
}
