package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// QdrantIndex is a minimal REST client for a Qdrant collection.
//
// Upserts are acknowledged by the server before they are necessarily
// visible to searches; callers must not assume read-after-write
// consistency.
type QdrantIndex struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	measure    Distance
	maxRetries int
	client     *http.Client
}

// QdrantConfig holds connection details for a Qdrant collection.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Measure    Distance
	Timeout    time.Duration
	MaxRetries int
}

const (
	qdrantMaxRetries  = 4
	qdrantBackoffBase = 500 * time.Millisecond
	qdrantBackoffCap  = 8 * time.Second
)

var qdrantDistances = map[Distance]string{
	DistanceCosine:    "Cosine",
	DistanceDot:       "Dot",
	DistanceEuclidean: "Euclid",
}

// NewQdrant creates a Qdrant-backed index client.
func NewQdrant(cfg QdrantConfig) (*QdrantIndex, error) {
	if cfg.URL == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("%w: qdrant url and collection are required", domain.ErrInvalidInput)
	}
	if _, ok := qdrantDistances[cfg.Measure]; !ok {
		return nil, fmt.Errorf("%w: unsupported distance measure %q", domain.ErrInvalidInput, cfg.Measure)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = qdrantMaxRetries
	}

	return &QdrantIndex{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		measure:    cfg.Measure,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// EnsureCollection creates the collection if it does not exist. Qdrant
// returns success when the collection already exists with the same
// schema.
func (s *QdrantIndex) EnsureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": qdrantDistances[s.measure],
		},
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body, nil)
}

// Upsert adds or replaces records. Point IDs are derived
// deterministically from record IDs, so re-upserting a chunk replaces
// its point instead of duplicating it.
func (s *QdrantIndex) Upsert(ctx context.Context, records []port.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]map[string]any, len(records))
	for i, r := range records {
		if s.dimension > 0 && len(r.Vector) != s.dimension {
			return fmt.Errorf("%w: collection dimension %d, record %q has %d", domain.ErrDimensionMismatch, s.dimension, r.ID, len(r.Vector))
		}

		payload := map[string]any{"record_id": r.ID}
		for k, v := range r.Metadata {
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      pointID(r.ID),
			"vector":  r.Vector,
			"payload": payload,
		}
	}

	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", s.collection)
	return s.do(ctx, http.MethodPut, path, body, nil)
}

// Query returns up to k nearest records ordered by the collection's
// native score ordering.
func (s *QdrantIndex) Query(ctx context.Context, vector []float32, k int) ([]port.Match, error) {
	if s.dimension > 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: collection dimension %d, query has %d", domain.ErrDimensionMismatch, s.dimension, len(vector))
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", s.collection)
	if err := s.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	matches := make([]port.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		// Qdrant reports Euclid collections as raw distances (lower is
		// closer); negate so higher always means closer, matching the
		// local stores.
		if s.measure == DistanceEuclidean {
			r.Score = -r.Score
		}
		m := port.Match{Score: r.Score, Metadata: make(map[string]string, len(r.Payload))}
		for key, v := range r.Payload {
			str, ok := v.(string)
			if !ok {
				continue
			}
			if key == "record_id" {
				m.ID = str
			} else {
				m.Metadata[key] = str
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantIndex) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/count", s.collection)
	if err := s.do(ctx, http.MethodPost, path, map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// sleepBackoff waits 500ms, 1s, 2s, ... capped at 8s, honouring
// cancellation.
func sleepBackoff(ctx context.Context, attempt int) error {
	delay := qdrantBackoffBase << (attempt - 1)
	if delay > qdrantBackoffCap {
		delay = qdrantBackoffCap
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// pointID maps a record ID to a stable UUID, since Qdrant point IDs
// must be UUIDs or integers.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String()
}

// do performs one logical request with bounded exponential backoff on
// transient failures. Every endpoint this client touches is idempotent
// (create-if-absent, upsert-by-identifier, search, count), which is
// what makes the retry safe.
func (s *QdrantIndex) do(ctx context.Context, method, path string, body any, out any) error {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return err
			}
		}

		err := s.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrTransientCapacity) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: qdrant request failed after %d attempts: %v", domain.ErrTransientCapacity, s.maxRetries, lastErr)
}

func (s *QdrantIndex) doOnce(ctx context.Context, method, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", domain.ErrTransientCapacity, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", domain.ErrTransientCapacity, err)
	}

	if resp.StatusCode != http.StatusOK {
		return s.classify(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// classify translates Qdrant HTTP statuses into the error taxonomy,
// naming the collection so misconfiguration is actionable.
func (s *QdrantIndex) classify(status int, body []byte) error {
	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200]
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: collection %q (status %d): %s", domain.ErrNotFound, s.collection, status, preview)
	case status == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: collection %q (status %d): %s", domain.ErrIndexNotReady, s.collection, status, preview)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: qdrant returned status %d: %s", domain.ErrTransientCapacity, status, preview)
	case status == http.StatusBadRequest && bytes.Contains(body, []byte("dimension")):
		return fmt.Errorf("%w: collection %q: %s", domain.ErrDimensionMismatch, s.collection, preview)
	default:
		return fmt.Errorf("%w: qdrant returned status %d: %s", domain.ErrInvalidInput, status, preview)
	}
}
