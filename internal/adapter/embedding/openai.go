// Package embedding provides embedding clients for OpenAI-compatible
// providers, plus a deterministic mock for tests.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"docrag/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-small"
	DefaultBatchSize  = 100
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 4

	backoffBase = 500 * time.Millisecond
	backoffCap  = 8 * time.Second
)

// Dimensions of known embedding models, used when the config does not
// override them.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

// Config holds construction-time settings for the OpenAI embedder.
// Nothing is read from ambient state; the API key is resolved by the
// caller.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Dimension      int
	BatchSize      int
	MaxTextLen     int // provider per-item payload limit in bytes (0 = unchecked)
	Timeout        time.Duration
	MaxRetries     int
	RequestsPerSec float64 // proactive throttle (0 = unlimited)
}

// OpenAIEmbedder generates embeddings through an OpenAI-compatible
// /embeddings endpoint. It is stateless across invocations: every call
// stands alone apart from the shared rate limiter.
type OpenAIEmbedder struct {
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	batchSize  int
	maxTextLen int
	maxRetries int
	client     *http.Client
	limiter    *rate.Limiter
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAI creates an embedder for an OpenAI-compatible provider.
func NewOpenAI(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: embedding API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension == 0 {
		if dim, ok := modelDimensions[cfg.Model]; ok {
			cfg.Dimension = dim
		} else {
			return nil, fmt.Errorf("%w: unknown model %q, dimension must be configured", domain.ErrInvalidInput, cfg.Model)
		}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}

	return &OpenAIEmbedder{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		batchSize:  cfg.BatchSize,
		maxTextLen: cfg.MaxTextLen,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// Embed generates embeddings positionally aligned with texts. Inputs
// are grouped into sequential batches of at most the configured batch
// size; batch order is preserved in the output. Texts over the provider
// payload limit are rejected up front with one ItemError per offending
// index, before any provider call is made.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if e.maxTextLen > 0 {
		var itemErrs []error
		for i, t := range texts {
			if len(t) > e.maxTextLen {
				itemErrs = append(itemErrs, &domain.ItemError{
					Index: i,
					Err:   fmt.Errorf("%w: text of %d bytes exceeds provider limit of %d", domain.ErrInvalidInput, len(t), e.maxTextLen),
				})
			}
		}
		if len(itemErrs) > 0 {
			return nil, errors.Join(itemErrs...)
		}
	}

	result := make([][]float32, len(texts))
	for offset := 0; offset < len(texts); offset += e.batchSize {
		end := offset + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.embedBatch(ctx, texts[offset:end])
		if err != nil {
			return nil, err
		}
		copy(result[offset:end], vectors)
	}

	return result, nil
}

// embedBatch performs one provider call with bounded exponential
// backoff on transient failures. Embedding the same batch twice is
// harmless, which is what makes the retry safe.
func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := e.doRequest(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: embedding failed after %d attempts: %v", domain.ErrTransientCapacity, e.maxRetries, lastErr)
}

func (e *OpenAIEmbedder) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Connection failures and client timeouts are transient.
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientCapacity, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrTransientCapacity, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("provider error: %s", embResp.Error.Message)
	}

	vectors := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("provider returned out-of-range index %d", data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("provider returned no embedding for input %d", i)
		}
		if len(v) != e.dimension {
			return nil, fmt.Errorf("%w: model returned %d dimensions, configured %d", domain.ErrDimensionMismatch, len(v), e.dimension)
		}
	}

	return vectors, nil
}

// classifyStatus translates provider HTTP statuses into the error
// taxonomy.
func classifyStatus(status int, body []byte) error {
	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200]
	}

	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: provider returned status %d: %s", domain.ErrTransientCapacity, status, preview)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: provider returned status %d: %s", domain.ErrNotFound, status, preview)
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: provider returned status %d: %s", domain.ErrInvalidInput, status, preview)
	default:
		return fmt.Errorf("provider returned status %d: %s", status, preview)
	}
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrTransientCapacity)
}

// sleepBackoff waits 500ms, 1s, 2s, ... capped at 8s, honouring
// cancellation.
func sleepBackoff(ctx context.Context, attempt int) error {
	delay := backoffBase << (attempt - 1)
	if delay > backoffCap {
		delay = backoffCap
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// Dimension returns the embedding vector dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the name of the embedding model.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
