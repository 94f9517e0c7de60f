// Package llm provides generative model clients for OpenAI-compatible
// providers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// Config holds construction-time settings for the OpenAI client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIClient generates text through an OpenAI-compatible
// /chat/completions endpoint. Generation is not idempotent, so the
// client never retries: a timeout or transient failure is classified
// and surfaced to the caller.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAI creates a generative client for an OpenAI-compatible
// provider.
func NewOpenAI(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: generation API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &OpenAIClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Generate produces a completion for the prompt.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts port.GenerateOptions) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", domain.ErrTransientCapacity, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", domain.ErrTransientCapacity, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.classify(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("provider error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) classify(status int, body []byte) error {
	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200]
	}

	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: provider returned status %d: %s", domain.ErrTransientCapacity, status, preview)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: model %q (status %d): %s", domain.ErrNotFound, c.model, status, preview)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: provider returned status %d: %s", domain.ErrInvalidInput, status, preview)
	default:
		return fmt.Errorf("provider returned status %d: %s", status, preview)
	}
}

// ModelName returns the name of the model.
func (c *OpenAIClient) ModelName() string {
	return c.model
}
