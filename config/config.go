package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the RAG pipelines. Everything is
// explicit: adapters receive their settings at construction and never
// read ambient state.
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Index      IndexConfig      `yaml:"index"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SourceConfig configures the document source.
type SourceConfig struct {
	Root     string   `yaml:"root"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// ChunkerConfig configures how documents are split into chunks.
// Sizes and overlap are measured in bytes of UTF-8 text.
type ChunkerConfig struct {
	MaxChunkSize int    `yaml:"max_chunk_size"`
	Overlap      int    `yaml:"overlap"`
	Boundary     string `yaml:"boundary"` // "sentence", "paragraph" or "hard"
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	Provider       string  `yaml:"provider"` // "openai" or "mock"
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Dimension      int     `yaml:"dimension"`
	BatchSize      int     `yaml:"batch_size"`
	MaxTextLen     int     `yaml:"max_text_len"` // provider per-item payload limit, bytes
	TimeoutSecs    int     `yaml:"timeout_secs"`
	MaxRetries     int     `yaml:"max_retries"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	Workers        int     `yaml:"workers"` // concurrent batches per document
}

// IndexConfig selects and configures the vector index.
type IndexConfig struct {
	Provider string        `yaml:"provider"` // "bolt", "qdrant" or "memory"
	Path     string        `yaml:"path"`     // bolt database path
	Distance string        `yaml:"distance"` // "cosine", "dot" or "euclidean"
	Qdrant   *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// RetrieveConfig configures the retrieval pipeline.
type RetrieveConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"` // drop results below this score (0 = disabled)

	// CacheSize enables an in-process LRU cache of retrieval results
	// (0 = disabled). Cached entries expire after CacheTTLSecs.
	CacheSize    int `yaml:"cache_size"`
	CacheTTLSecs int `yaml:"cache_ttl_secs"`
}

// PromptConfig configures prompt composition.
type PromptConfig struct {
	ContextBudget int `yaml:"context_budget"` // total included-passage bytes
}

// GenerationConfig configures the generative model client.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // "openai"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`

	// FallbackUngrounded answers from the model's general knowledge when
	// no context scores above min_score. Such answers carry no citations
	// and are reported as ungrounded, never as grounded answers.
	FallbackUngrounded bool `yaml:"fallback_ungrounded"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Includes: []string{"**/*.txt", "**/*.md"},
			Excludes: []string{"**/.git/**", "**/node_modules/**"},
		},
		Chunker: ChunkerConfig{
			MaxChunkSize: 1200,
			Overlap:      120,
			Boundary:     "sentence",
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			BaseURL:        "https://api.openai.com/v1",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      1536,
			BatchSize:      100,
			MaxTextLen:     32000,
			TimeoutSecs:    60,
			MaxRetries:     4,
			RequestsPerSec: 2,
			Workers:        4,
		},
		Index: IndexConfig{
			Provider: "bolt",
			Path:     ".docrag/index.db",
			Distance: "cosine",
		},
		Retrieve: RetrieveConfig{
			TopK:         5,
			MinScore:     0,
			CacheSize:    100,
			CacheTTLSecs: 300,
		},
		Prompt: PromptConfig{
			ContextBudget: 6000,
		},
		Generation: GenerationConfig{
			Provider:           "openai",
			Model:              "gpt-4o-mini",
			BaseURL:            "https://api.openai.com/v1",
			APIKeyEnv:          "OPENAI_API_KEY",
			MaxTokens:          1024,
			Temperature:        0.2,
			TimeoutSecs:        120,
			FallbackUngrounded: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, layered over defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for
// docrag.yaml, then .docrag/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the bolt index database under dir.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".docrag", "index.db")
}

// EnsureDataDir ensures the .docrag directory exists under dir.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".docrag"), 0755)
}
