package config

import "time"

// ProviderType identifies an embedding or text-generation backend.
type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	// ProviderAnthropic and ProviderOpenRouter generate text only.
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenRouter ProviderType = "openrouter"
	// ProviderStatic is an offline hashing embedder; embeddings only.
	ProviderStatic ProviderType = "static"
)

// RerankProvider selects how retrieval candidates are rescored.
type RerankProvider string

const (
	// RerankHTTP calls a cross-encoder service exposing POST /rerank.
	RerankHTTP RerankProvider = "http"
	// RerankLexical scores candidates by token overlap with the query.
	RerankLexical RerankProvider = "lexical"
	// RerankNone keeps the vector recall order.
	RerankNone RerankProvider = "none"
)

// Config is the top-level devflow configuration, corresponding to .devflow.yml.
type Config struct {
	DocsDir    string          `yaml:"docs_dir" koanf:"docs_dir"`
	StoreDir   string          `yaml:"store_dir" koanf:"store_dir"`
	Extensions []string        `yaml:"extensions" koanf:"extensions"`
	Exclude    []string        `yaml:"exclude" koanf:"exclude"`
	Embedding  EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Rerank     RerankConfig    `yaml:"rerank" koanf:"rerank"`
	LLM        LLMConfig       `yaml:"llm" koanf:"llm"`
	Retrieval  RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Server     ServerConfig    `yaml:"server" koanf:"server"`
	Log        LogConfig       `yaml:"log" koanf:"log"`
}

// EmbeddingConfig configures the embedding service client.
type EmbeddingConfig struct {
	Provider    ProviderType `yaml:"provider" koanf:"provider"`
	Model       string       `yaml:"model" koanf:"model"`
	BaseURL     string       `yaml:"base_url,omitempty" koanf:"base_url"`
	Dimensions  int          `yaml:"dimensions" koanf:"dimensions"`
	TimeoutSecs int          `yaml:"timeout_secs" koanf:"timeout_secs"`
	Concurrency int          `yaml:"concurrency" koanf:"concurrency"`
	CacheSize   int          `yaml:"cache_size" koanf:"cache_size"`
}

// Timeout returns the per-call embedding timeout.
func (c EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RerankConfig configures the second retrieval stage.
type RerankConfig struct {
	Provider    RerankProvider `yaml:"provider" koanf:"provider"`
	Endpoint    string         `yaml:"endpoint,omitempty" koanf:"endpoint"`
	Model       string         `yaml:"model,omitempty" koanf:"model"`
	TimeoutSecs int            `yaml:"timeout_secs" koanf:"timeout_secs"`
}

// Timeout returns the rerank request timeout.
func (c RerankConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// LLMConfig configures the text-generation collaborator.
type LLMConfig struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	BaseURL           string       `yaml:"base_url,omitempty" koanf:"base_url"`
	TimeoutSecs       int          `yaml:"timeout_secs" koanf:"timeout_secs"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	CondenseQueries   bool         `yaml:"condense_queries" koanf:"condense_queries"`
}

// Timeout returns the generation request timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	TopK             int `yaml:"top_k" koanf:"top_k"`
	QueryTimeoutSecs int `yaml:"query_timeout_secs" koanf:"query_timeout_secs"`
}

// QueryTimeout returns the timeout applied to each retrieval stage.
func (c RetrievalConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSecs) * time.Second
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr            string `yaml:"addr" koanf:"addr"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
	File   string `yaml:"file,omitempty" koanf:"file"`
}
