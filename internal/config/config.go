package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = ".devflow.yml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DEVFLOW_"

// ErrConfig marks configuration problems that must abort startup.
var ErrConfig = errors.New("invalid configuration")

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DEVFLOW_*). Nested keys use a double
// underscore: DEVFLOW_EMBEDDING__MODEL -> embedding.model.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderGoogle:     true,
	ProviderOpenAI:     true,
	ProviderOllama:     true,
	ProviderAnthropic:  true,
	ProviderOpenRouter: true,
}

var validEmbeddingProviders = map[ProviderType]bool{
	ProviderGoogle: true,
	ProviderOpenAI: true,
	ProviderOllama: true,
	ProviderStatic: true,
}

var validRerankers = map[RerankProvider]bool{
	RerankHTTP:    true,
	RerankLexical: true,
	RerankNone:    true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DocsDir == "" {
		return fmt.Errorf("%w: docs_dir is required", ErrConfig)
	}
	if c.StoreDir == "" {
		return fmt.Errorf("%w: store_dir is required", ErrConfig)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("%w: at least one document extension is required", ErrConfig)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: extension %q must start with a dot", ErrConfig, ext)
		}
	}
	if !validEmbeddingProviders[c.Embedding.Provider] {
		return fmt.Errorf("%w: invalid embedding.provider %q: must be one of google, openai, ollama, static", ErrConfig, c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("%w: embedding.model is required", ErrConfig)
	}
	if c.Embedding.TimeoutSecs < 0 || c.Rerank.TimeoutSecs < 0 || c.LLM.TimeoutSecs < 0 || c.Retrieval.QueryTimeoutSecs < 0 {
		return fmt.Errorf("%w: timeouts must be non-negative", ErrConfig)
	}
	if c.Embedding.Concurrency < 1 {
		return fmt.Errorf("%w: embedding.concurrency must be at least 1", ErrConfig)
	}
	if !validRerankers[c.Rerank.Provider] {
		return fmt.Errorf("%w: invalid rerank.provider %q: must be one of http, lexical, none", ErrConfig, c.Rerank.Provider)
	}
	if c.Rerank.Provider == RerankHTTP && c.Rerank.Endpoint == "" {
		return fmt.Errorf("%w: rerank.endpoint is required for the http reranker", ErrConfig)
	}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("%w: invalid llm.provider %q: must be one of google, openai, ollama, anthropic, openrouter", ErrConfig, c.LLM.Provider)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: llm.requests_per_minute must be non-negative", ErrConfig)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("%w: retrieval.top_k must be at least 1", ErrConfig)
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderGoogle:
		return "GEMINI_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// APIKey looks up the API key for the provider. A missing key for a provider
// that needs one is a configuration error.
func APIKey(provider ProviderType) (string, error) {
	name := APIKeyEnvVar(provider)
	if name == "" {
		return "", nil
	}
	key := os.Getenv(name)
	if key == "" {
		return "", fmt.Errorf("%w: %s environment variable is required for provider %s", ErrConfig, name, provider)
	}
	return key, nil
}
