package llm

import (
	"fmt"

	"github.com/ziadkadry99/devflow/internal/config"
)

// NewProvider creates the provider selected by cfg, rate limited to
// cfg.RequestsPerMinute. apiKey comes from config.APIKey and is ignored by
// providers that need none.
func NewProvider(cfg config.LLMConfig, apiKey string) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case config.ProviderOpenAI:
		p = NewOpenAIProvider(apiKey, cfg.Model, cfg.BaseURL)
	case config.ProviderGoogle:
		p = NewGoogleProvider(apiKey, cfg.Model, cfg.BaseURL)
	case config.ProviderOllama:
		p = NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case config.ProviderAnthropic:
		p = NewAnthropicProvider(apiKey, cfg.Model, cfg.BaseURL)
	case config.ProviderOpenRouter:
		p = NewOpenRouterProvider(apiKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider %q", config.ErrConfig, cfg.Provider)
	}
	return NewRateLimitedProvider(p, cfg.RequestsPerMinute), nil
}
