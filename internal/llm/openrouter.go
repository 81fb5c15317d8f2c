package llm

import openai "github.com/sashabaranov/go-openai"

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider routes chat completions through OpenRouter, which speaks
// the OpenAI wire format.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates a new OpenRouter provider. Models use
// OpenRouter's "vendor/model" names.
func NewOpenRouterProvider(apiKey, model, baseURL string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenRouterProvider{&OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}}
}

func (p *OpenRouterProvider) Name() string {
	return "openrouter"
}
