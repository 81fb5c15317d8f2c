package config

// Preset describes the default models for a provider.
type Preset struct {
	Model          string
	EmbeddingModel string
	Dimensions     int
}

var providerPresets = map[ProviderType]Preset{
	ProviderGoogle: {Model: "gemini-2.0-flash", EmbeddingModel: "text-embedding-004", Dimensions: 768},
	ProviderOpenAI: {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small", Dimensions: 1536},
	ProviderOllama: {Model: "llama3", EmbeddingModel: "nomic-embed-text", Dimensions: 768},
	ProviderStatic: {EmbeddingModel: "static", Dimensions: 256},

	ProviderAnthropic:  {Model: "claude-3-5-haiku-latest"},
	ProviderOpenRouter: {Model: "openai/gpt-4o-mini"},
}

// DefaultExtensions are the document types picked up from the docs directory.
var DefaultExtensions = []string{".pdf", ".md", ".markdown", ".txt"}

// DefaultExcludes are glob patterns never indexed.
var DefaultExcludes = []string{
	".*",
	"~$*",
	"*.tmp",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	google := providerPresets[ProviderGoogle]
	return &Config{
		DocsDir:    "docs",
		StoreDir:   ".devflow/store",
		Extensions: append([]string(nil), DefaultExtensions...),
		Exclude:    append([]string(nil), DefaultExcludes...),
		Embedding: EmbeddingConfig{
			Provider:    ProviderGoogle,
			Model:       google.EmbeddingModel,
			Dimensions:  google.Dimensions,
			TimeoutSecs: 30,
			Concurrency: 4,
			CacheSize:   1000,
		},
		Rerank: RerankConfig{
			Provider:    RerankLexical,
			TimeoutSecs: 30,
		},
		LLM: LLMConfig{
			Provider:          ProviderGoogle,
			Model:             google.Model,
			TimeoutSecs:       60,
			RequestsPerMinute: 60,
		},
		Retrieval: RetrievalConfig{
			TopK:             3,
			QueryTimeoutSecs: 30,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// GetPreset returns the preset for the given provider, falling back to Google.
func GetPreset(provider ProviderType) Preset {
	if p, ok := providerPresets[provider]; ok {
		return p
	}
	return providerPresets[ProviderGoogle]
}

// applyDefaults fills every zero-valued field from DefaultConfig. Booleans keep
// whatever the sources set since their zero value is a valid choice.
func (c *Config) applyDefaults() {
	d := DefaultConfig()

	if c.DocsDir == "" {
		c.DocsDir = d.DocsDir
	}
	if c.StoreDir == "" {
		c.StoreDir = d.StoreDir
	}
	if len(c.Extensions) == 0 {
		c.Extensions = d.Extensions
	}
	if c.Exclude == nil {
		c.Exclude = d.Exclude
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = d.Embedding.Provider
	}
	preset := GetPreset(c.Embedding.Provider)
	if c.Embedding.Model == "" {
		c.Embedding.Model = preset.EmbeddingModel
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = preset.Dimensions
	}
	if c.Embedding.TimeoutSecs == 0 {
		c.Embedding.TimeoutSecs = d.Embedding.TimeoutSecs
	}
	if c.Embedding.Concurrency == 0 {
		c.Embedding.Concurrency = d.Embedding.Concurrency
	}
	if c.Embedding.CacheSize == 0 {
		c.Embedding.CacheSize = d.Embedding.CacheSize
	}

	if c.Rerank.Provider == "" {
		c.Rerank.Provider = d.Rerank.Provider
	}
	if c.Rerank.TimeoutSecs == 0 {
		c.Rerank.TimeoutSecs = d.Rerank.TimeoutSecs
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = d.LLM.Provider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = GetPreset(c.LLM.Provider).Model
	}
	if c.LLM.TimeoutSecs == 0 {
		c.LLM.TimeoutSecs = d.LLM.TimeoutSecs
	}
	if c.LLM.RequestsPerMinute == 0 {
		c.LLM.RequestsPerMinute = d.LLM.RequestsPerMinute
	}

	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = d.Retrieval.TopK
	}
	if c.Retrieval.QueryTimeoutSecs == 0 {
		c.Retrieval.QueryTimeoutSecs = d.Retrieval.QueryTimeoutSecs
	}

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}
