package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to devflow! Let's configure your document index.")
	fmt.Println()

	cfg := DefaultConfig()

	docsPrompt := promptui.Prompt{
		Label:   "Directory containing your documents",
		Default: cfg.DocsDir,
	}
	docsDir, err := docsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("docs dir: %w", err)
	}
	cfg.DocsDir = docsDir

	providers := []string{string(ProviderGoogle), string(ProviderOpenAI), string(ProviderOllama)}

	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: append(providers, string(ProviderStatic)),
	}
	_, embedStr, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider selection: %w", err)
	}
	cfg.Embedding.Provider = ProviderType(embedStr)
	preset := GetPreset(cfg.Embedding.Provider)
	cfg.Embedding.Model = preset.EmbeddingModel
	cfg.Embedding.Dimensions = preset.Dimensions

	llmPrompt := promptui.Select{
		Label: "Select answer provider",
		Items: append(providers, string(ProviderAnthropic), string(ProviderOpenRouter)),
	}
	_, llmStr, err := llmPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("llm provider selection: %w", err)
	}
	cfg.LLM.Provider = ProviderType(llmStr)
	cfg.LLM.Model = GetPreset(cfg.LLM.Provider).Model

	rerankPrompt := promptui.Select{
		Label: "Select reranker",
		Items: []string{
			"lexical - token overlap, no extra service",
			"http    - cross-encoder service exposing /rerank",
			"none    - keep vector order",
		},
	}
	rerankIdx, _, err := rerankPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("reranker selection: %w", err)
	}
	cfg.Rerank.Provider = []RerankProvider{RerankLexical, RerankHTTP, RerankNone}[rerankIdx]

	if cfg.Rerank.Provider == RerankHTTP {
		endpointPrompt := promptui.Prompt{
			Label:   "Reranker endpoint",
			Default: "http://localhost:9659",
		}
		endpoint, err := endpointPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("reranker endpoint: %w", err)
		}
		cfg.Rerank.Endpoint = endpoint
	}

	topKPrompt := promptui.Prompt{
		Label:   "Chunks to retrieve per question",
		Default: strconv.Itoa(cfg.Retrieval.TopK),
		Validate: func(s string) error {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n < 1 {
				return fmt.Errorf("enter a positive number")
			}
			return nil
		},
	}
	topKStr, err := topKPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("top k: %w", err)
	}
	cfg.Retrieval.TopK, _ = strconv.Atoi(strings.TrimSpace(topKStr))

	for _, p := range []ProviderType{cfg.Embedding.Provider, cfg.LLM.Provider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: set %s in your environment or .env before running devflow sync.\n", envVar)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("\nConfiguration saved to %s\n", path)

	return cfg, nil
}
