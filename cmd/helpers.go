package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ziadkadry99/devflow/internal/assistant"
	"github.com/ziadkadry99/devflow/internal/config"
	"github.com/ziadkadry99/devflow/internal/embeddings"
	"github.com/ziadkadry99/devflow/internal/extract"
	"github.com/ziadkadry99/devflow/internal/history"
	"github.com/ziadkadry99/devflow/internal/indexer"
	"github.com/ziadkadry99/devflow/internal/llm"
	"github.com/ziadkadry99/devflow/internal/logging"
	"github.com/ziadkadry99/devflow/internal/rerank"
	"github.com/ziadkadry99/devflow/internal/retriever"
	"github.com/ziadkadry99/devflow/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `devflow init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger installs the configured logger as the slog default.
func setupLogger(cfg *config.Config, out io.Writer) (*slog.Logger, func(), error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, cleanup, err := logging.Setup(logging.Config{
		Level:    level,
		Format:   cfg.Log.Format,
		FilePath: cfg.Log.File,
		Output:   out,
	})
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

// createEmbedderFromConfig builds the configured embedder behind an LRU
// cache and a per-call timeout.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	ec := cfg.Embedding
	apiKey, err := config.APIKey(ec.Provider)
	if err != nil {
		return nil, err
	}

	var inner embeddings.Embedder
	switch ec.Provider {
	case config.ProviderOpenAI:
		inner = embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(ec.Model), ec.Dimensions, ec.BaseURL)
	case config.ProviderGoogle:
		inner = embeddings.NewGoogleEmbedder(apiKey, ec.Model, ec.Dimensions, ec.BaseURL)
	case config.ProviderOllama:
		inner = embeddings.NewOllamaEmbedder(ec.Model, ec.Dimensions, ec.BaseURL)
	case config.ProviderStatic:
		inner = embeddings.NewStaticEmbedder(ec.Dimensions)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", config.ErrConfig, ec.Provider)
	}

	return embeddings.NewGuard(embeddings.NewCached(inner, ec.CacheSize), ec.Timeout()), nil
}

// createLLMProviderFromConfig creates the text-generation provider.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	apiKey, err := config.APIKey(cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	return llm.NewProvider(cfg.LLM, apiKey)
}

// app holds everything a command needs to talk to the index.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *vectordb.ChromemStore
	sync   *indexer.Synchronizer
	svc    *assistant.Service
	close  func()
}

type appOptions struct {
	// requireLLM fails startup when no answer provider can be built.
	// Otherwise the service runs without answers and ask returns 503.
	requireLLM bool
	// logOutput overrides stderr for logs.
	logOutput io.Writer
}

// openApp loads configuration and wires the store, synchronizer, retriever
// and answerer into an assistant service.
func openApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, cleanupLog, err := setupLogger(cfg, opts.logOutput)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		cleanupLog()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	reranker, err := rerank.New(cfg.Rerank, logger)
	if err != nil {
		cleanupLog()
		return nil, fmt.Errorf("creating reranker: %w", err)
	}

	store, err := vectordb.Open(ctx, cfg.StoreDir, logger)
	if err != nil {
		cleanupLog()
		return nil, fmt.Errorf("opening store at %s: %w", cfg.StoreDir, err)
	}

	synchronizer := indexer.New(store, embedder, extract.DefaultRegistry(), indexer.Options{
		Dir:         cfg.DocsDir,
		Extensions:  cfg.Extensions,
		Exclude:     cfg.Exclude,
		Concurrency: cfg.Embedding.Concurrency,
		LockDir:     cfg.StoreDir,
	}, logger)

	ret := retriever.New(store, embedder, reranker, retriever.Options{
		TopK:    cfg.Retrieval.TopK,
		Timeout: cfg.Retrieval.QueryTimeout(),
	}, logger)

	var answerer *llm.Answerer
	provider, err := createLLMProviderFromConfig(cfg)
	switch {
	case err == nil:
		answerer = llm.NewAnswerer(provider, cfg.LLM.Timeout(), logger)
		if cfg.LLM.CondenseQueries {
			ret.SetCondenser(llm.NewCondenser(provider, cfg.LLM.Timeout(), logger))
		}
	case opts.requireLLM:
		store.Close()
		cleanupLog()
		return nil, fmt.Errorf("creating answer provider: %w", err)
	default:
		logger.Warn("answers_disabled", slog.String("error", err.Error()))
	}

	svc := assistant.New(assistant.Options{
		Retriever:    ret,
		Answerer:     answerer,
		History:      history.NewStore(store.DB()),
		Synchronizer: synchronizer,
		Logger:       logger,
	})

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		sync:   synchronizer,
		svc:    svc,
		close: func() {
			if err := store.Close(); err != nil {
				logger.Warn("store_close_failed", slog.String("error", err.Error()))
			}
			cleanupLog()
		},
	}, nil
}
