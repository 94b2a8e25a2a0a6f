package bootstrap

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/cache"
	"gopherai-docqa/internal/compose"
	"gopherai-docqa/internal/config"
	"gopherai-docqa/internal/rag"
	"gopherai-docqa/internal/router"
	"gopherai-docqa/internal/tabular"
	"gopherai-docqa/internal/vision"
)

// Core is the in-process question answering stack. It needs no database, cache or broker, so
// the CLI and the MCP server run on it directly.
type Core struct {
	Config    *config.Config
	Logger    *zap.Logger
	Completer ai.Completer
	Workspace *app.Workspace
	QA        *app.QAService
	Captioner *vision.Captioner
}

// NewCore builds the core. A missing LLM key is not fatal: every completion then fails with
// ai.ErrMissingAPIKey. store may be nil, which disables the embedding cache.
func NewCore(cfg *config.Config, logger *zap.Logger, store cache.Store) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewCoreWithClients(cfg, logger, newCompleter(cfg, logger), embedderFactory(cfg, store, logger))
}

// NewCoreWithClients builds the core around the given completer and embedder factory.
func NewCoreWithClients(cfg *config.Config, logger *zap.Logger, completer ai.Completer, embed rag.EmbedderFactory) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := rag.NewEmbedderProvider(embed, logger)
	analyst := tabular.NewAnalyst(completer, cfg.Tabular.MaxIterations, cfg.Tabular.MaxResultRows, logger)
	engine := tabular.NewEngine(analyst, cfg.Tabular.Keywords, logger)

	workspace := app.NewWorkspace(app.WorkspaceConfig{
		Pipeline: rag.PipelineConfig{
			ChunkSize:        cfg.RAG.ChunkSize,
			ChunkOverlap:     cfg.RAG.ChunkOverlap,
			MaxTableRows:     cfg.RAG.MaxTableRows,
			EmbedBatchSize:   cfg.Embedding.BatchSize,
			EmbedConcurrency: cfg.Embedding.Concurrency,
		},
		TopK: cfg.RAG.TopK,
	}, provider, engine, logger)

	var strategy router.Strategy = router.NewKeywordStrategy(engine)
	if router.ParseMode(cfg.Router.Mode) == router.StrategyAgentic {
		strategy = router.NewAgenticStrategy(router.NewLLMArbitrator(completer), strategy, logger)
	}
	composer := compose.New(completer, compose.Options{
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		HistoryTurns: cfg.RAG.HistoryTurns,
	}, logger)

	core := &Core{
		Config:    cfg,
		Logger:    logger,
		Completer: completer,
		Workspace: workspace,
		QA:        app.NewQAService(workspace, router.New(strategy, logger), composer, cfg.Tabular.IndexDocumentTables, logger),
	}
	if cfg.Vision.Enabled {
		core.Captioner = vision.NewCaptioner(vision.Config{
			ModelPath:  cfg.Vision.ModelPath,
			LabelsPath: cfg.Vision.LabelsPath,
			LibPath:    cfg.Vision.ONNXSharedLibPath,
			TopK:       cfg.Vision.TopK,
		})
	}
	return core
}

// Describer returns the image describer, or nil when vision is disabled.
func (c *Core) Describer() app.ImageDescriber {
	if c.Captioner == nil {
		return nil
	}
	return c.Captioner
}

func (c *Core) Close() error {
	if c.Captioner != nil {
		return c.Captioner.Close()
	}
	return nil
}

func newCompleter(cfg *config.Config, logger *zap.Logger) ai.Completer {
	client, err := ai.NewClient(ai.ChatConfig{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		MaxRetries:     cfg.LLM.MaxRetries,
		RequestsPerSec: cfg.LLM.RequestsPerSec,
		Logger:         logger,
	})
	if err != nil {
		if errors.Is(err, ai.ErrMissingAPIKey) {
			logger.Warn("llm api key not set; answers will fail until it is configured")
		} else {
			logger.Error("build llm client failed", zap.Error(err))
		}
		return ai.Unconfigured{Err: err}
	}
	return client
}

func embedderFactory(cfg *config.Config, store cache.Store, logger *zap.Logger) rag.EmbedderFactory {
	return func(context.Context) (rag.Embedder, error) {
		embedder, err := ai.NewEmbedder(ai.EmbeddingConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		if store == nil || !cfg.Embedding.CacheEnabled {
			return embedder, nil
		}
		ttl := time.Duration(cfg.Embedding.CacheTTLHour) * time.Hour
		return cache.NewCachedEmbedder(embedder, store, cfg.Embedding.Model, ttl, logger), nil
	}
}
