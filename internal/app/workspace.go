package app

import (
	"go.uber.org/zap"

	"gopherai-docqa/internal/metrics"
	"gopherai-docqa/internal/rag"
	"gopherai-docqa/internal/router"
	"gopherai-docqa/internal/tabular"
)

type WorkspaceConfig struct {
	Pipeline rag.PipelineConfig
	TopK     int
}

// Workspace owns the process-wide knowledge: the vector index, the table registry and the
// lazily built embedder. The embedder survives Reset.
type Workspace struct {
	Index     *rag.Index
	Tables    *tabular.Engine
	Embedder  *rag.EmbedderProvider
	Pipeline  *rag.Pipeline
	Retriever *rag.Retriever
	logger    *zap.Logger
}

type WorkspaceStatus struct {
	RAGInitialized bool              `json:"rag_initialized"`
	Vectors        int               `json:"vectors"`
	Dimension      int               `json:"dimension"`
	EmbedderLoaded bool              `json:"embedder_loaded"`
	TablesLoaded   []string          `json:"tables_loaded"`
	Tables         []tabular.Summary `json:"tables"`
}

func NewWorkspace(cfg WorkspaceConfig, embedder *rag.EmbedderProvider, tables *tabular.Engine, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	index := rag.NewIndex()
	return &Workspace{
		Index:     index,
		Tables:    tables,
		Embedder:  embedder,
		Pipeline:  rag.NewPipeline(cfg.Pipeline, embedder, index, logger),
		Retriever: rag.NewRetriever(index, embedder, cfg.TopK),
		logger:    logger,
	}
}

func (w *Workspace) Availability() router.Availability {
	return router.Availability{Tables: w.Tables.Len() > 0, Index: w.Index.Len() > 0}
}

func (w *Workspace) Status() WorkspaceStatus {
	vectors := w.Index.Len()
	return WorkspaceStatus{
		RAGInitialized: vectors > 0,
		Vectors:        vectors,
		Dimension:      w.Index.Dimension(),
		EmbedderLoaded: w.Embedder.Loaded(),
		TablesLoaded:   w.Tables.Names(),
		Tables:         w.Tables.Summaries(),
	}
}

// Reset drops every indexed chunk and loaded table.
func (w *Workspace) Reset() {
	w.Index.Reset()
	w.Tables.Reset()
	metrics.IndexVectors.Set(0)
	w.logger.Info("workspace reset")
}
