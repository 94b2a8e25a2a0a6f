package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gopherai-docqa/internal/metrics"
)

const (
	defaultEmbedBatchSize   = 16
	defaultEmbedConcurrency = 4
)

// PipelineConfig zero values select defaults, except ChunkOverlap where zero means no
// overlap and a negative value selects DefaultChunkOverlap.
type PipelineConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	MaxTableRows     int
	EmbedBatchSize   int
	EmbedConcurrency int
}

type SkippedDocument struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

type IngestReport struct {
	BatchID   string            `json:"batch_id"`
	Documents int               `json:"documents"`
	Chunks    int               `json:"chunks"`
	Sources   []string          `json:"sources"`
	Skipped   []SkippedDocument `json:"skipped,omitempty"`
}

// Pipeline runs documents through table chunking, splitting and embedding into an Index.
type Pipeline struct {
	chunker     *TableChunker
	splitter    *Splitter
	embedder    *EmbedderProvider
	index       *Index
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

func NewPipeline(cfg PipelineConfig, embedder *EmbedderProvider, index *Index, logger *zap.Logger) *Pipeline {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = defaultEmbedBatchSize
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = defaultEmbedConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		chunker:     NewTableChunker(cfg.MaxTableRows),
		splitter:    NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder:    embedder,
		index:       index,
		batchSize:   cfg.EmbedBatchSize,
		concurrency: cfg.EmbedConcurrency,
		logger:      logger,
	}
}

// Chunk applies table chunking and splitting without embedding.
func (p *Pipeline) Chunk(docs []Document) []Chunk {
	return p.splitter.SplitDocuments(p.chunker.ProcessAll(docs))
}

// Ingest embeds and indexes docs. Empty documents are skipped and reported; the index only
// sees the batch after every chunk has been embedded.
func (p *Pipeline) Ingest(ctx context.Context, docs []Document) (*IngestReport, error) {
	report := &IngestReport{BatchID: uuid.NewString()}
	log := p.logger.With(zap.String("batch_id", report.BatchID))

	var chunks []Chunk
	seen := make(map[string]struct{})
	for _, doc := range docs {
		source := doc.Metadata.SourceName()
		if strings.TrimSpace(doc.Content) == "" {
			report.Skipped = append(report.Skipped, SkippedDocument{Source: source, Reason: "empty document"})
			metrics.SkippedDocumentsTotal.Inc()
			log.Warn("skip empty document", zap.String("source", source))
			continue
		}
		docChunks := p.Chunk([]Document{doc})
		if len(docChunks) == 0 {
			report.Skipped = append(report.Skipped, SkippedDocument{Source: source, Reason: "no chunks produced"})
			metrics.SkippedDocumentsTotal.Inc()
			log.Warn("skip document without chunks", zap.String("source", source))
			continue
		}
		report.Documents++
		if _, ok := seen[source]; !ok {
			seen[source] = struct{}{}
			report.Sources = append(report.Sources, source)
		}
		chunks = append(chunks, docChunks...)
	}
	if len(chunks) == 0 {
		return report, ErrNoChunks
	}
	for i := range chunks {
		chunks[i].ID = uuid.NewString()
	}

	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return report, err
	}

	records := make([]VectorRecord, len(chunks))
	for i := range chunks {
		records[i] = VectorRecord{Embedding: vectors[i], Chunk: chunks[i]}
	}
	n, err := p.index.Insert(records)
	if err != nil {
		return report, fmt.Errorf("insert vectors failed: %w", err)
	}
	report.Chunks = n

	metrics.IngestedChunksTotal.Add(float64(n))
	metrics.IndexVectors.Set(float64(p.index.Len()))
	log.Info("documents indexed",
		zap.Int("documents", report.Documents),
		zap.Int("chunks", n),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

func (p *Pipeline) embedChunks(ctx context.Context, chunks []Chunk) ([][]float32, error) {
	embedder, err := p.embedder.Get(ctx)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Text)
			}
			batch, err := embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d failed: %w", start, end, err)
			}
			if len(batch) != len(texts) {
				return fmt.Errorf("got %d vectors for %d chunks: %w", len(batch), len(texts), ErrEmbeddingCountMismatch)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
