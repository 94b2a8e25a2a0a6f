package rag

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Embedder turns texts into fixed-dimension vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type EmbedderFactory func(ctx context.Context) (Embedder, error)

// EmbedderProvider lazily builds one shared Embedder. Callers arriving while the shared
// instance is still being built get a private instance instead of waiting.
type EmbedderProvider struct {
	factory EmbedderFactory
	logger  *zap.Logger

	mu      sync.Mutex
	shared  Embedder
	loading bool
}

func NewEmbedderProvider(factory EmbedderFactory, logger *zap.Logger) *EmbedderProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbedderProvider{factory: factory, logger: logger}
}

func (p *EmbedderProvider) Get(ctx context.Context) (Embedder, error) {
	p.mu.Lock()
	if p.shared != nil {
		e := p.shared
		p.mu.Unlock()
		return e, nil
	}
	if p.loading {
		p.mu.Unlock()
		p.logger.Debug("embedder still loading, building private instance")
		return p.build(ctx)
	}
	p.loading = true
	p.mu.Unlock()

	e, err := p.build(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	if err != nil {
		return nil, err
	}
	p.shared = e
	p.logger.Info("embedder loaded")
	return e, nil
}

func (p *EmbedderProvider) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shared != nil
}

func (p *EmbedderProvider) build(ctx context.Context) (Embedder, error) {
	if p.factory == nil {
		return nil, fmt.Errorf("no embedder factory configured: %w", ErrEmbeddingUnavailable)
	}
	e, err := p.factory(ctx)
	if err != nil {
		p.logger.Error("build embedder failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if e == nil {
		return nil, fmt.Errorf("embedder factory returned nil: %w", ErrEmbeddingUnavailable)
	}
	return e, nil
}

// StaticEmbedder wraps an already-built Embedder as a factory.
func StaticEmbedder(e Embedder) EmbedderFactory {
	return func(context.Context) (Embedder, error) {
		return e, nil
	}
}
