package rag

import (
	"context"
	"fmt"
	"strings"
)

const (
	DefaultTopK = 5

	contextDelimiter = "\n\n---\n\n"
)

type Retrieval struct {
	Context string   `json:"context"`
	Sources []string `json:"sources"`
	Hits    []Hit    `json:"hits,omitempty"`
}

// Empty reports the "no knowledge available" state.
func (r Retrieval) Empty() bool {
	return r.Context == "" && len(r.Sources) == 0
}

type Retriever struct {
	index    *Index
	embedder *EmbedderProvider
	topK     int
}

func NewRetriever(index *Index, embedder *EmbedderProvider, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{index: index, embedder: embedder, topK: topK}
}

// Retrieve embeds query with the ingestion embedder and formats the top-k chunks as
// "Source: <name>\n<text>" blocks. k <= 0 uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (Retrieval, error) {
	if k <= 0 {
		k = r.topK
	}
	if r.index.Len() == 0 {
		return Retrieval{}, nil
	}

	embedder, err := r.embedder.Get(ctx)
	if err != nil {
		return Retrieval{}, err
	}
	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return Retrieval{}, fmt.Errorf("embed query failed: %w", err)
	}
	if len(vectors) != 1 {
		return Retrieval{}, fmt.Errorf("embed query returned %d vectors: %w", len(vectors), ErrEmbeddingCountMismatch)
	}

	hits, err := r.index.Search(vectors[0], k)
	if err != nil {
		return Retrieval{}, fmt.Errorf("search index failed: %w", err)
	}
	return Assemble(hits), nil
}

// Assemble builds the context string and the first-seen ordered set of sources.
func Assemble(hits []Hit) Retrieval {
	if len(hits) == 0 {
		return Retrieval{}
	}
	blocks := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	var sources []string
	for _, h := range hits {
		source := h.Chunk.Metadata.SourceName()
		blocks = append(blocks, "Source: "+source+"\n"+h.Chunk.Text)
		if _, ok := seen[source]; !ok {
			seen[source] = struct{}{}
			sources = append(sources, source)
		}
	}
	return Retrieval{
		Context: strings.Join(blocks, contextDelimiter),
		Sources: sources,
		Hits:    hits,
	}
}
