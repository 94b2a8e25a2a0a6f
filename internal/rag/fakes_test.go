package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync/atomic"
	"unicode"
)

const fakeDim = 64

// hashEmbedder is a deterministic bag-of-words embedder.
type hashEmbedder struct {
	calls atomic.Int32
	err   error
}

func (h *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	h.calls.Add(1)
	if h.err != nil {
		return nil, h.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t)
	}
	return out, nil
}

func bagOfWords(text string) []float32 {
	v := make([]float32, fakeDim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%fakeDim]++
	}
	if len(words) == 0 {
		v[0] = 1
	}
	return v
}

var errBoom = errors.New("boom")

func newTestProvider(e Embedder) *EmbedderProvider {
	return NewEmbedderProvider(StaticEmbedder(e), nil)
}

// fixedEmbedder maps every text to the same vector.
type fixedEmbedder []float32

func (f fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), f...)
	}
	return out, nil
}
