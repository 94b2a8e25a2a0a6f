package rag

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

type VectorRecord struct {
	Embedding []float32
	Chunk     Chunk
}

type Hit struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// Index is an in-memory exact cosine index. A single mutex serializes inserts, searches and resets.
type Index struct {
	mu      sync.Mutex
	dim     int
	vectors [][]float32
	chunks  []Chunk
}

func NewIndex() *Index {
	return &Index{}
}

// Insert appends records. The dimension is fixed by the first insert into an empty index.
// Either all records are stored or none are.
func (x *Index) Insert(records []VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	normalized := make([][]float32, len(records))
	dim := len(records[0].Embedding)
	for i, rec := range records {
		if len(rec.Embedding) == 0 || len(rec.Embedding) != dim {
			return 0, fmt.Errorf("record %d has dimension %d, want %d: %w", i, len(rec.Embedding), dim, ErrDimensionMismatch)
		}
		normalized[i] = normalize(rec.Embedding)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dim == 0 {
		x.dim = dim
	} else if x.dim != dim {
		return 0, fmt.Errorf("index dimension is %d, got %d: %w", x.dim, dim, ErrDimensionMismatch)
	}
	for i, rec := range records {
		x.vectors = append(x.vectors, normalized[i])
		x.chunks = append(x.chunks, rec.Chunk)
	}
	return len(records), nil
}

// Search returns at most k hits ordered by descending cosine similarity.
// An empty index yields no hits and no error.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(x.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("query has dimension %d, want %d: %w", len(query), x.dim, ErrDimensionMismatch)
	}

	q := normalize(query)
	hits := make([]Hit, len(x.vectors))
	for i, vec := range x.vectors {
		hits[i] = Hit{Chunk: x.chunks[i], Score: dot(q, vec)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.vectors)
}

func (x *Index) Dimension() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.dim
}

// Reset drops every record; the next insert fixes a new dimension.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.dim = 0
	x.vectors = nil
	x.chunks = nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return float32(s)
}
