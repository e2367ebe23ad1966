// Package embeddingtest provides deterministic embedders for tests.
package embeddingtest

import (
	"context"
	"math"
	"sync"
)

// Uniform embeds every distinct text so that any two distinct texts have
// exactly the configured cosine similarity and identical texts have 1.
type Uniform struct {
	similarity float64
	dim        int

	mu    sync.Mutex
	index map[string]int
	calls int
}

// NewUniform returns a Uniform embedder with room for dim-1 distinct texts.
func NewUniform(similarity float64, dim int) *Uniform {
	return &Uniform{similarity: similarity, dim: dim, index: make(map[string]int)}
}

// ModelName implements embedding.Embedder.
func (u *Uniform) ModelName() string { return "uniform" }

// Dimension implements embedding.Embedder.
func (u *Uniform) Dimension() int { return u.dim }

// Calls returns how many Embed calls were made.
func (u *Uniform) Calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

// Embed implements embedding.Embedder. Each vector is a shared component
// of weight sqrt(similarity) plus a text-specific orthogonal component.
func (u *Uniform) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++

	shared := math.Sqrt(u.similarity)
	own := math.Sqrt(1 - u.similarity)
	out := make([][]float64, len(texts))
	for i, t := range texts {
		idx, ok := u.index[t]
		if !ok {
			idx = 1 + len(u.index)%(u.dim-1)
			u.index[t] = idx
		}
		v := make([]float64, u.dim)
		v[0] = shared
		v[idx] = own
		out[i] = v
	}
	return out, nil
}
