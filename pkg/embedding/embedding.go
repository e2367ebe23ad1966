// Package embedding provides sentence-embedding providers and vector helpers.
package embedding

import (
	"context"
	"math"
)

// Embedder computes fixed-length vector representations of text.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	// ModelName identifies the underlying model.
	ModelName() string
	// Dimension is the length of every returned vector.
	Dimension() int
}

// Cosine returns the cosine similarity of two vectors. Mismatched lengths
// or a zero-norm vector yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Guard float drift just past ±1.
	return math.Max(-1, math.Min(1, sim))
}
