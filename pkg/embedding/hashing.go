package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/sells-group/aid/internal/textstat"
)

// DefaultHashingDimension is the vector length of the hashing embedder.
const DefaultHashingDimension = 1024

// Hashing is a deterministic offline embedder: a signed feature-hashed bag
// of content words with sublinear term frequency, L2-normalized. Identical
// texts embed identically and texts with disjoint vocabulary are near
// orthogonal.
type Hashing struct {
	dim int
}

// NewHashing creates a hashing embedder. dim <= 0 uses the default.
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = DefaultHashingDimension
	}
	return &Hashing{dim: dim}
}

// ModelName implements Embedder.
func (h *Hashing) ModelName() string { return fmt.Sprintf("hashing-bow-%d", h.dim) }

// Dimension implements Embedder.
func (h *Hashing) Dimension() int { return h.dim }

// Embed implements Embedder. Empty text maps to the zero vector.
func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float64 {
	words := textstat.Words(text)
	counts := make(map[string]int, len(words))
	for _, w := range words {
		if !textstat.IsStopword(w) {
			counts[w]++
		}
	}
	// A text made only of function words still gets a direction.
	if len(counts) == 0 {
		for _, w := range words {
			counts[w]++
		}
	}

	v := make([]float64, h.dim)
	for w, n := range counts {
		hf := fnv.New64a()
		_, _ = hf.Write([]byte(w))
		sum := hf.Sum64()
		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		v[sum%uint64(h.dim)] += sign * (1 + math.Log(float64(n)))
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v
}
