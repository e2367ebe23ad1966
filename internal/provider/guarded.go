package provider

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aid/internal/resilience"
	"github.com/sells-group/aid/pkg/causallm"
	"github.com/sells-group/aid/pkg/embedding"
)

// GuardedEmbedder serves repeated texts from a bounded memo and sends the
// rest through a resilience guard in one batch.
type GuardedEmbedder struct {
	inner   embedding.Embedder
	guard   *resilience.Guard
	memo    *memo
	timeout time.Duration
}

// NewGuardedEmbedder wraps inner. A memoSize of zero disables the memo and
// a zero timeout leaves call deadlines to the caller.
func NewGuardedEmbedder(inner embedding.Embedder, guard *resilience.Guard, memoSize int, timeout time.Duration) *GuardedEmbedder {
	return &GuardedEmbedder{
		inner:   inner,
		guard:   guard,
		memo:    newMemo(memoSize),
		timeout: timeout,
	}
}

// ModelName implements embedding.Embedder.
func (g *GuardedEmbedder) ModelName() string { return g.inner.ModelName() }

// Dimension implements embedding.Embedder.
func (g *GuardedEmbedder) Dimension() int { return g.inner.Dimension() }

// Embed implements embedding.Embedder.
func (g *GuardedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := g.memo.get(t); ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := resilience.Call(ctx, g.guard, "embed", func(ctx context.Context) ([][]float64, error) {
		ctx, cancel := withTimeout(ctx, g.timeout)
		defer cancel()
		return g.inner.Embed(ctx, missing)
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, eris.Errorf("provider: %s returned %d vectors for %d texts", g.inner.ModelName(), len(vecs), len(missing))
	}

	for j, v := range vecs {
		out[missingIdx[j]] = v
		g.memo.put(missing[j], v)
	}
	return out, nil
}

// GuardedLM sends likelihood requests through a resilience guard.
type GuardedLM struct {
	inner   causallm.Model
	guard   *resilience.Guard
	timeout time.Duration
}

// NewGuardedLM wraps inner.
func NewGuardedLM(inner causallm.Model, guard *resilience.Guard, timeout time.Duration) *GuardedLM {
	return &GuardedLM{inner: inner, guard: guard, timeout: timeout}
}

// ModelName implements causallm.Model.
func (g *GuardedLM) ModelName() string { return g.inner.ModelName() }

// LogLikelihood implements causallm.Model.
func (g *GuardedLM) LogLikelihood(ctx context.Context, text, prefix string) (causallm.Likelihood, error) {
	return resilience.Call(ctx, g.guard, "loglikelihood", func(ctx context.Context) (causallm.Likelihood, error) {
		ctx, cancel := withTimeout(ctx, g.timeout)
		defer cancel()
		return g.inner.LogLikelihood(ctx, text, prefix)
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// memo is a bounded text-to-vector map that evicts in insertion order.
type memo struct {
	mu    sync.RWMutex
	max   int
	items map[string][]float64
	order []string
}

func newMemo(size int) *memo {
	return &memo{max: size, items: make(map[string][]float64)}
}

func (m *memo) get(text string) ([]float64, bool) {
	if m.max <= 0 {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[text]
	return v, ok
}

func (m *memo) put(text string, v []float64) {
	if m.max <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[text]; ok {
		return
	}
	if len(m.order) >= m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.items, oldest)
	}
	m.items[text] = v
	m.order = append(m.order, text)
}

func (m *memo) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
