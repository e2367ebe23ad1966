// Package provider builds the embedding and causal-LM providers from
// configuration and wraps them with queueing, retry, circuit breaking and
// an embedding memo.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aid/internal/config"
	"github.com/sells-group/aid/internal/resilience"
	"github.com/sells-group/aid/pkg/causallm"
	"github.com/sells-group/aid/pkg/embedding"
)

// Set is the pair of model handles shared by all scorers. Both handles are
// safe for concurrent use.
type Set struct {
	Embedder embedding.Embedder
	LM       causallm.Model
}

// New builds guarded providers from cfg.
func New(cfg config.Config) (*Set, error) {
	retry, breaker := resilience.FromConfig(cfg.Resilience)

	emb, err := newEmbedder(cfg.Models)
	if err != nil {
		return nil, err
	}
	lm, err := newLM(cfg.Models.LM)
	if err != nil {
		return nil, err
	}

	embGuard := resilience.NewGuard(resilience.GuardConfig{
		Name:        "embedding/" + emb.ModelName(),
		Concurrency: cfg.Models.Embedding.Concurrency,
		RateLimit:   cfg.Models.Embedding.RateLimit,
		Retry:       retry,
		Breaker:     breaker,
	})
	lmGuard := resilience.NewGuard(resilience.GuardConfig{
		Name:        "lm/" + lm.ModelName(),
		Concurrency: cfg.Models.LM.Concurrency,
		RateLimit:   cfg.Models.LM.RateLimit,
		Retry:       retry,
		Breaker:     breaker,
	})

	zap.L().Info("provider: models configured",
		zap.String("embedding", emb.ModelName()),
		zap.String("lm", lm.ModelName()),
		zap.String("accelerator", cfg.Models.Accelerator),
	)

	return &Set{
		Embedder: NewGuardedEmbedder(emb, embGuard, cfg.Models.Embedding.MemoSize, seconds(cfg.Models.Embedding.TimeoutSecs)),
		LM:       NewGuardedLM(lm, lmGuard, seconds(cfg.Models.LM.TimeoutSecs)),
	}, nil
}

func newEmbedder(cfg config.ModelsConfig) (embedding.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "local":
		return embedding.NewHashing(e.Dimension), nil
	case "ollama", "":
		opts := []embedding.OllamaOption{
			embedding.WithHTTPClient(&http.Client{}),
			embedding.WithDimension(e.Dimension),
		}
		if e.BaseURL != "" {
			opts = append(opts, embedding.WithBaseURL(e.BaseURL))
		}
		if cfg.Accelerator == "cpu" {
			opts = append(opts, embedding.WithCPUOnly())
		}
		return embedding.NewOllama(e.Model, opts...), nil
	default:
		return nil, eris.Errorf("provider: unknown embedding provider %q", e.Provider)
	}
}

func newLM(cfg config.LMConfig) (causallm.Model, error) {
	switch cfg.Provider {
	case "local":
		return causallm.NewNGram(), nil
	case "openai", "":
		opts := []causallm.Option{causallm.WithHTTPClient(&http.Client{})}
		if cfg.BaseURL != "" {
			opts = append(opts, causallm.WithBaseURL(cfg.BaseURL))
		}
		if cfg.APIKey != "" {
			opts = append(opts, causallm.WithAPIKey(cfg.APIKey))
		}
		return causallm.NewOpenAI(cfg.Model, opts...), nil
	default:
		return nil, eris.Errorf("provider: unknown lm provider %q", cfg.Provider)
	}
}

// Warmup runs one small request through each provider so an unreachable
// model fails at construction rather than on the first verification.
func (s *Set) Warmup(ctx context.Context) error {
	if _, err := s.Embedder.Embed(ctx, []string{"warmup"}); err != nil {
		return eris.Wrapf(err, "provider: warm up embedding model %s", s.Embedder.ModelName())
	}
	if _, err := s.LM.LogLikelihood(ctx, "warmup text", ""); err != nil {
		return eris.Wrapf(err, "provider: warm up lm %s", s.LM.ModelName())
	}
	return nil
}

// ModelVersions reports the model identifiers recorded on each result.
func (s *Set) ModelVersions() map[string]string {
	return map[string]string{
		"embedding": s.Embedder.ModelName(),
		"lm":        s.LM.ModelName(),
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
