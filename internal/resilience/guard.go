package resilience

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// GuardConfig configures a Guard.
type GuardConfig struct {
	// Name identifies the provider in logs.
	Name string

	// Concurrency bounds in-flight calls. Callers beyond it queue.
	// Default: 1.
	Concurrency int

	// RateLimit is the sustained calls per second. Zero disables pacing.
	RateLimit float64

	Retry   RetryConfig
	Breaker CircuitBreakerConfig
}

// Guard serializes access to one model provider. Calls wait for a slot in
// a bounded queue, are paced by an optional rate limiter, are retried on
// transient errors and short-circuit while the provider is failing.
type Guard struct {
	name    string
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	breaker *CircuitBreaker
	retry   RetryConfig
}

// NewGuard builds a Guard from cfg.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	g := &Guard{
		name:  cfg.Name,
		sem:   semaphore.NewWeighted(int64(cfg.Concurrency)),
		retry: cfg.Retry,
	}
	if cfg.RateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(int(cfg.RateLimit), 1))
	}

	breakerCfg := cfg.Breaker
	onChange := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(from, to CircuitState) {
		zap.L().Warn("resilience: provider circuit changed state",
			zap.String("provider", cfg.Name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
		if onChange != nil {
			onChange(from, to)
		}
	}
	g.breaker = NewCircuitBreaker(breakerCfg)
	return g
}

// Name returns the provider name.
func (g *Guard) Name() string { return g.name }

// Breaker exposes the guard's circuit breaker.
func (g *Guard) Breaker() *CircuitBreaker { return g.breaker }

// Call runs fn under g. The queue slot is held across retries; the breaker
// sees one outcome per call.
func Call[T any](ctx context.Context, g *Guard, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return zero, eris.Wrapf(err, "resilience: %s %s: wait for slot", g.name, op)
	}
	defer g.sem.Release(1)

	retry := g.retry
	if retry.OnRetry == nil {
		retry.OnRetry = RetryLogger(g.name, op)
	}

	return ExecuteVal(ctx, g.breaker, func(ctx context.Context) (T, error) {
		return DoVal(ctx, retry, func(ctx context.Context) (T, error) {
			if g.limiter != nil {
				if err := g.limiter.Wait(ctx); err != nil {
					return zero, eris.Wrapf(err, "resilience: %s %s: rate limit", g.name, op)
				}
			}
			return fn(ctx)
		})
	})
}
