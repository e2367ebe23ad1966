package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aid/internal/cache"
	"github.com/sells-group/aid/internal/config"
	"github.com/sells-group/aid/internal/engine"
	"github.com/sells-group/aid/internal/monitoring"
	"github.com/sells-group/aid/internal/provider"
)

// engineEnv holds the engine and the collaborators the verify, detect,
// batch and serve commands share.
type engineEnv struct {
	Engine    *engine.Engine
	Cache     cache.Cache // nil when caching is disabled
	Collector *monitoring.Collector
}

// Close releases resources held by the environment.
func (ee *engineEnv) Close() {
	if ee.Engine != nil {
		if err := ee.Engine.Close(); err != nil {
			zap.L().Warn("close engine", zap.Error(err))
		}
	}
}

// initEngine validates the config, builds the providers and the cache and
// constructs the engine. Callers should defer env.Close().
func initEngine(ctx context.Context, c *config.Config) (*engineEnv, error) {
	if c == nil {
		return nil, eris.New("config not loaded")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	providers, err := provider.New(*c)
	if err != nil {
		return nil, eris.Wrap(err, "build providers")
	}
	return newEngineEnv(ctx, *c, providers)
}

func newEngineEnv(ctx context.Context, c config.Config, providers *provider.Set) (*engineEnv, error) {
	rc, err := cache.New(ctx, c.Cache)
	if err != nil {
		return nil, eris.Wrap(err, "init cache")
	}

	collector := monitoring.NewCollector(rc)

	eng, err := engine.New(ctx, c, providers,
		engine.WithCache(rc),
		engine.WithRecorder(collector),
	)
	if err != nil {
		if rc != nil {
			_ = rc.Close()
		}
		return nil, err
	}

	return &engineEnv{Engine: eng, Cache: rc, Collector: collector}, nil
}
