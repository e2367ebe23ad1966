package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/aid/internal/config"
	"github.com/sells-group/aid/internal/provider"
	"github.com/sells-group/aid/pkg/causallm"
	"github.com/sells-group/aid/pkg/embedding/embeddingtest"
)

const testContent = "The Aurora X2 wireless headphones deliver studio-grade sound in a lightweight folding design. " +
	"Adaptive noise cancellation uses six microphones to monitor ambient sound and adjust filtering in real time, " +
	"so commuters can block engine rumble while still hearing station announcements through the transparency mode. " +
	"Battery life reaches thirty hours with noise cancellation enabled, and a ten minute quick charge adds five hours of playback."

const testResponse = "I wore these on my 6:40 train every morning for two weeks. Honestly? The noise cancelling surprised me. " +
	"My old pair hissed, but these kill the rumble almost completely. I still had to take them off for the Friday " +
	"announcements, which annoyed me. Battery lasted four commutes before I charged once."

func testAppConfig() *config.Config {
	return &config.Config{
		Models: config.ModelsConfig{
			Accelerator: "cpu",
			Embedding:   config.EmbeddingConfig{Provider: "local", Dimension: 256},
			LM:          config.LMConfig{Provider: "local"},
		},
		Thresholds: config.ThresholdsConfig{
			MinRelevance:      0.60,
			MinIrreducibility: 0.40,
			MinAIDetection:    0.40,
			MinNovelty:        0.55,
			MinCoherence:      0.50,
			MinCombined:       0.60,
		},
		Weights: config.WeightsConfig{
			Relevance:      0.20,
			Irreducibility: 0.20,
			AIDetection:    0.15,
			Novelty:        0.20,
			Coherence:      0.15,
			Effort:         0.10,
		},
		Engine:  config.EngineConfig{AIGate: "advisory", Timeout: 5 * time.Second},
		Scoring: config.ScoringConfig{MinWords: 30, MaxWords: 400, MaxCorpus: 100, MaxResponseTokens: 1024, MaxContentTokens: 2048},
		Cache:   config.CacheConfig{Enabled: true, Backend: "memory", TTL: time.Hour, MaxEntries: 100},
		Batch:   config.BatchConfig{Concurrency: 2},
		Log:     config.LogConfig{Level: "info", Format: "json"},
	}
}

// newTestEnv builds an engine over deterministic in-process models.
func newTestEnv(t *testing.T) *engineEnv {
	t.Helper()
	providers := &provider.Set{
		Embedder: embeddingtest.NewUniform(0.6, 512),
		LM:       causallm.NewNGram(),
	}
	env, err := newEngineEnv(context.Background(), *testAppConfig(), providers)
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}
