package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Models.Accelerator)
	assert.Equal(t, "ollama", cfg.Models.Embedding.Provider)
	assert.Equal(t, "all-minilm", cfg.Models.Embedding.Model)
	assert.Equal(t, 1, cfg.Models.Embedding.Concurrency)
	assert.Equal(t, "openai", cfg.Models.LM.Provider)
	assert.Equal(t, "gpt2-medium", cfg.Models.LM.Model)

	assert.InDelta(t, 0.60, cfg.Thresholds.MinRelevance, 0.001)
	assert.InDelta(t, 0.40, cfg.Thresholds.MinIrreducibility, 0.001)
	assert.InDelta(t, 0.40, cfg.Thresholds.MinAIDetection, 0.001)
	assert.InDelta(t, 0.55, cfg.Thresholds.MinNovelty, 0.001)
	assert.InDelta(t, 0.50, cfg.Thresholds.MinCoherence, 0.001)
	assert.InDelta(t, 0.60, cfg.Thresholds.MinCombined, 0.001)

	assert.InDelta(t, 1.0, cfg.Weights.Sum(), 0.001)
	assert.InDelta(t, 0.15, cfg.Weights.AIDetection, 0.001)
	assert.InDelta(t, 0.10, cfg.Weights.Effort, 0.001)

	assert.Equal(t, "advisory", cfg.Engine.AIGate)
	assert.Equal(t, 30*time.Second, cfg.Engine.Timeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Scoring.MaxCorpus)
	assert.Equal(t, 1024, cfg.Scoring.MaxResponseTokens)
	assert.Equal(t, 2048, cfg.Scoring.MaxContentTokens)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
models:
  accelerator: cpu
  embedding:
    provider: local
thresholds:
  min_combined: 0.7
cache:
  backend: sqlite
  ttl: 30m
engine:
  ai_gate: enforce
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cpu", cfg.Models.Accelerator)
	assert.Equal(t, "local", cfg.Models.Embedding.Provider)
	assert.InDelta(t, 0.7, cfg.Thresholds.MinCombined, 0.001)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "enforce", cfg.Engine.AIGate)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.60, cfg.Thresholds.MinRelevance, 0.001)
	assert.Equal(t, "openai", cfg.Models.LM.Provider)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
thresholds:
  min_novelty: 0.3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("AID_THRESHOLDS_MIN_NOVELTY", "0.45")
	t.Setenv("AID_MODELS_LM_PROVIDER", "local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.45, cfg.Thresholds.MinNovelty, 0.001)
	assert.Equal(t, "local", cfg.Models.LM.Provider)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("thresholds: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "threshold above one",
			mutate:  func(c *Config) { c.Thresholds.MinCombined = 1.2 },
			wantErr: "thresholds.min_combined must be in [0,1]",
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.Thresholds.MinRelevance = -0.1 },
			wantErr: "thresholds.min_relevance",
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Weights.Effort = -0.1 },
			wantErr: "weights.effort must be non-negative",
		},
		{
			name: "all weights zero",
			mutate: func(c *Config) {
				c.Weights = WeightsConfig{}
			},
			wantErr: "weights must not all be zero",
		},
		{
			name:    "unknown gate policy",
			mutate:  func(c *Config) { c.Engine.AIGate = "strict" },
			wantErr: "engine.ai_gate must be one of advisory|enforce",
		},
		{
			name:    "unknown cache backend",
			mutate:  func(c *Config) { c.Cache.Backend = "redis" },
			wantErr: "cache.backend",
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Cache.Backend = "postgres" },
			wantErr: "cache.database_url is required",
		},
		{
			name:    "unknown embedding provider",
			mutate:  func(c *Config) { c.Models.Embedding.Provider = "openai" },
			wantErr: "models.embedding.provider",
		},
		{
			name:    "inverted word bounds",
			mutate:  func(c *Config) { c.Scoring.MaxWords = 10 },
			wantErr: "scoring word bounds invalid",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Engine.Timeout = 0 },
			wantErr: "engine.timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_WeightSumOutsideToleranceWarnsOnly(t *testing.T) {
	cfg := validConfig(t)
	cfg.Weights.Relevance = 0.5

	assert.InDelta(t, 1.3, cfg.Weights.Sum(), 0.001)
	assert.NoError(t, cfg.Validate())
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{"json info", LogConfig{Level: "info", Format: "json"}, false},
		{"console debug", LogConfig{Level: "debug", Format: "console"}, false},
		{"bad level", LogConfig{Level: "loud", Format: "json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, zap.L())
		})
	}
}
