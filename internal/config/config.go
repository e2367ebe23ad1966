package config

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Models     ModelsConfig     `yaml:"models" mapstructure:"models"`
	Thresholds ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
	Weights    WeightsConfig    `yaml:"weights" mapstructure:"weights"`
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ModelsConfig selects the embedding and causal-LM providers.
type ModelsConfig struct {
	// Accelerator is "auto", "gpu" or "cpu".
	Accelerator string          `yaml:"accelerator" mapstructure:"accelerator"`
	Embedding   EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	LM          LMConfig        `yaml:"lm" mapstructure:"lm"`
}

// EmbeddingConfig configures the sentence-embedding provider.
type EmbeddingConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // "ollama" or "local"
	Model       string  `yaml:"model" mapstructure:"model"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Dimension   int     `yaml:"dimension" mapstructure:"dimension"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests/sec, 0 = unlimited
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MemoSize    int     `yaml:"memo_size" mapstructure:"memo_size"`
}

// LMConfig configures the causal language model provider.
type LMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // "openai" or "local"
	Model       string  `yaml:"model" mapstructure:"model"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ThresholdsConfig holds the pass/fail minima. Field layout matches
// model.Thresholds so the two convert directly.
type ThresholdsConfig struct {
	MinRelevance      float64 `yaml:"min_relevance" mapstructure:"min_relevance"`
	MinIrreducibility float64 `yaml:"min_irreducibility" mapstructure:"min_irreducibility"`
	MinAIDetection    float64 `yaml:"min_ai_detection" mapstructure:"min_ai_detection"`
	MinNovelty        float64 `yaml:"min_novelty" mapstructure:"min_novelty"`
	MinCoherence      float64 `yaml:"min_coherence" mapstructure:"min_coherence"`
	MinCombined       float64 `yaml:"min_combined" mapstructure:"min_combined"`
}

// WeightsConfig holds the aggregation weights. Field layout matches
// model.Weights.
type WeightsConfig struct {
	Relevance      float64 `yaml:"relevance" mapstructure:"relevance"`
	Irreducibility float64 `yaml:"irreducibility" mapstructure:"irreducibility"`
	AIDetection    float64 `yaml:"ai_detection" mapstructure:"ai_detection"`
	Novelty        float64 `yaml:"novelty" mapstructure:"novelty"`
	Coherence      float64 `yaml:"coherence" mapstructure:"coherence"`
	Effort         float64 `yaml:"effort" mapstructure:"effort"`
}

// Sum returns the total of all weights.
func (w WeightsConfig) Sum() float64 {
	return w.Relevance + w.Irreducibility + w.AIDetection + w.Novelty + w.Coherence + w.Effort
}

// EngineConfig configures the verification orchestrator.
type EngineConfig struct {
	// AIGate is "advisory" (AI score only feeds the combined score) or
	// "enforce" (min_ai_detection also gates pass/fail).
	AIGate  string        `yaml:"ai_gate" mapstructure:"ai_gate"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ScoringConfig holds scorer limits.
type ScoringConfig struct {
	MinWords          int    `yaml:"min_words" mapstructure:"min_words"`
	MaxWords          int    `yaml:"max_words" mapstructure:"max_words"`
	MaxCorpus         int    `yaml:"max_corpus" mapstructure:"max_corpus"`
	MaxResponseTokens int    `yaml:"max_response_tokens" mapstructure:"max_response_tokens"`
	MaxContentTokens  int    `yaml:"max_content_tokens" mapstructure:"max_content_tokens"`
	LexiconFile       string `yaml:"lexicon_file" mapstructure:"lexicon_file"`
}

// CacheConfig configures the verification result cache.
type CacheConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend     string        `yaml:"backend" mapstructure:"backend"` // "memory", "sqlite" or "postgres"
	TTL         time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxEntries  int           `yaml:"max_entries" mapstructure:"max_entries"`
	SQLitePath  string        `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
}

// ResilienceConfig configures retry and circuit breaking around model providers.
type ResilienceConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures batch verification.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// MonitoringConfig configures verification health alerting.
type MonitoringConfig struct {
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	DegradedRateThreshold float64 `yaml:"degraded_rate_threshold" mapstructure:"degraded_rate_threshold"`
	TimeoutRateThreshold  float64 `yaml:"timeout_rate_threshold" mapstructure:"timeout_rate_threshold"`
	MinSamples            int     `yaml:"min_samples" mapstructure:"min_samples"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Weight sum tolerance. Outside this band Validate logs a warning.
const (
	weightSumLow  = 0.95
	weightSumHigh = 1.05
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("models.accelerator", "auto")
	v.SetDefault("models.embedding.provider", "ollama")
	v.SetDefault("models.embedding.model", "all-minilm")
	v.SetDefault("models.embedding.base_url", "http://localhost:11434")
	v.SetDefault("models.embedding.dimension", 384)
	v.SetDefault("models.embedding.concurrency", 1)
	v.SetDefault("models.embedding.rate_limit", 0)
	v.SetDefault("models.embedding.timeout_secs", 30)
	v.SetDefault("models.embedding.memo_size", 4096)
	v.SetDefault("models.lm.provider", "openai")
	v.SetDefault("models.lm.model", "gpt2-medium")
	v.SetDefault("models.lm.base_url", "http://localhost:8000")
	v.SetDefault("models.lm.api_key", "")
	v.SetDefault("models.lm.concurrency", 1)
	v.SetDefault("models.lm.rate_limit", 0)
	v.SetDefault("models.lm.timeout_secs", 60)

	v.SetDefault("thresholds.min_relevance", 0.60)
	v.SetDefault("thresholds.min_irreducibility", 0.40)
	v.SetDefault("thresholds.min_ai_detection", 0.40)
	v.SetDefault("thresholds.min_novelty", 0.55)
	v.SetDefault("thresholds.min_coherence", 0.50)
	v.SetDefault("thresholds.min_combined", 0.60)

	v.SetDefault("weights.relevance", 0.20)
	v.SetDefault("weights.irreducibility", 0.20)
	v.SetDefault("weights.ai_detection", 0.15)
	v.SetDefault("weights.novelty", 0.20)
	v.SetDefault("weights.coherence", 0.15)
	v.SetDefault("weights.effort", 0.10)

	v.SetDefault("engine.ai_gate", "advisory")
	v.SetDefault("engine.timeout", 30*time.Second)

	v.SetDefault("scoring.min_words", 30)
	v.SetDefault("scoring.max_words", 400)
	v.SetDefault("scoring.max_corpus", 100)
	v.SetDefault("scoring.max_response_tokens", 1024)
	v.SetDefault("scoring.max_content_tokens", 2048)
	v.SetDefault("scoring.lexicon_file", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.sqlite_path", "aid-cache.db")
	v.SetDefault("cache.database_url", "")

	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 200)
	v.SetDefault("resilience.max_backoff_ms", 5000)
	v.SetDefault("resilience.multiplier", 2.0)
	v.SetDefault("resilience.jitter_fraction", 0.25)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.concurrency", 4)

	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.degraded_rate_threshold", 0.25)
	v.SetDefault("monitoring.timeout_rate_threshold", 0.10)
	v.SetDefault("monitoring.min_samples", 20)
	v.SetDefault("monitoring.check_interval_secs", 300)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks value ranges and enum options. A weight sum outside
// 0.95..1.05 is logged but not rejected.
func (c *Config) Validate() error {
	var errs []string

	thresholds := map[string]float64{
		"min_relevance":      c.Thresholds.MinRelevance,
		"min_irreducibility": c.Thresholds.MinIrreducibility,
		"min_ai_detection":   c.Thresholds.MinAIDetection,
		"min_novelty":        c.Thresholds.MinNovelty,
		"min_coherence":      c.Thresholds.MinCoherence,
		"min_combined":       c.Thresholds.MinCombined,
	}
	for _, name := range slices.Sorted(maps.Keys(thresholds)) {
		if v := thresholds[name]; v < 0 || v > 1 || math.IsNaN(v) {
			errs = append(errs, fmt.Sprintf("thresholds.%s must be in [0,1], got %.3f", name, v))
		}
	}

	weights := map[string]float64{
		"relevance":      c.Weights.Relevance,
		"irreducibility": c.Weights.Irreducibility,
		"ai_detection":   c.Weights.AIDetection,
		"novelty":        c.Weights.Novelty,
		"coherence":      c.Weights.Coherence,
		"effort":         c.Weights.Effort,
	}
	for _, name := range slices.Sorted(maps.Keys(weights)) {
		if v := weights[name]; v < 0 || math.IsNaN(v) {
			errs = append(errs, fmt.Sprintf("weights.%s must be non-negative, got %.3f", name, v))
		}
	}
	sum := c.Weights.Sum()
	if sum <= 0 {
		errs = append(errs, "weights must not all be zero")
	} else if sum < weightSumLow || sum > weightSumHigh {
		zap.L().Warn("config: aggregation weights do not sum to 1.0",
			zap.Float64("sum", sum),
		)
	}

	errs = appendEnum(errs, "models.accelerator", c.Models.Accelerator, "auto", "gpu", "cpu")
	errs = appendEnum(errs, "models.embedding.provider", c.Models.Embedding.Provider, "ollama", "local")
	errs = appendEnum(errs, "models.lm.provider", c.Models.LM.Provider, "openai", "local")
	errs = appendEnum(errs, "engine.ai_gate", c.Engine.AIGate, "advisory", "enforce")
	errs = appendEnum(errs, "cache.backend", c.Cache.Backend, "memory", "sqlite", "postgres")

	if c.Cache.Enabled && c.Cache.Backend == "postgres" && c.Cache.DatabaseURL == "" {
		errs = append(errs, "cache.database_url is required for the postgres backend")
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl must not be negative")
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, "engine.timeout must be positive")
	}
	if c.Scoring.MinWords < 0 || c.Scoring.MaxWords <= c.Scoring.MinWords {
		errs = append(errs, fmt.Sprintf("scoring word bounds invalid: min=%d max=%d", c.Scoring.MinWords, c.Scoring.MaxWords))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func appendEnum(errs []string, key, got string, allowed ...string) []string {
	for _, a := range allowed {
		if got == a {
			return errs
		}
	}
	return append(errs, fmt.Sprintf("%s must be one of %s, got %q", key, strings.Join(allowed, "|"), got))
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
