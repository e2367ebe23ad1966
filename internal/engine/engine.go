// Package engine orchestrates a verification: it fingerprints the request,
// consults the result cache, runs the six scorers behind a barrier,
// aggregates their values and applies the pass/fail thresholds.
package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/aid/internal/cache"
	"github.com/sells-group/aid/internal/config"
	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/monitoring"
	"github.com/sells-group/aid/internal/provider"
	"github.com/sells-group/aid/internal/scorer"
)

// NeutralScore is substituted for a scorer that fails or returns an
// out-of-range value.
const NeutralScore = 0.5

// DetectPrompt is the prompt used when scoring standalone text.
const DetectPrompt = "Provide your thoughts on this content."

// Recorder receives one event per finished call.
type Recorder interface {
	Record(monitoring.Event)
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache attaches a result cache. A nil cache disables caching.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithRecorder attaches a monitoring recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is safe for concurrent use. Its configuration is fixed at
// construction; per-request threshold overrides work on copies.
type Engine struct {
	scorers    []scorer.Scorer
	thresholds model.Thresholds
	weights    model.Weights
	enforceAI  bool
	timeout    time.Duration
	opts       scorer.Options
	versions   map[string]string

	cache    cache.Cache
	recorder Recorder
	now      func() time.Time
}

// New warms up the providers and builds an engine from cfg. An unreachable
// model yields ErrModelUnavailable.
func New(ctx context.Context, cfg config.Config, providers *provider.Set, opts ...Option) (*Engine, error) {
	if providers == nil || providers.Embedder == nil || providers.LM == nil {
		return nil, eris.New("engine: embedding and lm providers are required")
	}
	if err := providers.Warmup(ctx); err != nil {
		return nil, modelUnavailable(err)
	}

	lex, err := scorer.LoadLexicon(cfg.Scoring.LexiconFile)
	if err != nil {
		return nil, eris.Wrap(err, "engine: load lexicon")
	}

	scoring := scoringOptions(cfg.Scoring)
	e := &Engine{
		scorers:    scorer.All(providers.Embedder, providers.LM, lex, scoring),
		thresholds: model.Thresholds(cfg.Thresholds),
		weights:    model.Weights(cfg.Weights),
		enforceAI:  cfg.Engine.AIGate == "enforce",
		timeout:    cfg.Engine.Timeout,
		opts:       scoring,
		versions:   providers.ModelVersions(),
		now:        time.Now,
	}
	if e.timeout <= 0 {
		e.timeout = 30 * time.Second
	}
	for _, opt := range opts {
		opt(e)
	}

	zap.L().Info("engine: ready",
		zap.Any("models", e.versions),
		zap.Bool("cache", e.cache != nil),
		zap.Bool("enforce_ai_gate", e.enforceAI),
		zap.Duration("timeout", e.timeout),
	)
	return e, nil
}

func scoringOptions(cfg config.ScoringConfig) scorer.Options {
	opts := scorer.DefaultOptions()
	set := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	set(&opts.MinWords, cfg.MinWords)
	set(&opts.MaxWords, cfg.MaxWords)
	set(&opts.MaxCorpus, cfg.MaxCorpus)
	set(&opts.MaxResponseTokens, cfg.MaxResponseTokens)
	set(&opts.MaxContentTokens, cfg.MaxContentTokens)
	return opts
}

// Thresholds returns the configured minima.
func (e *Engine) Thresholds() model.Thresholds { return e.thresholds }

// ModelVersions returns the model identifiers recorded on each result.
func (e *Engine) ModelVersions() map[string]string { return maps.Clone(e.versions) }

// Verify scores req. Only ErrInvalidInput and ErrTimeout are returned;
// scorer failures are reported as degraded dimensions on the result.
func (e *Engine) Verify(ctx context.Context, req *model.VerificationRequest) (*model.Verification, error) {
	start := e.now()
	v, err := e.verify(ctx, req, start)
	e.record(v, err, e.now().Sub(start))
	return v, err
}

// VerifySync is Verify with a background context. The engine timeout
// still bounds the call.
func (e *Engine) VerifySync(req *model.VerificationRequest) (*model.Verification, error) {
	return e.Verify(context.Background(), req)
}

func (e *Engine) verify(ctx context.Context, req *model.VerificationRequest, start time.Time) (*model.Verification, error) {
	if req == nil || strings.TrimSpace(req.Response) == "" {
		return nil, invalidInput("response is empty", nil)
	}
	thresholds, err := e.thresholds.WithOverrides(req.CustomThresholds)
	if err != nil {
		return nil, invalidInput("custom thresholds", err)
	}

	fp := cache.Fingerprint(req.Response, req.Content, req.Prompt)
	log := zap.L().With(zap.String("fingerprint", fp[:12]))
	id := uuid.NewString()

	if cached := e.lookup(ctx, fp, log); cached != nil {
		return &model.Verification{
			RequestID: id,
			CacheHit:  true,
			Result:    e.rethreshold(cached, thresholds),
		}, nil
	}

	scores, err := e.score(ctx, scorer.NewInput(req, e.opts, start), log)
	if err != nil {
		return nil, err
	}

	result := &model.VerificationResult{
		ThresholdsApplied: thresholds,
		Fingerprint:       fp,
		ModelVersions:     maps.Clone(e.versions),
		CreatedAt:         start.UTC(),
	}
	for i, d := range model.Dimensions {
		result.SetScore(d, scores[i])
	}
	result.CombinedScore = geometricMean(result, e.weights)
	result.Passed = passes(result, thresholds, e.enforceAI)
	result.FeedbackSummary, result.FeedbackDetails = feedback(result, thresholds)
	result.ProcessingTimeMs = e.now().Sub(start).Milliseconds()

	log.Info("engine: verified",
		zap.Float64("combined", result.CombinedScore),
		zap.Bool("passed", result.Passed),
		zap.Int64("processing_ms", result.ProcessingTimeMs),
	)

	if e.cache != nil {
		if err := e.cache.Set(ctx, fp, result); err != nil {
			log.Warn("engine: cache write failed", zap.Error(err))
		}
	}

	return &model.Verification{RequestID: id, Result: result}, nil
}

func (e *Engine) lookup(ctx context.Context, fp string, log *zap.Logger) *model.VerificationResult {
	if e.cache == nil {
		return nil
	}
	res, ok, err := e.cache.Get(ctx, fp)
	if err != nil {
		log.Warn("engine: cache read failed, scoring anyway", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	log.Debug("engine: cache hit")
	return res
}

// rethreshold re-applies the pass/fail contract when a cached result was
// produced under different thresholds. Scores are never recomputed and the
// cached value is left untouched.
func (e *Engine) rethreshold(cached *model.VerificationResult, t model.Thresholds) *model.VerificationResult {
	if cached.ThresholdsApplied == t {
		return cached
	}
	out := *cached
	out.ThresholdsApplied = t
	out.Passed = passes(&out, t, e.enforceAI)
	out.FeedbackSummary, out.FeedbackDetails = feedback(&out, t)
	return &out
}

// score runs every scorer concurrently and waits for all of them, or for
// the engine timeout. Failed scorers yield a degraded neutral value.
func (e *Engine) score(ctx context.Context, in *scorer.Input, log *zap.Logger) ([]model.ScoreResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	results := make([]model.ScoreResult, len(e.scorers))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range e.scorers {
		g.Go(func() error {
			res, err := s.Score(gctx, in)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			switch {
			case err != nil:
				log.Warn("engine: scorer failed, using neutral value",
					zap.String("dimension", string(s.Name())),
					zap.Error(err),
				)
				res = degraded(err.Error())
			case !res.Valid():
				log.Warn("engine: scorer returned out-of-range value, using neutral value",
					zap.String("dimension", string(s.Name())),
					zap.Float64("value", res.Value),
				)
				res = degraded(fmt.Sprintf("value %v out of range", res.Value))
			}
			results[i] = res
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case <-ctx.Done():
		return nil, timeout(ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, timeout(err)
		}
		return results, nil
	}
}

func degraded(reason string) model.ScoreResult {
	return model.ScoreResult{
		Value:          NeutralScore,
		Interpretation: "degraded: " + reason,
		Degraded:       true,
	}
}

func (e *Engine) record(v *model.Verification, err error, d time.Duration) {
	if e.recorder == nil {
		return
	}
	ev := monitoring.Event{Duration: d}
	switch {
	case errors.Is(err, ErrInvalidInput):
		ev.InputError = true
	case errors.Is(err, ErrTimeout):
		ev.Timeout = true
	case err != nil || v == nil:
		return
	default:
		ev.Passed = v.Result.Passed
		ev.CacheHit = v.CacheHit
		ev.Combined = v.Result.CombinedScore
		ev.Degraded = v.Result.DegradedDimensions()
	}
	e.recorder.Record(ev)
}

// Close releases the cache.
func (e *Engine) Close() error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Close()
}
