package engine

import (
	"context"
	"math"

	"github.com/sells-group/aid/internal/model"
)

// indicator reads one detection signal off a verification result.
type indicator struct {
	name      string
	weight    float64
	value     func(r *model.VerificationResult) float64
	interpret func(v float64) string
}

var indicators = []indicator{
	{"perplexity", 0.20, func(r *model.VerificationResult) float64 { return r.Irreducibility.Value }, interpretPerplexity},
	{"coherence", 0.15, func(r *model.VerificationResult) float64 { return r.Coherence.Value }, interpretCoherence},
	{"burstiness", 0.20, aiComponent("burstiness"), interpretBurstiness},
	{"originality", 0.15, func(r *model.VerificationResult) float64 { return r.Novelty.Value }, interpretOriginality},
	{"personal_voice", 0.15, aiComponent("personality"), interpretVoice},
	{"pattern_score", 0.15, aiComponent("stock_phrases"), interpretPatterns},
}

// aiComponent falls back to the neutral value when the AI-pattern scorer
// degraded and left no breakdown.
func aiComponent(key string) func(r *model.VerificationResult) float64 {
	return func(r *model.VerificationResult) float64 {
		if v, ok := r.AIDetection.Breakdown[key]; ok {
			return v
		}
		return NeutralScore
	}
}

// Detect scores standalone text. The text is scored as a response with no
// source content, so irreducibility falls back to unconditional perplexity.
func (e *Engine) Detect(ctx context.Context, text string) (*model.Detection, error) {
	v, err := e.Verify(ctx, &model.VerificationRequest{
		Response: text,
		Prompt:   DetectPrompt,
	})
	if err != nil {
		return nil, err
	}
	return detection(v), nil
}

// detection weighs the indicators into a human-likelihood score. Confidence
// is how closely the indicators agree: one minus their standard deviation.
func detection(v *model.Verification) *model.Detection {
	d := &model.Detection{
		RequestID: v.RequestID,
		CacheHit:  v.CacheHit,
		Analysis:  make(map[string]model.Signal, len(indicators)),
		Result:    v.Result,
	}

	values := make([]float64, len(indicators))
	var score float64
	for i, ind := range indicators {
		values[i] = ind.value(v.Result)
		score += ind.weight * values[i]
		d.Analysis[ind.name] = model.Signal{
			Score:          round3(values[i]),
			Interpretation: ind.interpret(values[i]),
		}
	}

	d.Score = round3(score)
	d.Confidence = round3(1 - math.Min(1, stddev(values)))
	return d
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func interpretPerplexity(v float64) string {
	switch {
	case v > 0.8:
		return "highly unpredictable, reads as human"
	case v > 0.6:
		return "moderate variation, likely human"
	case v > 0.4:
		return "low variation, possibly AI"
	default:
		return "very predictable, likely AI"
	}
}

func interpretCoherence(v float64) string {
	switch {
	case v > 0.8:
		return "natural logical flow"
	case v > 0.6:
		return "good coherence"
	case v > 0.4:
		return "moderate coherence"
	default:
		return "disconnected or over-polished flow"
	}
}

func interpretBurstiness(v float64) string {
	switch {
	case v > 0.7:
		return "sentence complexity varies like human writing"
	case v > 0.5:
		return "some variation in sentence complexity"
	case v > 0.3:
		return "little variation, possibly AI"
	default:
		return "uniform sentence complexity, likely AI"
	}
}

func interpretOriginality(v float64) string {
	switch {
	case v > 0.7:
		return "highly original phrasing"
	case v > 0.5:
		return "mostly original"
	case v > 0.3:
		return "some common phrasing"
	default:
		return "mostly stock phrasing"
	}
}

func interpretVoice(v float64) string {
	switch {
	case v > 0.7:
		return "strong personal perspective"
	case v > 0.5:
		return "some personal voice"
	case v > 0.3:
		return "weak personal voice"
	default:
		return "no personal perspective, likely AI"
	}
}

func interpretPatterns(v float64) string {
	switch {
	case v > 0.7:
		return "few AI phrases"
	case v > 0.5:
		return "some AI-like phrasing"
	case v > 0.3:
		return "many AI phrases"
	default:
		return "strong AI phrasing signature"
	}
}
