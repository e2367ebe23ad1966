package scorer

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/textstat"
	"github.com/sells-group/aid/pkg/causallm"
)

const minPerplexityTokens = 3

// Perplexity scores irreducibility: how much of the response the source
// content fails to explain, measured as the ratio of the response's
// perplexity with and without the content as context.
type Perplexity struct {
	lm causallm.Model
}

// NewPerplexity creates the irreducibility scorer.
func NewPerplexity(lm causallm.Model) *Perplexity {
	return &Perplexity{lm: lm}
}

// Name implements Scorer.
func (p *Perplexity) Name() model.Dimension { return model.DimensionIrreducibility }

// Score implements Scorer. Provider errors are returned for the caller to
// substitute a degraded value.
func (p *Perplexity) Score(ctx context.Context, in *Input) (model.ScoreResult, error) {
	uncond, err := p.lm.LogLikelihood(ctx, in.Response, "")
	if err != nil {
		return model.ScoreResult{}, eris.Wrap(err, "perplexity: unconditional likelihood")
	}

	pu := uncond.Perplexity()
	if uncond.Tokens < minPerplexityTokens || !finitePositive(pu) {
		return model.ScoreResult{Value: 0, Interpretation: "insufficient text"}, nil
	}
	aiLikelihood := perplexityBand(pu)

	if !in.HasContent() {
		v := textstat.Clamp01((math.Log(pu) - math.Log(10)) / (math.Log(100) - math.Log(10)))
		return model.ScoreResult{
			Value: v,
			Interpretation: fmt.Sprintf(
				"no source content; scored from unconditional perplexity %.1f", pu),
			Breakdown: map[string]float64{
				"ratio_score":   round4(v),
				"ai_likelihood": aiLikelihood,
			},
		}, nil
	}

	cond, err := p.lm.LogLikelihood(ctx, in.Response, in.Content)
	if err != nil {
		return model.ScoreResult{}, eris.Wrap(err, "perplexity: conditional likelihood")
	}
	pc := cond.Perplexity()
	if cond.Tokens == 0 || !finitePositive(pc) {
		return model.ScoreResult{Value: 0, Interpretation: "insufficient text"}, nil
	}

	ratio := pc / pu
	v := RatioScore(ratio)
	return model.ScoreResult{
		Value:          v,
		Interpretation: interpretRatio(ratio),
		Breakdown: map[string]float64{
			"ratio_score":   round4(v),
			"ai_likelihood": aiLikelihood,
		},
	}, nil
}

// RatioScore maps a conditional/unconditional perplexity ratio onto [0,1].
// A ratio of 0.3 or less means the content explains the response; 1.5 or
// more means the content makes the response harder to predict.
func RatioScore(ratio float64) float64 {
	return textstat.Clamp01((ratio - 0.3) / 1.2)
}

func interpretRatio(ratio float64) string {
	switch {
	case ratio < 0.5:
		return fmt.Sprintf("largely restates the source content (perplexity ratio %.2f)", ratio)
	case ratio < 0.9:
		return fmt.Sprintf("partly derived from the source content (perplexity ratio %.2f)", ratio)
	default:
		return fmt.Sprintf("adds information beyond the source content (perplexity ratio %.2f)", ratio)
	}
}

// perplexityBand is the human-likelihood implied by raw perplexity: model
// text tends to be low and uniform.
func perplexityBand(pu float64) float64 {
	switch {
	case pu < 20:
		return 0.15
	case pu < 30:
		return 0.35
	case pu < 45:
		return 0.55
	case pu < 65:
		return 0.75
	default:
		return 0.90
	}
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
