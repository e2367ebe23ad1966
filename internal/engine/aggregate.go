package engine

import (
	"math"

	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/textstat"
)

// epsilon keeps ln defined for zero scores.
const epsilon = 1e-6

// geometricMean combines the six dimension values as a weighted geometric
// mean. A dimension at zero with positive weight pulls the result to near
// zero; zero-weight dimensions are ignored.
func geometricMean(r *model.VerificationResult, w model.Weights) float64 {
	var num, den float64
	for _, d := range model.Dimensions {
		wt := w.For(d)
		if wt <= 0 {
			continue
		}
		num += wt * math.Log(r.Score(d).Value+epsilon)
		den += wt
	}
	if den == 0 {
		return 0
	}
	return textstat.Clamp01(math.Exp(num/den) - epsilon)
}

// gated lists the dimensions that must each meet their minimum.
var gated = []model.Dimension{
	model.DimensionRelevance,
	model.DimensionIrreducibility,
	model.DimensionNovelty,
	model.DimensionCoherence,
}

// passes applies the inclusive threshold contract. The AI-detection
// minimum only gates when enforceAI is set.
func passes(r *model.VerificationResult, t model.Thresholds, enforceAI bool) bool {
	if r.CombinedScore < t.MinCombined {
		return false
	}
	for _, d := range gated {
		if floor, _ := t.Min(d); r.Score(d).Value < floor {
			return false
		}
	}
	if enforceAI && r.AIDetection.Value < t.MinAIDetection {
		return false
	}
	return true
}
