package model

import (
	"maps"
	"math"
	"slices"

	"github.com/rotisserie/eris"
)

// Threshold override names.
const (
	ThresholdMinRelevance      = "min_relevance"
	ThresholdMinIrreducibility = "min_irreducibility"
	ThresholdMinAIDetection    = "min_ai_detection"
	ThresholdMinNovelty        = "min_novelty"
	ThresholdMinCoherence      = "min_coherence"
	ThresholdMinCombined       = "min_combined"
)

// Thresholds holds the pass/fail minima applied to a verification.
type Thresholds struct {
	MinRelevance      float64 `json:"min_relevance" yaml:"min_relevance"`
	MinIrreducibility float64 `json:"min_irreducibility" yaml:"min_irreducibility"`
	MinAIDetection    float64 `json:"min_ai_detection" yaml:"min_ai_detection"`
	MinNovelty        float64 `json:"min_novelty" yaml:"min_novelty"`
	MinCoherence      float64 `json:"min_coherence" yaml:"min_coherence"`
	MinCombined       float64 `json:"min_combined" yaml:"min_combined"`
}

// WithOverrides returns a copy with the named thresholds replaced. The
// receiver is never modified.
func (t Thresholds) WithOverrides(overrides map[string]float64) (Thresholds, error) {
	out := t
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		v := overrides[name]
		if math.IsNaN(v) || v < 0 || v > 1 {
			return t, eris.Errorf("model: threshold %s must be in [0,1], got %v", name, v)
		}
		switch name {
		case ThresholdMinRelevance:
			out.MinRelevance = v
		case ThresholdMinIrreducibility:
			out.MinIrreducibility = v
		case ThresholdMinAIDetection:
			out.MinAIDetection = v
		case ThresholdMinNovelty:
			out.MinNovelty = v
		case ThresholdMinCoherence:
			out.MinCoherence = v
		case ThresholdMinCombined:
			out.MinCombined = v
		default:
			return t, eris.Errorf("model: unknown threshold %q", name)
		}
	}
	return out, nil
}

// Min returns the minimum for a dimension. Effort has none.
func (t Thresholds) Min(d Dimension) (float64, bool) {
	switch d {
	case DimensionRelevance:
		return t.MinRelevance, true
	case DimensionIrreducibility:
		return t.MinIrreducibility, true
	case DimensionAIDetection:
		return t.MinAIDetection, true
	case DimensionNovelty:
		return t.MinNovelty, true
	case DimensionCoherence:
		return t.MinCoherence, true
	}
	return 0, false
}

// Weights holds the per-dimension aggregation weights.
type Weights struct {
	Relevance      float64 `json:"relevance" yaml:"relevance"`
	Irreducibility float64 `json:"irreducibility" yaml:"irreducibility"`
	AIDetection    float64 `json:"ai_detection" yaml:"ai_detection"`
	Novelty        float64 `json:"novelty" yaml:"novelty"`
	Coherence      float64 `json:"coherence" yaml:"coherence"`
	Effort         float64 `json:"effort" yaml:"effort"`
}

// For returns the weight of a dimension.
func (w Weights) For(d Dimension) float64 {
	switch d {
	case DimensionRelevance:
		return w.Relevance
	case DimensionIrreducibility:
		return w.Irreducibility
	case DimensionAIDetection:
		return w.AIDetection
	case DimensionNovelty:
		return w.Novelty
	case DimensionCoherence:
		return w.Coherence
	case DimensionEffort:
		return w.Effort
	}
	return 0
}
