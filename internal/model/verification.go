package model

import (
	"math"
	"time"
)

// Dimension names one axis of the verification score.
type Dimension string

const (
	DimensionRelevance      Dimension = "relevance"
	DimensionIrreducibility Dimension = "irreducibility"
	DimensionAIDetection    Dimension = "ai_detection"
	DimensionNovelty        Dimension = "novelty"
	DimensionCoherence      Dimension = "coherence"
	DimensionEffort         Dimension = "effort"
)

// Dimensions lists every dimension in reporting order.
var Dimensions = []Dimension{
	DimensionRelevance,
	DimensionIrreducibility,
	DimensionAIDetection,
	DimensionNovelty,
	DimensionCoherence,
	DimensionEffort,
}

// Metadata carries behavioral signals captured by the calling application.
type Metadata struct {
	ElapsedSeconds *float64   `json:"elapsed_seconds,omitempty"`
	RevisionCount  *int       `json:"revision_count,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

// Elapsed returns the time spent on the response. When only StartedAt is
// known it is measured against now.
func (m *Metadata) Elapsed(now time.Time) (float64, bool) {
	if m == nil {
		return 0, false
	}
	if m.ElapsedSeconds != nil && *m.ElapsedSeconds >= 0 {
		return *m.ElapsedSeconds, true
	}
	if m.StartedAt != nil && !m.StartedAt.IsZero() && now.After(*m.StartedAt) {
		return now.Sub(*m.StartedAt).Seconds(), true
	}
	return 0, false
}

// Revisions returns the recorded revision count, if any.
func (m *Metadata) Revisions() (int, bool) {
	if m == nil || m.RevisionCount == nil || *m.RevisionCount < 0 {
		return 0, false
	}
	return *m.RevisionCount, true
}

// VerificationRequest is a single submission to verify.
type VerificationRequest struct {
	Response          string             `json:"response"`
	Content           string             `json:"content,omitempty"`
	Prompt            string             `json:"prompt,omitempty"`
	Metadata          *Metadata          `json:"metadata,omitempty"`
	ExistingResponses []string           `json:"existing_responses,omitempty"`
	CustomThresholds  map[string]float64 `json:"custom_thresholds,omitempty"`
}

// ScoreResult is the outcome of one scorer.
type ScoreResult struct {
	Value          float64            `json:"value"`
	Interpretation string             `json:"interpretation"`
	Breakdown      map[string]float64 `json:"breakdown,omitempty"`
	// Degraded marks a neutral value substituted for a failed scorer.
	Degraded bool `json:"degraded,omitempty"`
}

// Valid reports whether the value and every breakdown entry lie in [0,1].
func (s ScoreResult) Valid() bool {
	if !inUnit(s.Value) {
		return false
	}
	for _, v := range s.Breakdown {
		if !inUnit(v) {
			return false
		}
	}
	return true
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// VerificationResult is the immutable outcome of scoring one fingerprint.
// It is the unit stored in the result cache.
type VerificationResult struct {
	Relevance      ScoreResult `json:"relevance"`
	Irreducibility ScoreResult `json:"irreducibility"`
	AIDetection    ScoreResult `json:"ai_detection"`
	Novelty        ScoreResult `json:"novelty"`
	Coherence      ScoreResult `json:"coherence"`
	Effort         ScoreResult `json:"effort"`

	CombinedScore     float64           `json:"combined_score"`
	Passed            bool              `json:"passed"`
	FeedbackSummary   string            `json:"feedback_summary"`
	FeedbackDetails   []string          `json:"feedback_details"`
	ThresholdsApplied Thresholds        `json:"thresholds_applied"`
	Fingerprint       string            `json:"fingerprint"`
	ModelVersions     map[string]string `json:"model_versions"`
	ProcessingTimeMs  int64             `json:"processing_time_ms"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Score returns the result for a dimension.
func (r *VerificationResult) Score(d Dimension) ScoreResult {
	switch d {
	case DimensionRelevance:
		return r.Relevance
	case DimensionIrreducibility:
		return r.Irreducibility
	case DimensionAIDetection:
		return r.AIDetection
	case DimensionNovelty:
		return r.Novelty
	case DimensionCoherence:
		return r.Coherence
	case DimensionEffort:
		return r.Effort
	}
	return ScoreResult{}
}

// SetScore stores the result for a dimension.
func (r *VerificationResult) SetScore(d Dimension, s ScoreResult) {
	switch d {
	case DimensionRelevance:
		r.Relevance = s
	case DimensionIrreducibility:
		r.Irreducibility = s
	case DimensionAIDetection:
		r.AIDetection = s
	case DimensionNovelty:
		r.Novelty = s
	case DimensionCoherence:
		r.Coherence = s
	case DimensionEffort:
		r.Effort = s
	}
}

// DegradedDimensions lists dimensions whose value is a substituted default.
func (r *VerificationResult) DegradedDimensions() []Dimension {
	var out []Dimension
	for _, d := range Dimensions {
		if r.Score(d).Degraded {
			out = append(out, d)
		}
	}
	return out
}

// Verification is the per-call envelope around a (possibly cached) result.
type Verification struct {
	RequestID string              `json:"request_id"`
	CacheHit  bool                `json:"cache_hit"`
	Result    *VerificationResult `json:"result"`
}

// Signal is one detection indicator with a human-readable reading.
type Signal struct {
	Score          float64 `json:"score"`
	Interpretation string  `json:"interpretation"`
}

// Detection is the answer for standalone text. Score runs from 0 (machine
// written) to 1 (human written); pass/fail on Result does not apply to it.
type Detection struct {
	RequestID  string              `json:"request_id"`
	CacheHit   bool                `json:"cache_hit"`
	Score      float64             `json:"score"`
	Confidence float64             `json:"confidence"`
	Analysis   map[string]Signal   `json:"analysis"`
	Result     *VerificationResult `json:"result"`
}
