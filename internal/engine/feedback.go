package engine

import (
	"sort"

	"github.com/sells-group/aid/internal/model"
)

const (
	passedSummary = "Response verified successfully!"
	failedPrefix  = "Verification failed: "
)

var hints = map[model.Dimension]string{
	model.DimensionRelevance:      "Engage more directly with the content",
	model.DimensionIrreducibility: "Add more personal perspective beyond summarizing",
	model.DimensionNovelty:        "Make your response more unique and specific",
	model.DimensionCoherence:      "Improve response structure and clarity",
	model.DimensionAIDetection:    "Response shows AI-like patterns",
}

const combinedHint = "Overall quality is below the required level"

type hint struct {
	score float64
	text  string
}

// feedback builds the summary and the ordered hints, weakest first. An AI
// hint is always reported when below its minimum, even when advisory.
func feedback(r *model.VerificationResult, t model.Thresholds) (string, []string) {
	var hs []hint
	for _, d := range gated {
		floor, _ := t.Min(d)
		if s := r.Score(d).Value; s < floor {
			hs = append(hs, hint{score: s, text: hints[d]})
		}
	}
	if s := r.AIDetection.Value; s < t.MinAIDetection {
		hs = append(hs, hint{score: s, text: hints[model.DimensionAIDetection]})
	}
	if !r.Passed && len(hs) == 0 {
		hs = append(hs, hint{score: r.CombinedScore, text: combinedHint})
	}
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].score < hs[j].score })

	details := make([]string, len(hs))
	for i, h := range hs {
		details[i] = h.text
	}

	if r.Passed {
		return passedSummary, details
	}
	return failedPrefix + details[0], details
}
