package scorer

import (
	"context"
	"strings"

	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/textstat"
)

// AIPattern scores how human the response reads using stock-phrase usage,
// sentence-length burstiness and personality markers. Higher is more
// human-like.
type AIPattern struct {
	lex Lexicon
}

// NewAIPattern creates the AI-pattern detector.
func NewAIPattern(lex Lexicon) *AIPattern {
	return &AIPattern{lex: lex}
}

// Name implements Scorer.
func (a *AIPattern) Name() model.Dimension { return model.DimensionAIDetection }

// Score implements Scorer. It never fails.
func (a *AIPattern) Score(_ context.Context, in *Input) (model.ScoreResult, error) {
	v, breakdown := combine([]component{
		{"stock_phrases", 0.40, a.phrases(in)},
		{"burstiness", 0.35, burstiness(in.Sentences)},
		{"personality", 0.25, a.personality(in)},
	})
	return model.ScoreResult{
		Value:          v,
		Interpretation: interpretAI(v),
		Breakdown:      breakdown,
	}, nil
}

func per100(count float64, words int) float64 {
	if words == 0 {
		return 0
	}
	return count / float64(words) * 100
}

// phrases blends the absence of AI stock phrases with the presence of
// human conversational markers.
func (a *AIPattern) phrases(in *Input) float64 {
	aiDensity := per100(float64(textstat.CountPhrases(in.Response, a.lex.AIPhrases)), len(in.Words))
	humanDensity := per100(float64(textstat.CountPhrases(in.Response, a.lex.HumanMarkers)), len(in.Words))

	ai := 0.85
	switch {
	case aiDensity > 4:
		ai = 0.25
	case aiDensity > 2:
		ai = 0.5
	}
	human := band(humanDensity, []float64{2, 0.5}, []float64{0.9, 0.7}, 0.5)
	return 0.5*ai + 0.5*human
}

// burstiness maps the coefficient of variation of sentence lengths onto
// reference bands. Model text tends to keep sentences uniform.
func burstiness(sentences []string) float64 {
	var lengths []float64
	for _, l := range textstat.SentenceLengths(sentences) {
		if l >= 2 {
			lengths = append(lengths, l)
		}
	}
	if len(lengths) < 3 {
		return 0.6
	}
	return band(textstat.CV(lengths), []float64{0.5, 0.35, 0.2}, []float64{0.9, 0.7, 0.5}, 0.3)
}

// personality counts exclamations, ellipses, parentheticals, questions,
// contractions and casual hedges per 100 words.
func (a *AIPattern) personality(in *Input) float64 {
	contractions := 0
	for _, w := range in.Words {
		if strings.Contains(w, "'") {
			contractions++
		}
	}
	markers := float64(strings.Count(in.Response, "!")) +
		2*float64(strings.Count(in.Response, "...")+strings.Count(in.Response, "…")) +
		float64(strings.Count(in.Response, "(")) +
		0.5*float64(strings.Count(in.Response, "?")) +
		0.5*float64(contractions+textstat.CountPhrases(in.Response, a.lex.CasualHedges))

	return band(per100(markers, len(in.Words)), []float64{2.5, 1, 0.3}, []float64{0.9, 0.7, 0.55}, 0.4)
}

func interpretAI(v float64) string {
	switch {
	case v >= 0.75:
		return "likely human"
	case v >= 0.55:
		return "uncertain"
	default:
		return "possibly AI-generated"
	}
}
