package scorer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/textstat"
)

const (
	readingWPM   = 200
	writingWPM   = 35
	charsPerWord = 5
)

// Effort estimates the cognitive investment behind a response from
// behavioral metadata and the text's own complexity.
type Effort struct {
	lex Lexicon
}

// NewEffort creates the effort estimator.
func NewEffort(lex Lexicon) *Effort {
	return &Effort{lex: lex}
}

// Name implements Scorer.
func (e *Effort) Name() model.Dimension { return model.DimensionEffort }

// Score implements Scorer. It never fails.
func (e *Effort) Score(_ context.Context, in *Input) (model.ScoreResult, error) {
	complexity := e.complexity(in)
	responseChars := utf8.RuneCountInString(in.Response)

	elapsed, hasTime := in.Metadata.Elapsed(in.Now)
	hasTime = hasTime && elapsed > 0
	revisions, hasRevisions := in.Metadata.Revisions()

	var parts []component
	var signals []string
	switch {
	case hasTime && hasRevisions:
		parts = []component{
			{"time", 0.40, timeScore(elapsed, responseChars, utf8.RuneCountInString(in.Content))},
			{"complexity", 0.35, complexity},
			{"revisions", 0.25, revisionScore(revisions, responseChars)},
		}
		signals = []string{"time", "complexity", "revisions"}
	case hasTime:
		parts = []component{
			{"time", 0.55, timeScore(elapsed, responseChars, utf8.RuneCountInString(in.Content))},
			{"complexity", 0.45, complexity},
		}
		signals = []string{"time", "complexity"}
	case hasRevisions:
		parts = []component{
			{"complexity", 0.70, complexity},
			{"revisions", 0.30, revisionScore(revisions, responseChars)},
		}
		signals = []string{"complexity", "revisions"}
	default:
		parts = []component{{"complexity", 1, complexity}}
		signals = []string{"complexity"}
	}

	v, breakdown := combine(parts)
	return model.ScoreResult{
		Value:          v,
		Interpretation: fmt.Sprintf("%s (from %s)", interpretEffort(v), strings.Join(signals, ", ")),
		Breakdown:      breakdown,
	}, nil
}

// timeScore compares time spent against reading the content at 200 wpm
// plus writing the response at 35 wpm.
func timeScore(elapsed float64, responseChars, contentChars int) float64 {
	read := float64(contentChars) / charsPerWord / readingWPM * 60
	write := float64(responseChars) / charsPerWord / writingWPM * 60
	ratio := elapsed / math.Max(read+write, 1)

	switch {
	case ratio < 0.25:
		return 0.2
	case ratio < 0.5:
		return 0.45
	case ratio < 1.5:
		return 0.9
	case ratio < 3:
		return 0.75
	default:
		return 0.5
	}
}

// revisionScore expects about one revision per 400 characters; far more
// than that earns less credit.
func revisionScore(revisions, responseChars int) float64 {
	expected := float64(responseChars) / 400
	r := float64(revisions)
	switch {
	case revisions == 0:
		return 0.6
	case r <= math.Max(expected*2, 1):
		return 0.9
	case r <= math.Max(expected*5, 3):
		return 0.7
	default:
		return 0.5
	}
}

// complexity blends vocabulary rarity relative to the content, the share
// of long words and subordinate-clause density.
func (e *Effort) complexity(in *Input) float64 {
	if len(in.Words) == 0 {
		return 0
	}

	contentWords := textstat.Set(textstat.Words(in.Content)...)
	vocab := textstat.Set(in.Words...)
	rare := 0
	for w := range vocab {
		if _, seen := contentWords[w]; !seen && !textstat.IsStopword(w) {
			rare++
		}
	}
	rarity := math.Min(float64(rare)/float64(len(vocab))*2, 1)

	long := 0
	for _, w := range in.Words {
		if utf8.RuneCountInString(w) > 8 {
			long++
		}
	}
	longRatio := math.Min(float64(long)/float64(len(in.Words))*10, 1)

	clauses := strings.Count(in.Response, ",") + strings.Count(in.Response, ";") +
		textstat.CountPhrases(in.Response, e.lex.Subordinators)
	density := math.Min(float64(clauses)/math.Max(float64(len(in.Sentences)), 1)/2, 1)

	return 0.4*rarity + 0.3*longRatio + 0.3*density
}

func interpretEffort(v float64) string {
	switch {
	case v >= 0.7:
		return "substantial effort"
	case v >= 0.45:
		return "moderate effort"
	default:
		return "minimal effort"
	}
}
