package scorer

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/textstat"
	"github.com/sells-group/aid/pkg/embedding"
)

// Coherence scores structural and linguistic quality of the response.
type Coherence struct {
	emb  embedding.Embedder
	lex  Lexicon
	opts Options
}

// NewCoherence creates the coherence scorer.
func NewCoherence(emb embedding.Embedder, lex Lexicon, opts Options) *Coherence {
	return &Coherence{emb: emb, lex: lex, opts: opts}
}

// Name implements Scorer.
func (c *Coherence) Name() model.Dimension { return model.DimensionCoherence }

// Score implements Scorer.
func (c *Coherence) Score(ctx context.Context, in *Input) (model.ScoreResult, error) {
	semantic := 0.7
	if sentences := in.substantiveSentences(); len(sentences) >= 2 {
		vecs, err := embedAll(ctx, c.emb, sentences)
		if err != nil {
			return model.ScoreResult{}, eris.Wrap(err, "coherence: embed")
		}
		sims := make([]float64, 0, len(vecs)-1)
		for i := 0; i+1 < len(vecs); i++ {
			sims = append(sims, Calibrate(embedding.Cosine(vecs[i], vecs[i+1])))
		}
		semantic = textstat.Mean(sims)
	}

	v, breakdown := combine([]component{
		{"structure", 0.20, c.structure(in.Sentences)},
		{"flow", 0.20, c.flow(in)},
		{"completeness", 0.20, c.completeness(in)},
		{"semantic", 0.25, semantic},
		{"length", 0.15, c.length(len(in.Words))},
	})
	return model.ScoreResult{
		Value:          v,
		Interpretation: interpretCoherence(v),
		Breakdown:      breakdown,
	}, nil
}

// structure rewards moderate sentence lengths with natural variation in
// both length and clause count.
func (c *Coherence) structure(sentences []string) float64 {
	if len(sentences) < 2 {
		return 0.5
	}
	lengths := textstat.SentenceLengths(sentences)
	mean := textstat.Mean(lengths)

	var lengthScore float64
	switch {
	case mean < 5:
		lengthScore = 0.4
	case mean <= 20:
		lengthScore = 0.9
	default:
		lengthScore = 0.7
	}

	variance := math.Min(textstat.StdDev(lengths)/(mean+1)/0.4, 1)

	clauses := make(map[int]struct{})
	for _, s := range sentences {
		n := 1 + strings.Count(s, ",") + strings.Count(s, ";") + textstat.CountPhrases(s, c.lex.Subordinators)
		clauses[n] = struct{}{}
	}
	diversity := math.Min(float64(len(clauses))/3, 1)

	return 0.4*lengthScore + 0.4*variance + 0.2*diversity
}

// flow compares distinct logical connectors against roughly one per 40
// words.
func (c *Coherence) flow(in *Input) float64 {
	present := 0
	for _, conn := range c.lex.Connectors {
		if textstat.CountPhrases(in.Response, []string{conn}) > 0 {
			present++
		}
	}
	expected := math.Max(float64(len(in.Words))/40, 1)
	ratio := float64(present) / expected

	switch {
	case ratio < 0.3:
		return 0.4
	case ratio < 0.7:
		return 0.65
	case ratio <= 1.5:
		return 0.9
	default:
		return 0.7
	}
}

// completeness penalizes responses that stop mid-sentence.
func (c *Coherence) completeness(in *Input) float64 {
	text := strings.TrimRightFunc(in.Response, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"' || r == '\'' || r == ')' || r == '”' || r == '’'
	})
	if text == "" || len(in.Words) == 0 {
		return 0
	}

	var score float64
	switch last := []rune(text)[len([]rune(text))-1]; last {
	case '.', '!', '?', '…':
		score = 1.0
	case ',', ';', ':':
		score = 0.4
	default:
		score = 0.6
	}

	lastWord := in.Words[len(in.Words)-1]
	for _, w := range c.lex.TruncationWords {
		if lastWord == textstat.Normalize(w) {
			score *= 0.5
			break
		}
	}
	return score
}

// length is 1 inside [MinWords, MaxWords] and falls off by the same ratio
// on either side, floored at 0.2.
func (c *Coherence) length(words int) float64 {
	minW, maxW := float64(c.opts.MinWords), float64(c.opts.MaxWords)
	w := float64(words)
	switch {
	case w == 0:
		return 0.2
	case minW > 0 && w < minW:
		return math.Max(0.2, w/minW)
	case maxW > 0 && w > maxW:
		return math.Max(0.2, maxW/w)
	default:
		return 1
	}
}

func interpretCoherence(v float64) string {
	switch {
	case v >= 0.7:
		return "well structured and complete"
	case v >= 0.5:
		return "readable with some structural issues"
	default:
		return "fragmented or incomplete"
	}
}
