package scorer

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/textstat"
	"github.com/sells-group/aid/pkg/embedding"
)

// NeutralCorpusNovelty is the corpus sub-score when there is nothing to
// compare against.
const NeutralCorpusNovelty = 0.5

// Novelty scores how much the response differs from the source content and
// from earlier responses, and how personal and specific it is.
type Novelty struct {
	emb embedding.Embedder
	lex Lexicon
}

// NewNovelty creates the novelty scorer.
func NewNovelty(emb embedding.Embedder, lex Lexicon) *Novelty {
	return &Novelty{emb: emb, lex: lex}
}

// Name implements Scorer.
func (n *Novelty) Name() model.Dimension { return model.DimensionNovelty }

// Score implements Scorer.
func (n *Novelty) Score(ctx context.Context, in *Input) (model.ScoreResult, error) {
	texts := []string{in.Response}
	if in.HasContent() {
		texts = append(texts, in.Content)
	}
	corpusStart := len(texts)
	texts = append(texts, in.Corpus...)

	vecs, err := embedAll(ctx, n.emb, texts)
	if err != nil {
		return model.ScoreResult{}, eris.Wrap(err, "novelty: embed")
	}

	distance := 0.7
	if in.HasContent() {
		distance = contentDistance(embedding.Cosine(vecs[0], vecs[1]), in.Words, textstat.Words(in.Content))
	}

	corpus := NeutralCorpusNovelty
	if len(in.Corpus) > 0 {
		maxSim := 0.0
		for _, v := range vecs[corpusStart:] {
			maxSim = math.Max(maxSim, embedding.Cosine(vecs[0], v))
		}
		corpus = 1 - maxSim
	}

	v, breakdown := combine([]component{
		{"content_distance", 0.30, distance},
		{"corpus_novelty", 0.30, corpus},
		{"personalization", 0.25, n.personalization(in)},
		{"anti_template", 0.15, n.antiTemplate(in.Response)},
	})
	return model.ScoreResult{
		Value:          v,
		Interpretation: interpretNovelty(v),
		Breakdown:      breakdown,
	}, nil
}

// contentDistance prefers moderate similarity to the source: related but
// not a paraphrase. Copied trigrams reduce it further.
func contentDistance(cos float64, response, content []string) float64 {
	score := band(cos, []float64{0.85, 0.7, 0.4}, []float64{0.2, 0.5, 0.85}, 0.6)
	overlap := textstat.Overlap(textstat.Trigrams(response), textstat.Trigrams(content))
	return score * (1 - 0.5*overlap)
}

func (n *Novelty) personalization(in *Input) float64 {
	if len(in.Words) < 10 {
		return 0.3
	}
	personal := textstat.CountPhrases(in.Response, n.lex.PersonalMarkers)
	specific := textstat.CountPhrases(in.Response, n.lex.SpecificityMarkers)

	v := 0.5*math.Min(float64(personal)/3, 1) + 0.5*math.Min(float64(specific)/2, 1)
	if personal >= 2 && specific >= 1 {
		v += 0.2
	}
	return textstat.Clamp01(v)
}

func (n *Novelty) antiTemplate(response string) float64 {
	switch textstat.CountPhrases(response, n.lex.TemplatePhrases) {
	case 0:
		return 1.0
	case 1:
		return 0.85
	case 2:
		return 0.7
	default:
		return 0.5
	}
}

func interpretNovelty(v float64) string {
	switch {
	case v >= 0.7:
		return "original and personal"
	case v >= 0.55:
		return "somewhat original"
	default:
		return "derivative or generic"
	}
}
