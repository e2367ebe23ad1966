package scorer

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/textstat"
	"github.com/sells-group/aid/pkg/embedding"
)

// Relevance scores how directly the response engages with the content and
// prompt.
type Relevance struct {
	emb embedding.Embedder
}

// NewRelevance creates the relevance scorer.
func NewRelevance(emb embedding.Embedder) *Relevance {
	return &Relevance{emb: emb}
}

// Name implements Scorer.
func (r *Relevance) Name() model.Dimension { return model.DimensionRelevance }

// Score implements Scorer.
func (r *Relevance) Score(ctx context.Context, in *Input) (model.ScoreResult, error) {
	sentences := in.substantiveSentences()

	texts := []string{in.Response}
	contentIdx, promptIdx := -1, -1
	if in.HasContent() {
		contentIdx = len(texts)
		texts = append(texts, in.Content)
	}
	if in.HasPrompt() {
		promptIdx = len(texts)
		texts = append(texts, in.Prompt)
	}
	sentStart := len(texts)
	if len(sentences) >= 2 {
		texts = append(texts, sentences...)
	}

	vecs, err := embedAll(ctx, r.emb, texts)
	if err != nil {
		return model.ScoreResult{}, eris.Wrap(err, "relevance: embed")
	}

	var parts []component
	if contentIdx >= 0 {
		parts = append(parts, component{"content_similarity", 0.35, Calibrate(embedding.Cosine(vecs[0], vecs[contentIdx]))})
	}
	if promptIdx >= 0 {
		parts = append(parts, component{"prompt_similarity", 0.30, Calibrate(embedding.Cosine(vecs[0], vecs[promptIdx]))})
	}
	if contentIdx >= 0 || promptIdx >= 0 {
		parts = append(parts, component{"keyword_overlap", 0.20, keywordOverlap(in)})
	}

	anchor := vecs[0]
	switch {
	case contentIdx >= 0:
		anchor = vecs[contentIdx]
	case promptIdx >= 0:
		anchor = vecs[promptIdx]
	}
	topic := 0.7
	if len(sentences) >= 2 {
		topic = topicCoherence(anchor, vecs[sentStart:])
	}
	parts = append(parts, component{"topic_coherence", 0.15, topic})

	v, breakdown := combine(parts)
	return model.ScoreResult{
		Value:          v,
		Interpretation: interpretRelevance(v),
		Breakdown:      breakdown,
	}, nil
}

// keywordOverlap is the overlap coefficient between response keywords and
// source keywords, saturating at 0.5.
func keywordOverlap(in *Input) float64 {
	resp := textstat.Keywords(in.Response)
	source := textstat.Keywords(in.Content)
	for k := range textstat.Keywords(in.Prompt) {
		source[k] = struct{}{}
	}
	smaller := math.Min(float64(len(resp)), float64(len(source)))
	if smaller == 0 {
		return 0
	}
	coef := float64(textstat.Intersect(resp, source)) / smaller
	return math.Min(coef/0.5, 1)
}

// topicCoherence rewards responses whose every sentence stays close to the
// anchor text: 0.6 of the mean plus 0.4 of the weakest sentence.
func topicCoherence(anchor []float64, sentences [][]float64) float64 {
	sims := make([]float64, len(sentences))
	lowest := 1.0
	for i, s := range sentences {
		sims[i] = Calibrate(embedding.Cosine(anchor, s))
		lowest = math.Min(lowest, sims[i])
	}
	return 0.6*textstat.Mean(sims) + 0.4*lowest
}

func interpretRelevance(v float64) string {
	switch {
	case v >= 0.7:
		return "engages directly with the topic"
	case v >= 0.5:
		return "partially on topic"
	default:
		return "off-topic or generic"
	}
}
