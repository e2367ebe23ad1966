// Package scorer implements the six verification dimensions: relevance,
// irreducibility, AI-pattern detection, novelty, coherence and effort.
package scorer

import (
	"context"
	"math"
	"time"

	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/textstat"
	"github.com/sells-group/aid/pkg/causallm"
	"github.com/sells-group/aid/pkg/embedding"
)

// Scorer computes one dimension of a verification.
type Scorer interface {
	Name() model.Dimension
	Score(ctx context.Context, in *Input) (model.ScoreResult, error)
}

// Options holds the limits shared by all scorers.
type Options struct {
	MinWords          int
	MaxWords          int
	MaxCorpus         int
	MaxResponseTokens int
	MaxContentTokens  int
}

// DefaultOptions returns the limits used when none are configured.
func DefaultOptions() Options {
	return Options{
		MinWords:          30,
		MaxWords:          400,
		MaxCorpus:         100,
		MaxResponseTokens: 1024,
		MaxContentTokens:  2048,
	}
}

// Input is the read-only view of one request shared by concurrent scorers.
type Input struct {
	Response string
	Content  string
	Prompt   string
	Corpus   []string
	Metadata *model.Metadata
	Now      time.Time

	// Words and Sentences are derived from Response.
	Words     []string
	Sentences []string
}

// NewInput truncates the request texts to the configured limits, keeps the
// most recent MaxCorpus corpus entries and splits the response.
func NewInput(req *model.VerificationRequest, opts Options, now time.Time) *Input {
	in := &Input{
		Response: textstat.Truncate(req.Response, opts.MaxResponseTokens),
		Content:  textstat.Truncate(req.Content, opts.MaxContentTokens),
		Prompt:   textstat.Truncate(req.Prompt, opts.MaxContentTokens),
		Metadata: req.Metadata,
		Now:      now,
	}

	corpus := req.ExistingResponses
	if opts.MaxCorpus > 0 && len(corpus) > opts.MaxCorpus {
		corpus = corpus[len(corpus)-opts.MaxCorpus:]
	}
	for _, c := range corpus {
		if c = textstat.Truncate(c, opts.MaxResponseTokens); c != "" {
			in.Corpus = append(in.Corpus, c)
		}
	}

	in.Words = textstat.Words(in.Response)
	in.Sentences = textstat.Sentences(in.Response)
	return in
}

// HasContent reports whether source content was supplied.
func (in *Input) HasContent() bool { return in.Content != "" }

// HasPrompt reports whether a prompt was supplied.
func (in *Input) HasPrompt() bool { return in.Prompt != "" }

// substantiveSentences drops fragments too short to embed meaningfully.
func (in *Input) substantiveSentences() []string {
	var out []string
	for _, s := range in.Sentences {
		if len(textstat.Words(s)) >= 3 {
			out = append(out, s)
		}
	}
	return out
}

// Calibrate maps a raw cosine similarity onto [0,1]. Sentence-embedding
// cosines for unrelated English text sit near 0.1 and paraphrases near 0.7.
func Calibrate(cos float64) float64 {
	return textstat.Clamp01((cos - 0.10) / 0.60)
}

// component is one weighted sub-measure of a score.
type component struct {
	name   string
	weight float64
	value  float64
}

// combine returns the weighted mean of the components, renormalized over
// their total weight, and the breakdown map.
func combine(parts []component) (float64, map[string]float64) {
	breakdown := make(map[string]float64, len(parts))
	var sum, weights float64
	for _, p := range parts {
		v := textstat.Clamp01(p.value)
		breakdown[p.name] = round4(v)
		sum += p.weight * v
		weights += p.weight
	}
	if weights == 0 {
		return 0, breakdown
	}
	return textstat.Clamp01(sum / weights), breakdown
}

// band returns the value of the first band whose bound v exceeds, or
// fallback when none match. Bounds must be in descending order.
func band(v float64, bounds, values []float64, fallback float64) float64 {
	for i, b := range bounds {
		if v > b {
			return values[i]
		}
	}
	return fallback
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// embedAll embeds texts in one provider call.
func embedAll(ctx context.Context, emb embedding.Embedder, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return emb.Embed(ctx, texts)
}

// All returns one scorer per dimension in model.Dimensions order.
func All(emb embedding.Embedder, lm causallm.Model, lex Lexicon, opts Options) []Scorer {
	return []Scorer{
		NewRelevance(emb),
		NewPerplexity(lm),
		NewAIPattern(lex),
		NewNovelty(emb, lex),
		NewCoherence(emb, lex, opts),
		NewEffort(lex),
	}
}
