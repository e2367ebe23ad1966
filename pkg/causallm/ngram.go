package causallm

import (
	"context"
	"math"

	"github.com/sells-group/aid/internal/textstat"
)

// Interpolation weights of the cache model.
const (
	bigramWeight  = 0.5
	unigramWeight = 0.3
	priorWeight   = 0.2
)

// NGram is a deterministic offline language model. It interpolates a
// bigram cache, a unigram cache over the text read so far, and a fixed
// English word-frequency prior. The prefix only feeds the bigram cache:
// text that reuses the prefix's word sequences becomes predictable, while
// merely sharing topical vocabulary with it does not.
type NGram struct{}

// NewNGram creates the local cache model.
func NewNGram() *NGram { return &NGram{} }

// ModelName implements Model.
func (m *NGram) ModelName() string { return "ngram-cache" }

// LogLikelihood implements Model.
func (m *NGram) LogLikelihood(ctx context.Context, text, prefix string) (Likelihood, error) {
	if err := ctx.Err(); err != nil {
		return Likelihood{}, err
	}

	st := newCacheState()
	for _, w := range textstat.Words(prefix) {
		st.follow(w)
	}

	var ll Likelihood
	for _, w := range textstat.Words(text) {
		ll.Tokens++
		ll.SumNLL -= math.Log(st.prob(w))
		st.observe(w)
	}
	return ll, nil
}

type bigram struct{ prev, next string }

type cacheState struct {
	unigrams map[string]int
	total    int
	bigrams  map[bigram]int
	follows  map[string]int
	prev     string
	hasPrev  bool
}

func newCacheState() *cacheState {
	return &cacheState{
		unigrams: make(map[string]int),
		bigrams:  make(map[bigram]int),
		follows:  make(map[string]int),
	}
}

func (s *cacheState) observe(w string) {
	s.unigrams[w]++
	s.total++
	s.follow(w)
}

func (s *cacheState) follow(w string) {
	if s.hasPrev {
		s.bigrams[bigram{s.prev, w}]++
		s.follows[s.prev]++
	}
	s.prev = w
	s.hasPrev = true
}

// prob moves the weight of an undefined component down to the next one.
func (s *cacheState) prob(w string) float64 {
	wb, wu, wp := bigramWeight, unigramWeight, priorWeight

	var pb, pu float64
	if s.hasPrev && s.follows[s.prev] > 0 {
		pb = float64(s.bigrams[bigram{s.prev, w}]) / float64(s.follows[s.prev])
	} else {
		wu += wb
		wb = 0
	}
	if s.total > 0 {
		pu = float64(s.unigrams[w]) / float64(s.total)
	} else {
		wp += wu
		wu = 0
	}
	return wb*pb + wu*pu + wp*priorProb(w)
}
