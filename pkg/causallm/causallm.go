// Package causallm provides autoregressive language model providers that
// report token negative log-likelihood, optionally conditioned on a prefix.
package causallm

import (
	"context"
	"math"
)

// Model scores text under a causal language model.
type Model interface {
	// LogLikelihood scores text. When prefix is non-empty the model reads it
	// first and only the tokens of text are counted.
	LogLikelihood(ctx context.Context, text, prefix string) (Likelihood, error)
	// ModelName identifies the underlying model.
	ModelName() string
}

// Likelihood is the summed negative log-likelihood over scored tokens.
type Likelihood struct {
	Tokens int     `json:"tokens"`
	SumNLL float64 `json:"sum_nll"`
}

// MeanNLL returns the average negative log-likelihood per token.
func (l Likelihood) MeanNLL() float64 {
	if l.Tokens == 0 {
		return math.Inf(1)
	}
	return l.SumNLL / float64(l.Tokens)
}

// Perplexity returns exp(MeanNLL). It is +Inf when no token was scored.
func (l Likelihood) Perplexity() float64 {
	return math.Exp(l.MeanNLL())
}
