package causallm

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aid/internal/resilience"
)

const productCopy = "The Aurora X2 wireless headphones deliver studio-grade sound in a lightweight folding design. " +
	"Adaptive noise cancellation uses six microphones to monitor ambient sound and adjust filtering in real time, " +
	"so commuters can block engine rumble while still hearing station announcements through the transparency mode. " +
	"Custom forty millimeter drivers produce deep bass, clear mids and detailed highs across every genre. " +
	"Battery life reaches thirty hours with noise cancellation enabled, and a ten minute quick charge adds five hours of playback."

const copiedSentence = "Adaptive noise cancellation uses six microphones to monitor ambient sound and adjust filtering in real time, " +
	"so commuters can block engine rumble while still hearing station announcements through the transparency mode."

const reworded = "Six microphones monitor ambient sound so the adaptive noise cancellation can adjust its filtering in real time, " +
	"letting commuters block engine rumble yet still hear station announcements in transparency mode."

const unrelatedStory = "My grandmother kept bees behind her barn, and every August we spun honey in her cramped kitchen. " +
	"Sticky fingers, buzzing windows, sunburned noses. Grandpa swore loudly whenever frames cracked, then laughed."

func ratio(t *testing.T, m Model, text, prefix string) float64 {
	t.Helper()
	ctx := context.Background()
	cond, err := m.LogLikelihood(ctx, text, prefix)
	require.NoError(t, err)
	uncond, err := m.LogLikelihood(ctx, text, "")
	require.NoError(t, err)
	return cond.Perplexity() / uncond.Perplexity()
}

func TestLikelihood_Perplexity(t *testing.T) {
	l := Likelihood{Tokens: 4, SumNLL: 4 * math.Log(20)}
	assert.InDelta(t, math.Log(20), l.MeanNLL(), 1e-9)
	assert.InDelta(t, 20, l.Perplexity(), 1e-9)

	assert.True(t, math.IsInf(Likelihood{}.Perplexity(), 1))
}

func TestNGram_CopiedTextIsPredictable(t *testing.T) {
	m := NewNGram()
	assert.Equal(t, "ngram-cache", m.ModelName())

	assert.Less(t, ratio(t, m, copiedSentence, productCopy), 0.01)
	assert.Less(t, ratio(t, m, reworded, productCopy), 0.05)
}

func TestNGram_UnrelatedTextUnaffectedByPrefix(t *testing.T) {
	r := ratio(t, NewNGram(), unrelatedStory, productCopy)
	assert.Greater(t, r, 0.9)
	assert.Less(t, r, 1.2)
}

func TestNGram_RepetitionLowersPerplexity(t *testing.T) {
	m := NewNGram()
	ctx := context.Background()

	once, err := m.LogLikelihood(ctx, "purple turtles dance slowly", "")
	require.NoError(t, err)
	twice, err := m.LogLikelihood(ctx, "purple turtles dance slowly purple turtles dance slowly", "")
	require.NoError(t, err)

	assert.Equal(t, 4, once.Tokens)
	assert.Equal(t, 8, twice.Tokens)
	assert.Less(t, twice.Perplexity(), once.Perplexity())
}

func TestNGram_Deterministic(t *testing.T) {
	m := NewNGram()
	a, err := m.LogLikelihood(context.Background(), reworded, productCopy)
	require.NoError(t, err)
	b, err := m.LogLikelihood(context.Background(), reworded, productCopy)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNGram_EmptyText(t *testing.T) {
	l, err := NewNGram().LogLikelihood(context.Background(), "  ", productCopy)
	require.NoError(t, err)
	assert.Zero(t, l.Tokens)
	assert.True(t, math.IsInf(l.Perplexity(), 1))
}

func TestNGram_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewNGram().LogLikelihood(ctx, "text", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPriorProb(t *testing.T) {
	assert.InDelta(t, 0.05, priorProb("the"), 1e-9)
	assert.Greater(t, priorProb("the"), priorProb("zeppelin"))
	assert.Greater(t, rareWordProb, 0.0)
}

func logprob(v float64) *float64 { return &v }

func TestOpenAI_LogLikelihood(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt2-medium", req.Model)
		assert.True(t, req.Echo)
		assert.Zero(t, req.MaxTokens)
		assert.Equal(t, "ctx\n\nhi there", req.Prompt)

		// "ctx" "\n\n" | "hi" " there"; the boundary is at character 5.
		resp := map[string]any{
			"model": req.Model,
			"choices": []map[string]any{{
				"logprobs": map[string]any{
					"tokens":         []string{"ctx", "\n\n", "hi", " there"},
					"token_logprobs": []*float64{nil, logprob(-1.0), logprob(-2.0), logprob(-4.0)},
					"text_offset":    []int{0, 3, 5, 7},
				},
			}},
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewOpenAI("", WithBaseURL(srv.URL), WithAPIKey("sk-test"))
	assert.Equal(t, DefaultModel, c.ModelName())

	l, err := c.LogLikelihood(context.Background(), "hi there", "ctx")
	require.NoError(t, err)
	assert.Equal(t, 2, l.Tokens)
	assert.InDelta(t, 6.0, l.SumNLL, 1e-9)
}

func TestOpenAI_UnconditionalSkipsFirstToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hi there", req.Prompt)
		assert.Empty(t, r.Header.Get("Authorization"))

		resp := map[string]any{
			"choices": []map[string]any{{
				"logprobs": map[string]any{
					"tokens":         []string{"hi", " there"},
					"token_logprobs": []*float64{nil, logprob(-3.0)},
					"text_offset":    []int{0, 2},
				},
			}},
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	l, err := NewOpenAI("gpt2", WithBaseURL(srv.URL)).LogLikelihood(context.Background(), "hi there", "")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Tokens)
	assert.InDelta(t, math.Exp(3), l.Perplexity(), 1e-9)
}

func TestOpenAI_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		wantErr   string
	}{
		{"overloaded", http.StatusTooManyRequests, `{"error":"slow down"}`, true, "status 429"},
		{"bad request", http.StatusBadRequest, `{"error":"echo unsupported"}`, false, "echo unsupported"},
		{"no logprobs", http.StatusOK, `{"choices":[{}]}`, false, "no logprobs"},
		{"no choices", http.StatusOK, `{"choices":[]}`, false, "no logprobs"},
		{"offset mismatch", http.StatusOK, `{"choices":[{"logprobs":{"token_logprobs":[null,-1],"text_offset":[0]}}]}`, false, "1 offsets for 2 logprobs"},
		{"bad json", http.StatusOK, `not json`, false, "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			_, err := NewOpenAI("gpt2", WithBaseURL(srv.URL)).LogLikelihood(context.Background(), "x", "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.transient, resilience.IsTransient(err))
		})
	}
}
