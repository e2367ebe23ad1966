package causallm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aid/internal/resilience"
)

const (
	// DefaultOpenAIBaseURL targets a local OpenAI-compatible server (vLLM, llama.cpp).
	DefaultOpenAIBaseURL = "http://localhost:8000"
	// DefaultModel is the reference scoring model.
	DefaultModel = "gpt2-medium"

	// prefixSeparator joins the conditioning prefix and the scored text.
	prefixSeparator = "\n\n"
)

// Option configures the OpenAI-compatible client.
type Option func(*OpenAI)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *OpenAI) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *OpenAI) {
		c.http = hc
	}
}

// WithAPIKey sets a bearer token.
func WithAPIKey(key string) Option {
	return func(c *OpenAI) {
		c.apiKey = key
	}
}

// OpenAI scores text through the legacy /v1/completions endpoint with
// echo and logprobs, which returns the log-probability of every prompt token.
type OpenAI struct {
	baseURL string
	model   string
	apiKey  string
	http    *http.Client
}

// NewOpenAI creates a client for the given model.
func NewOpenAI(model string, opts ...Option) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	c := &OpenAI{
		baseURL: DefaultOpenAIBaseURL,
		model:   model,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Echo        bool    `json:"echo"`
	Logprobs    int     `json:"logprobs"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Logprobs *struct {
			Tokens        []string   `json:"tokens"`
			TokenLogprobs []*float64 `json:"token_logprobs"`
			TextOffset    []int      `json:"text_offset"`
		} `json:"logprobs"`
	} `json:"choices"`
}

// ModelName implements Model.
func (c *OpenAI) ModelName() string { return c.model }

// LogLikelihood implements Model. Tokens whose text offset (in characters)
// starts inside the prefix are excluded.
func (c *OpenAI) LogLikelihood(ctx context.Context, text, prefix string) (Likelihood, error) {
	prompt := text
	boundary := 0
	if prefix != "" {
		head := prefix + prefixSeparator
		prompt = head + text
		boundary = utf8.RuneCountInString(head)
	}

	payload, err := json.Marshal(completionRequest{
		Model:     c.model,
		Prompt:    prompt,
		MaxTokens: 0,
		Echo:      true,
		Logprobs:  0,
	})
	if err != nil {
		return Likelihood{}, eris.Wrap(err, "causallm: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(payload))
	if err != nil {
		return Likelihood{}, eris.Wrap(err, "causallm: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Likelihood{}, eris.Wrap(err, "causallm: completions request")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Likelihood{}, eris.Wrap(err, "causallm: read response")
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := eris.Errorf("causallm: completions status %d: %s", resp.StatusCode, clip(raw, 200))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return Likelihood{}, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return Likelihood{}, apiErr
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Likelihood{}, eris.Wrap(err, "causallm: decode response")
	}
	if len(out.Choices) == 0 || out.Choices[0].Logprobs == nil {
		return Likelihood{}, eris.New("causallm: response carries no logprobs")
	}

	lp := out.Choices[0].Logprobs
	if len(lp.TextOffset) != len(lp.TokenLogprobs) {
		return Likelihood{}, eris.Errorf("causallm: %d offsets for %d logprobs", len(lp.TextOffset), len(lp.TokenLogprobs))
	}

	var ll Likelihood
	for i, p := range lp.TokenLogprobs {
		// The first token of a sequence has no prediction.
		if p == nil || lp.TextOffset[i] < boundary {
			continue
		}
		ll.Tokens++
		ll.SumNLL -= *p
	}
	return ll, nil
}

func clip(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...", b[:n])
}
