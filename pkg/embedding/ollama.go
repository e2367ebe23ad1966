package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aid/internal/resilience"
)

const (
	// DefaultOllamaBaseURL is the default Ollama API base URL.
	DefaultOllamaBaseURL = "http://localhost:11434"
	// DefaultOllamaModel is all-MiniLM-L6-v2 as published in the Ollama library.
	DefaultOllamaModel = "all-minilm"
)

// KnownDimensions maps common embedding models to their vector length.
var KnownDimensions = map[string]int{
	"all-minilm":        384,
	"all-minilm:l6-v2":  384,
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
}

// OllamaOption configures the Ollama embedder.
type OllamaOption func(*Ollama)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) OllamaOption {
	return func(o *Ollama) {
		o.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) OllamaOption {
	return func(o *Ollama) {
		o.http = hc
	}
}

// WithDimension overrides the expected vector length.
func WithDimension(dim int) OllamaOption {
	return func(o *Ollama) {
		if dim > 0 {
			o.dimension = dim
		}
	}
}

// WithCPUOnly asks the server to run the model without GPU offload.
func WithCPUOnly() OllamaOption {
	return func(o *Ollama) {
		o.cpuOnly = true
	}
}

// Ollama embeds text through an Ollama server's /api/embed endpoint.
type Ollama struct {
	baseURL   string
	model     string
	dimension int
	cpuOnly   bool
	http      *http.Client
}

// NewOllama creates an Ollama embedder for the given model.
func NewOllama(model string, opts ...OllamaOption) *Ollama {
	if model == "" {
		model = DefaultOllamaModel
	}
	o := &Ollama{
		baseURL:   DefaultOllamaBaseURL,
		model:     model,
		dimension: KnownDimensions[model],
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type ollamaEmbedRequest struct {
	Model   string         `json:"model"`
	Input   []string       `json:"input"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// ModelName implements Embedder.
func (o *Ollama) ModelName() string { return o.model }

// Dimension implements Embedder. It is 0 for models outside KnownDimensions
// unless set with WithDimension.
func (o *Ollama) Dimension() int { return o.dimension }

// Embed implements Embedder with a single batched request.
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body := ollamaEmbedRequest{Model: o.model, Input: texts}
	if o.cpuOnly {
		body.Options = map[string]any{"num_gpu": 0}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "ollama: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "ollama: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ollama: embed request")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ollama: read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := eris.Errorf("ollama: embed status %d: %s", resp.StatusCode, truncate(raw, 200))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	var out ollamaEmbedResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "ollama: decode response")
	}
	if len(out.Embeddings) != len(texts) {
		return nil, eris.Errorf("ollama: got %d embeddings for %d inputs", len(out.Embeddings), len(texts))
	}
	for i, v := range out.Embeddings {
		if len(v) == 0 {
			return nil, eris.Errorf("ollama: empty embedding at index %d", i)
		}
		if o.dimension > 0 && len(v) != o.dimension {
			return nil, eris.Errorf("ollama: embedding %d has dimension %d, want %d", i, len(v), o.dimension)
		}
	}
	return out.Embeddings, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...", b[:n])
}
