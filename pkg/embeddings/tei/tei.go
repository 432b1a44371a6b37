// Package tei implements embeddings.Embedder against a Hugging Face
// text-embeddings-inference server.
//
// The server is asked for raw per-token hidden states (/embed_all) and the
// sentence vector is produced here by mean pooling, so the result matches
// averaging an encoder's last_hidden_state over the sequence axis.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/profrag/pkg/embeddings"
)

const (
	// DefaultModel is the encoder the server is expected to host.
	DefaultModel = "distilbert-base-uncased"

	// DefaultBaseURL is the default text-embeddings-inference URL.
	DefaultBaseURL = "http://localhost:8080"
)

// Embedder wraps the text-embeddings-inference HTTP API.
type Embedder struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// EmbedderConfig holds configuration for the TEI embedder.
type EmbedderConfig struct {
	// BaseURL is the server URL. Defaults to DefaultBaseURL.
	BaseURL string

	// Model is informational; TEI serves a single model per process and
	// ignores it on the wire. Defaults to DefaultModel.
	Model string

	// APIKey is sent as a bearer token when set (Inference Endpoints).
	APIKey string

	// Timeout bounds each request. Defaults to 120s.
	Timeout time.Duration
}

type embedAllRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// embedAllResponse is indexed [input][token][hidden].
type embedAllResponse [][][]float32

// NewEmbedder creates a TEI embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Embedder{
		baseURL:    baseURL,
		model:      model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Model returns the configured model identifier.
func (e *Embedder) Model() string {
	return e.model
}

// Embed requests token states for texts and mean-pools each one.
// Inputs longer than the server's max length (512 tokens for DistilBERT)
// are truncated server-side.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(embedAllRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed_all", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: tei returned status %d: %s", embeddings.ErrEmbedding, resp.StatusCode, string(body))
	}

	var states embedAllResponse
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, err)
	}

	if len(states) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d inputs in response, got %d", embeddings.ErrEmbedding, len(texts), len(states))
	}

	out := make([][]float32, len(states))
	for i, tokens := range states {
		if len(tokens) == 0 {
			return nil, fmt.Errorf("%w: no token states for input %d", embeddings.ErrEmbedding, i)
		}
		pooled, err := embeddings.MeanPool(tokens)
		if err != nil {
			return nil, fmt.Errorf("pooling input %d: %w", i, err)
		}
		out[i] = pooled
	}

	return out, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
