// Package gemini implements embeddings.Embedder on Google's Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/papercomputeco/profrag/pkg/embeddings"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "text-embedding-004"

// Embedder calls Gemini's EmbedContent.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int32
}

// EmbedderConfig holds configuration for the Gemini embedder.
type EmbedderConfig struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// Dimensions requests a reduced output size when non-zero.
	Dimensions uint
}

// NewEmbedder creates a Gemini embedder.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Embedder{
		client:     client,
		model:      model,
		dimensions: int32(cfg.Dimensions),
	}, nil
}

// Embed embeds each text as its own content part, in one call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: t}}}
	}

	var embedCfg *genai.EmbedContentConfig
	if e.dimensions > 0 {
		dims := e.dimensions
		embedCfg = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, embedCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", embeddings.ErrEmbedding, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", embeddings.ErrEmbedding, len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
