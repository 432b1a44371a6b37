// Package openai implements embeddings.Embedder for OpenAI-compatible
// /embeddings endpoints.
package openai

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/profrag/pkg/embeddings"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "text-embedding-3-small"

	// tokenEncoding is the BPE used by the text-embedding-3 family.
	tokenEncoding = "cl100k_base"
)

// Embedder calls an OpenAI-compatible embeddings API.
type Embedder struct {
	client     *goopenai.Client
	model      string
	dimensions int
	maxTokens  int

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
}

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// BaseURL overrides the API root (e.g. "http://localhost:1234/v1").
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// Dimensions shortens output for models that support it. Zero keeps
	// the model's native size.
	Dimensions uint

	// MaxTokens truncates each input to at most this many tokens before it
	// is sent. Zero disables truncation.
	MaxTokens uint
}

// NewEmbedder creates an OpenAI embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Embedder{
		client:     goopenai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: int(cfg.Dimensions),
		maxTokens:  int(cfg.MaxTokens),
	}, nil
}

// Embed sends texts in one request and returns vectors in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	inputs := texts
	if e.maxTokens > 0 {
		truncated, err := e.truncate(texts)
		if err != nil {
			return nil, err
		}
		inputs = truncated
	}

	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input:      inputs,
		Model:      goopenai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", embeddings.ErrEmbedding, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", embeddings.ErrEmbedding, len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", embeddings.ErrEmbedding, d.Index)
		}
		out[d.Index] = d.Embedding
	}

	return out, nil
}

func (e *Embedder) truncate(texts []string) ([]string, error) {
	e.encOnce.Do(func() {
		e.enc, e.encErr = tiktoken.GetEncoding(tokenEncoding)
	})
	if e.encErr != nil {
		return nil, fmt.Errorf("%w: loading tokenizer: %v", embeddings.ErrEmbedding, e.encErr)
	}

	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = TruncateTokens(e.enc, t, e.maxTokens)
	}
	return out, nil
}

// TruncateTokens cuts text to its first max tokens under enc.
func TruncateTokens(enc *tiktoken.Tiktoken, text string, max int) string {
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text
	}
	return enc.Decode(tokens[:max])
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
