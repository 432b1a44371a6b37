// Package embeddingutils builds a configured embeddings.Embedder.
package embeddingutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/profrag/pkg/embeddings"
	"github.com/papercomputeco/profrag/pkg/embeddings/gemini"
	"github.com/papercomputeco/profrag/pkg/embeddings/ollama"
	"github.com/papercomputeco/profrag/pkg/embeddings/openai"
	"github.com/papercomputeco/profrag/pkg/embeddings/tei"
)

// Supported provider names.
const (
	ProviderTEI    = "tei"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Dimensions   uint
	MaxTokens    uint

	// RateLimit caps Embed calls per second; zero is unlimited.
	RateLimit float64

	// CacheSize memoizes this many distinct texts; zero disables caching.
	CacheSize int
}

// NewEmbedder returns the provider named by o.ProviderType wrapped in the
// optional cache and rate limiter. Cache hits never consume rate budget.
func NewEmbedder(ctx context.Context, o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)

	switch o.ProviderType {
	case ProviderTEI:
		e, err = tei.NewEmbedder(tei.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			APIKey:  o.APIKey,
		})
	case ProviderOllama:
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case ProviderOpenAI:
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
			MaxTokens:  o.MaxTokens,
		})
	case ProviderGemini:
		e, err = gemini.NewEmbedder(ctx, gemini.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	e = embeddings.NewRateLimited(e, o.RateLimit)
	return embeddings.NewCached(e, o.CacheSize)
}
