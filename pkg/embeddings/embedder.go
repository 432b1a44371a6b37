// Package embeddings turns review text into fixed-length vectors.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding is returned when an embedding provider fails.
var ErrEmbedding = errors.New("embedding failed")

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, errors.Join(ErrEmbedding, errors.New("no embeddings returned"))
	}
	return vecs[0], nil
}
