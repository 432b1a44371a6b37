package embeddings

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoizes embeddings by exact input text for the lifetime of the process.
type Cached struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached keeps up to size embeddings in memory. A non-positive size
// returns next unchanged.
func NewCached(next Embedder, size int) (Embedder, error) {
	if size <= 0 {
		return next, nil
	}

	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}

	return &Cached{next: next, cache: cache}, nil
}

// Embed serves cached texts from memory and sends only the misses to the
// underlying embedder, in one call.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var misses []string

	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		misses = append(misses, t)
	}

	if len(misses) == 0 {
		return out, nil
	}

	vecs, err := c.next.Embed(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(misses) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbedding, len(misses), len(vecs))
	}

	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Add(misses[j], vecs[j])
	}
	return out, nil
}

// Close closes the underlying embedder.
func (c *Cached) Close() error {
	return c.next.Close()
}

var _ Embedder = (*Cached)(nil)
