package embeddings

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to an underlying Embedder.
type RateLimited struct {
	next    Embedder
	limiter *rate.Limiter
}

// NewRateLimited allows at most perSecond Embed calls per second against next.
// A non-positive rate returns next unchanged.
func NewRateLimited(next Embedder, perSecond float64) Embedder {
	if perSecond <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Embed waits for the limiter, then delegates.
func (r *RateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for rate limiter: %v", ErrEmbedding, err)
	}
	return r.next.Embed(ctx, texts)
}

// Close closes the underlying embedder.
func (r *RateLimited) Close() error {
	return r.next.Close()
}

var _ Embedder = (*RateLimited)(nil)
