// Package pipeline embeds professor reviews and loads them into a vector index.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/profrag/pkg/embeddings"
	"github.com/papercomputeco/profrag/pkg/review"
	"github.com/papercomputeco/profrag/pkg/vector"
)

// DefaultDimension is the output width of distilbert-base-uncased.
const DefaultDimension = 768

// Loader runs the review load against one embedder and one index.
type Loader struct {
	embedder  embeddings.Embedder
	driver    vector.Driver
	dimension int
	logger    *slog.Logger
}

// Config wires a Loader.
type Config struct {
	Embedder embeddings.Embedder
	Driver   vector.Driver

	// Dimension is the expected embedding length. Zero means DefaultDimension.
	Dimension int

	Logger *slog.Logger
}

// NewLoader validates c and returns a Loader.
func NewLoader(c Config) (*Loader, error) {
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if c.Driver == nil {
		return nil, errors.New("vector driver is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	dim := c.Dimension
	if dim == 0 {
		dim = DefaultDimension
	}
	if dim < 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}

	return &Loader{
		embedder:  c.Embedder,
		driver:    c.Driver,
		dimension: dim,
		logger:    c.Logger,
	}, nil
}

// Dimension returns the embedding length records must have.
func (l *Loader) Dimension() int {
	return l.dimension
}

// Transform embeds each review's text and keeps those whose embedding has
// the configured dimension. Reviews are processed one at a time in input
// order. The returned records and skipped reviews together account for every
// input review. An embedder error aborts the whole transform.
func (l *Loader) Transform(ctx context.Context, reviews []review.Review) ([]vector.Record, []review.Review, error) {
	records := make([]vector.Record, 0, len(reviews))
	var skipped []review.Review

	for i, r := range reviews {
		emb, err := embeddings.EmbedOne(ctx, l.embedder, r.Review)
		if err != nil {
			return nil, nil, fmt.Errorf("embedding review %d (%s): %w", i, r.Professor, err)
		}

		if len(emb) != l.dimension {
			l.logger.Warn("skipping review with unexpected embedding dimension",
				"professor", r.Professor,
				"got", len(emb),
				"want", l.dimension,
			)
			skipped = append(skipped, r)
			continue
		}

		records = append(records, vector.Record{
			ID:       r.Professor,
			Values:   emb,
			Metadata: r.Metadata(),
		})
	}

	return records, skipped, nil
}

// duplicates counts records whose ID already appeared earlier in the slice.
func (l *Loader) duplicates(records []vector.Record) int {
	seen := make(map[string]int, len(records))
	dups := 0
	for _, r := range records {
		seen[r.ID]++
		if seen[r.ID] == 2 {
			l.logger.Warn("professor appears more than once; later reviews overwrite earlier ones",
				"professor", r.ID,
			)
		}
		if seen[r.ID] > 1 {
			dups++
		}
	}
	return dups
}

// Run provisions the index, loads the dataset at path, embeds every review
// and upserts all surviving records in a single call.
func (l *Loader) Run(ctx context.Context, path string) (*Result, error) {
	created, err := l.driver.EnsureIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensuring index: %w", err)
	}

	reviews, err := review.LoadFile(path)
	if err != nil {
		return nil, err
	}
	l.logger.Info("loaded reviews", "path", path, "count", len(reviews))

	records, skipped, err := l.Transform(ctx, reviews)
	if err != nil {
		return nil, err
	}

	result := &Result{
		IndexCreated: created,
		Reviews:      len(reviews),
		Embedded:     len(records),
		Skipped:      len(skipped),
		Duplicates:   l.duplicates(records),
	}

	upserted, err := l.driver.Upsert(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("upserting %d records: %w", len(records), err)
	}
	result.Upserted = upserted
	l.logger.Info("upserted records", "count", upserted)

	stats, err := l.driver.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("describing index: %w", err)
	}
	result.Stats = stats

	return result, nil
}

// Search embeds query and returns the topK nearest reviews.
func (l *Loader) Search(ctx context.Context, query string, topK int) ([]vector.Match, error) {
	emb, err := embeddings.EmbedOne(ctx, l.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(emb) != l.dimension {
		return nil, fmt.Errorf("%w: query embedding has %d values, want %d",
			vector.ErrDimensionMismatch, len(emb), l.dimension)
	}

	matches, err := l.driver.Query(ctx, emb, topK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	return matches, nil
}
