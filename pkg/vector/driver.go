// Package vector provisions vector indexes and writes review embeddings to them.
package vector

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Metric is the similarity function an index ranks by.
type Metric string

const (
	Cosine     Metric = "cosine"
	Euclidean  Metric = "euclidean"
	DotProduct Metric = "dotproduct"
)

// ParseMetric validates a metric name. Empty means Cosine.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", Cosine:
		return Cosine, nil
	case Euclidean:
		return Euclidean, nil
	case DotProduct:
		return DotProduct, nil
	default:
		return "", fmt.Errorf("unsupported metric %q (available: cosine, euclidean, dotproduct)", s)
	}
}

// Score converts a store distance into a higher-is-closer similarity. Every
// distance-based driver maps through here so scores agree across stores.
// Cosine distance is 1 - cos, DotProduct distance is the negative inner
// product and Euclidean distance lands in (0, 1].
func Score(m Metric, distance float64) float32 {
	switch m {
	case Cosine:
		return float32(1 - distance)
	case DotProduct:
		return float32(-distance)
	default:
		return float32(1.0 / (1.0 + distance))
	}
}

// IndexSpec describes the index a driver provisions and writes to.
type IndexSpec struct {
	// Name identifies the index (Pinecone index, Qdrant/Chroma collection,
	// Postgres table).
	Name string

	// Dimension is the required vector length.
	Dimension int

	// Metric is the similarity metric used at creation.
	Metric Metric

	// Cloud and Region place serverless indexes. Drivers without a notion
	// of placement ignore them.
	Cloud  string
	Region string
}

// Record is one upsert triple. Records sharing an ID overwrite each other.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Match is a similarity query hit.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// Stats summarizes an index after a write.
type Stats struct {
	Dimension        int
	TotalVectorCount int
	Fullness         float32

	// Namespaces maps namespace name to vector count. Drivers without
	// namespaces report a single "" entry.
	Namespaces map[string]int
}

// String renders stats on one line, namespaces sorted by name.
func (s *Stats) String() string {
	if s == nil {
		return "<no stats>"
	}

	names := make([]string, 0, len(s.Namespaces))
	for ns := range s.Namespaces {
		names = append(names, ns)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, ns := range names {
		label := ns
		if label == "" {
			label = "(default)"
		}
		parts = append(parts, fmt.Sprintf("%s=%d", label, s.Namespaces[ns]))
	}

	return fmt.Sprintf("dimension=%d total_vectors=%d fullness=%.4f namespaces=[%s]",
		s.Dimension, s.TotalVectorCount, s.Fullness, strings.Join(parts, " "))
}

// Driver owns one index on a vector store.
type Driver interface {
	// EnsureIndex creates the index when no index of the same name exists
	// and reports whether it did. An existing index is used as-is even if
	// its dimension or metric differ.
	EnsureIndex(ctx context.Context) (bool, error)

	// Upsert writes all records in a single call and returns how many the
	// store accepted.
	Upsert(ctx context.Context, records []Record) (int, error)

	// Query returns the topK records nearest to values.
	Query(ctx context.Context, values []float32, topK int) ([]Match, error)

	// Stats describes the index contents.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases any resources held by the driver.
	Close() error
}
