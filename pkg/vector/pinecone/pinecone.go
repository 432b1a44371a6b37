// Package pinecone provides a vector.Driver backed by a Pinecone serverless index.
package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/papercomputeco/profrag/pkg/vector"
)

const (
	// DefaultCloud and DefaultRegion match Pinecone's free starter plan.
	DefaultCloud  = "aws"
	DefaultRegion = "us-east-1"

	defaultReadyTimeout = 2 * time.Minute
	defaultPollInterval = 2 * time.Second
)

// controlPlane is the subset of *pinecone.Client used for index management.
type controlPlane interface {
	ListIndexes(ctx context.Context) ([]*pinecone.Index, error)
	DescribeIndex(ctx context.Context, idxName string) (*pinecone.Index, error)
	CreateServerlessIndex(ctx context.Context, in *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error)
}

// dataPlane is the subset of *pinecone.IndexConnection used for reads and writes.
type dataPlane interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

type dialFunc func(host string) (dataPlane, error)

// Config holds configuration for the Pinecone driver.
type Config struct {
	// APIKey authenticates against Pinecone. Required.
	APIKey string

	// Host overrides the control plane URL.
	Host string

	// Namespace scopes upserts and queries. Empty is the default namespace.
	Namespace string

	// Index is the index to provision and write to.
	Index vector.IndexSpec

	// ReadyTimeout bounds how long EnsureIndex waits for a new index to
	// become ready. Defaults to 2m.
	ReadyTimeout time.Duration

	// PollInterval is the delay between readiness checks. Defaults to 2s.
	PollInterval time.Duration
}

// Driver implements vector.Driver on Pinecone.
type Driver struct {
	control      controlPlane
	dial         dialFunc
	spec         vector.IndexSpec
	readyTimeout time.Duration
	pollInterval time.Duration
	logger       *slog.Logger

	mu   sync.Mutex
	conn dataPlane
}

// NewDriver creates a Pinecone driver. No network call is made until the
// first operation.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.APIKey == "" {
		return nil, errors.New("pinecone API key is required (set PINECONE_API_KEY)")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: c.APIKey,
		Host:   c.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating pinecone client: %v", vector.ErrConnection, err)
	}

	dial := func(host string) (dataPlane, error) {
		return client.Index(pinecone.NewIndexConnParams{
			Host:      host,
			Namespace: c.Namespace,
		})
	}

	return newDriver(client, dial, c, logger)
}

func newDriver(control controlPlane, dial dialFunc, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Index.Name == "" {
		return nil, errors.New("pinecone index name is required")
	}

	spec := c.Index
	if spec.Metric == "" {
		spec.Metric = vector.Cosine
	}
	if spec.Cloud == "" {
		spec.Cloud = DefaultCloud
	}
	if spec.Region == "" {
		spec.Region = DefaultRegion
	}

	readyTimeout := c.ReadyTimeout
	if readyTimeout == 0 {
		readyTimeout = defaultReadyTimeout
	}
	pollInterval := c.PollInterval
	if pollInterval == 0 {
		pollInterval = defaultPollInterval
	}

	return &Driver{
		control:      control,
		dial:         dial,
		spec:         spec,
		readyTimeout: readyTimeout,
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

// EnsureIndex creates the serverless index when it is not listed.
func (d *Driver) EnsureIndex(ctx context.Context) (bool, error) {
	indexes, err := d.control.ListIndexes(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: listing indexes: %v", vector.ErrConnection, err)
	}

	idx := slices.IndexFunc(indexes, func(i *pinecone.Index) bool {
		return i != nil && i.Name == d.spec.Name
	})
	if idx >= 0 {
		d.warnOnMismatch(indexes[idx])
		return false, nil
	}

	dimension := int32(d.spec.Dimension)
	metric := pinecone.IndexMetric(d.spec.Metric)
	_, err = d.control.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      d.spec.Name,
		Dimension: &dimension,
		Metric:    &metric,
		Cloud:     pinecone.Cloud(d.spec.Cloud),
		Region:    d.spec.Region,
	})
	if err != nil {
		return false, fmt.Errorf("creating index %q: %w", d.spec.Name, err)
	}

	d.logger.Info("created pinecone index",
		"index", d.spec.Name,
		"dimension", d.spec.Dimension,
		"metric", string(d.spec.Metric),
		"cloud", d.spec.Cloud,
		"region", d.spec.Region,
	)

	if err := d.waitReady(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (d *Driver) warnOnMismatch(idx *pinecone.Index) {
	if idx.Dimension != nil && int(*idx.Dimension) != d.spec.Dimension {
		d.logger.Warn("existing pinecone index has a different dimension",
			"index", idx.Name,
			"existing", *idx.Dimension,
			"configured", d.spec.Dimension,
		)
	}
	if idx.Metric != "" && string(idx.Metric) != string(d.spec.Metric) {
		d.logger.Warn("existing pinecone index has a different metric",
			"index", idx.Name,
			"existing", string(idx.Metric),
			"configured", string(d.spec.Metric),
		)
	}
}

func (d *Driver) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.readyTimeout)
	defer cancel()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		idx, err := d.control.DescribeIndex(ctx, d.spec.Name)
		if err == nil && idx.Status != nil && idx.Status.Ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for index %q to become ready: %w", d.spec.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (d *Driver) connection(ctx context.Context) (dataPlane, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return d.conn, nil
	}

	idx, err := d.control.DescribeIndex(ctx, d.spec.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: describing index %q: %v", vector.ErrIndexNotFound, d.spec.Name, err)
	}
	if idx.Host == "" {
		return nil, fmt.Errorf("%w: index %q has no host yet", vector.ErrConnection, d.spec.Name)
	}

	conn, err := d.dial(idx.Host)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to %s: %v", vector.ErrConnection, idx.Host, err)
	}

	d.logger.Debug("connected to pinecone index", "index", d.spec.Name, "host", idx.Host)
	d.conn = conn
	return conn, nil
}

// Upsert sends every record in one request.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	vectors, err := toVectors(records)
	if err != nil {
		return 0, err
	}

	conn, err := d.connection(ctx)
	if err != nil {
		return 0, err
	}

	count, err := conn.UpsertVectors(ctx, vectors)
	if err != nil {
		return 0, fmt.Errorf("upserting %d vectors: %w", len(vectors), err)
	}

	d.logger.Debug("upserted vectors to pinecone", "count", count)
	return int(count), nil
}

// Query returns the topK nearest vectors with their metadata.
func (d *Driver) Query(ctx context.Context, values []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 5
	}

	conn, err := d.connection(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          values,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("querying index %q: %w", d.spec.Name, err)
	}

	matches := make([]vector.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		match := vector.Match{ID: m.Vector.Id, Score: m.Score}
		if m.Vector.Metadata != nil {
			match.Metadata = m.Vector.Metadata.AsMap()
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Stats describes the index.
func (d *Driver) Stats(ctx context.Context) (*vector.Stats, error) {
	conn, err := d.connection(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := conn.DescribeIndexStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("describing index stats: %w", err)
	}

	stats := &vector.Stats{
		TotalVectorCount: int(resp.TotalVectorCount),
		Fullness:         resp.IndexFullness,
		Namespaces:       make(map[string]int, len(resp.Namespaces)),
	}
	if resp.Dimension != nil {
		stats.Dimension = int(*resp.Dimension)
	}
	for name, ns := range resp.Namespaces {
		if ns != nil {
			stats.Namespaces[name] = int(ns.VectorCount)
		}
	}
	return stats, nil
}

// Close closes the data plane connection if one was opened.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

func toVectors(records []vector.Record) ([]*pinecone.Vector, error) {
	vectors := make([]*pinecone.Vector, len(records))
	for i, r := range records {
		values := r.Values
		v := &pinecone.Vector{Id: r.ID, Values: &values}

		if len(r.Metadata) > 0 {
			md, err := structpb.NewStruct(r.Metadata)
			if err != nil {
				return nil, fmt.Errorf("encoding metadata for %q: %w", r.ID, err)
			}
			v.Metadata = md
		}
		vectors[i] = v
	}
	return vectors, nil
}

var _ vector.Driver = (*Driver)(nil)
