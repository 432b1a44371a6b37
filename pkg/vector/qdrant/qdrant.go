// Package qdrant provides a vector.Driver backed by a Qdrant collection.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/profrag/pkg/vector"
)

const (
	// DefaultHost and DefaultPort address a local Qdrant gRPC endpoint.
	DefaultHost = "localhost"
	DefaultPort = 6334

	// idPayloadKey holds the original record ID, since Qdrant only accepts
	// UUIDs or integers as point IDs.
	idPayloadKey = "id"
)

// pointNamespace seeds the UUIDv5 derived from a record ID.
var pointNamespace = uuid.MustParse("6f1c2e0a-6b7d-4c1e-9a55-2d0f5e3b8c41")

type client interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	Close() error
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is "host:port" or a URL; https enables TLS. Defaults to
	// localhost:6334.
	Target string

	// APIKey authenticates against Qdrant Cloud.
	APIKey string

	// Index names the collection and its vector parameters.
	Index vector.IndexSpec
}

// Driver implements vector.Driver on Qdrant.
type Driver struct {
	client client
	spec   vector.IndexSpec
	logger *slog.Logger
}

// NewDriver connects to Qdrant.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	host, port, useTLS, err := parseTarget(c.Target)
	if err != nil {
		return nil, err
	}

	cl, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrConnection, err)
	}

	logger.Debug("created qdrant client", "host", host, "port", port, "tls", useTLS)
	return newDriver(cl, c.Index, logger)
}

func newDriver(cl client, spec vector.IndexSpec, logger *slog.Logger) (*Driver, error) {
	if spec.Name == "" {
		return nil, errors.New("qdrant collection name is required")
	}
	if spec.Metric == "" {
		spec.Metric = vector.Cosine
	}
	return &Driver{client: cl, spec: spec, logger: logger}, nil
}

func parseTarget(target string) (string, int, bool, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return DefaultHost, DefaultPort, false, nil
	}

	useTLS := false
	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", 0, false, fmt.Errorf("parsing qdrant target %q: %w", target, err)
		}
		useTLS = u.Scheme == "https"
		target = u.Host
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return target, DefaultPort, useTLS, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, useTLS, nil
}

func distance(m vector.Metric) qdrant.Distance {
	switch m {
	case vector.Euclidean:
		return qdrant.Distance_Euclid
	case vector.DotProduct:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

// PointID maps a record ID to the deterministic UUID used as its Qdrant
// point ID, so the same ID always overwrites the same point.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// EnsureIndex creates the collection when it does not exist.
func (d *Driver) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := d.client.CollectionExists(ctx, d.spec.Name)
	if err != nil {
		return false, fmt.Errorf("%w: checking collection %q: %v", vector.ErrConnection, d.spec.Name, err)
	}
	if exists {
		return false, nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.spec.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(d.spec.Dimension),
			Distance: distance(d.spec.Metric),
		}),
	})
	if err != nil {
		return false, fmt.Errorf("creating collection %q: %w", d.spec.Name, err)
	}

	d.logger.Info("created qdrant collection",
		"collection", d.spec.Name,
		"dimension", d.spec.Dimension,
		"metric", string(d.spec.Metric),
	)
	return true, nil
}

// Upsert writes all records in one request and waits for it to be applied.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		payload := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		payload[idPayloadKey] = r.ID

		values, err := qdrant.TryValueMap(payload)
		if err != nil {
			return 0, fmt.Errorf("encoding payload for %q: %w", r.ID, err)
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Values...),
			Payload: values,
		}
	}

	wait := true
	res, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.spec.Name,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	if res.GetStatus() != qdrant.UpdateStatus_Completed {
		return 0, fmt.Errorf("upsert not completed: status %s", res.GetStatus())
	}

	d.logger.Debug("upserted points to qdrant", "count", len(points))
	return len(points), nil
}

// Query returns the topK nearest points with their payloads.
func (d *Driver) Query(ctx context.Context, values []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 5
	}

	limit := uint64(topK)
	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.spec.Name,
		Query:          qdrant.NewQuery(values...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", d.spec.Name, err)
	}

	matches := make([]vector.Match, 0, len(points))
	for _, p := range points {
		md := make(map[string]any, len(p.GetPayload()))
		for k, v := range p.GetPayload() {
			md[k] = fromValue(v)
		}

		id, _ := md[idPayloadKey].(string)
		delete(md, idPayloadKey)
		if id == "" {
			id = p.GetId().GetUuid()
		}

		matches = append(matches, vector.Match{ID: id, Score: p.GetScore(), Metadata: md})
	}
	return matches, nil
}

// Stats reports the collection's point count and vector size.
func (d *Driver) Stats(ctx context.Context) (*vector.Stats, error) {
	info, err := d.client.GetCollectionInfo(ctx, d.spec.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %q: %v", vector.ErrIndexNotFound, d.spec.Name, err)
	}

	count := int(info.GetPointsCount())
	return &vector.Stats{
		Dimension:        int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()),
		TotalVectorCount: count,
		Namespaces:       map[string]int{"": count},
	}, nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func fromValue(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_StructValue:
		out := make(map[string]any, len(k.StructValue.GetFields()))
		for name, f := range k.StructValue.GetFields() {
			out[name] = fromValue(f)
		}
		return out
	case *qdrant.Value_ListValue:
		out := make([]any, 0, len(k.ListValue.GetValues()))
		for _, item := range k.ListValue.GetValues() {
			out = append(out, fromValue(item))
		}
		return out
	default:
		return nil
	}
}

var _ vector.Driver = (*Driver)(nil)
