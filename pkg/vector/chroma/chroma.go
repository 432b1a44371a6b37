// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/profrag/pkg/vector"
)

const (
	DefaultTenant   = "default_tenant"
	DefaultDatabase = "default_database"

	spaceKey = "hnsw:space"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL    string
	spec       vector.IndexSpec
	httpClient *http.Client
	logger     *slog.Logger

	mu           sync.Mutex
	collectionID string
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// Tenant and Database select the Chroma namespace. Default to
	// default_tenant and default_database.
	Tenant   string
	Database string

	// Index names the collection and its distance space.
	Index vector.IndexSpec
}

// NewDriver creates a Chroma driver. The collection is resolved lazily.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}
	if c.Index.Name == "" {
		return nil, errors.New("chroma collection name is required")
	}

	tenant := c.Tenant
	if tenant == "" {
		tenant = DefaultTenant
	}
	database := c.Database
	if database == "" {
		database = DefaultDatabase
	}

	return &Driver{
		baseURL: fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s",
			strings.TrimRight(c.URL, "/"), url.PathEscape(tenant), url.PathEscape(database)),
		spec: c.Index,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}, nil
}

// chromaDistance rewrites a Chroma distance into the convention
// vector.Score expects. Chroma reports ip as 1 - <a,b>, not -<a,b>.
func chromaDistance(m vector.Metric, d float64) float64 {
	if m == vector.DotProduct {
		return d - 1
	}
	return d
}

// space maps a metric onto Chroma's hnsw:space names.
func space(m vector.Metric) string {
	switch m {
	case vector.Euclidean:
		return "l2"
	case vector.DotProduct:
		return "ip"
	default:
		return "cosine"
	}
}

// EnsureIndex creates the collection when Chroma reports it missing.
func (d *Driver) EnsureIndex(ctx context.Context) (bool, error) {
	col, err := d.getCollection(ctx)
	if err == nil {
		d.setCollectionID(col.ID)
		if s, ok := col.Metadata[spaceKey].(string); ok && s != space(d.spec.Metric) {
			d.logger.Warn("existing chroma collection uses a different space",
				"collection", d.spec.Name, "existing", s, "configured", space(d.spec.Metric))
		}
		return false, nil
	}
	if !errors.Is(err, vector.ErrIndexNotFound) {
		return false, err
	}

	var created chromaCollection
	status, err := d.do(ctx, http.MethodPost, "/collections", chromaCreateRequest{
		Name:     d.spec.Name,
		Metadata: map[string]any{spaceKey: space(d.spec.Metric)},
	}, &created)
	if err != nil {
		return false, fmt.Errorf("creating collection %q: %w", d.spec.Name, err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return false, fmt.Errorf("creating collection %q: status %d", d.spec.Name, status)
	}

	d.setCollectionID(created.ID)
	d.logger.Info("created chroma collection",
		"collection", d.spec.Name,
		"collection_id", created.ID,
		"space", space(d.spec.Metric),
	)
	return true, nil
}

func (d *Driver) getCollection(ctx context.Context) (*chromaCollection, error) {
	var col chromaCollection
	status, err := d.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(d.spec.Name), nil, &col)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", vector.ErrIndexNotFound, d.spec.Name)
		}
		return nil, err
	}
	return &col, nil
}

func (d *Driver) setCollectionID(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.collectionID = id
}

func (d *Driver) resolveCollectionID(ctx context.Context) (string, error) {
	d.mu.Lock()
	id := d.collectionID
	d.mu.Unlock()
	if id != "" {
		return id, nil
	}

	col, err := d.getCollection(ctx)
	if err != nil {
		return "", err
	}
	d.setCollectionID(col.ID)
	return col.ID, nil
}

// Upsert writes all records with one /upsert request.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	id, err := d.resolveCollectionID(ctx)
	if err != nil {
		return 0, err
	}

	// Chroma rejects a batch that repeats an ID, so later records win
	// while the first occurrence keeps its position.
	pos := make(map[string]int, len(records))
	req := chromaUpsertRequest{
		IDs:        make([]string, 0, len(records)),
		Embeddings: make([][]float32, 0, len(records)),
		Metadatas:  make([]map[string]any, 0, len(records)),
	}
	for _, r := range records {
		if i, ok := pos[r.ID]; ok {
			req.Embeddings[i] = r.Values
			req.Metadatas[i] = r.Metadata
			continue
		}
		pos[r.ID] = len(req.IDs)
		req.IDs = append(req.IDs, r.ID)
		req.Embeddings = append(req.Embeddings, r.Values)
		req.Metadatas = append(req.Metadatas, r.Metadata)
	}

	if _, err := d.do(ctx, http.MethodPost, "/collections/"+id+"/upsert", req, nil); err != nil {
		return 0, fmt.Errorf("upserting %d records: %w", len(records), err)
	}

	d.logger.Debug("upserted records to chroma", "count", len(records))
	return len(records), nil
}

// Query finds the topK nearest records.
func (d *Driver) Query(ctx context.Context, values []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 5
	}

	id, err := d.resolveCollectionID(ctx)
	if err != nil {
		return nil, err
	}

	var resp chromaQueryResponse
	if _, err := d.do(ctx, http.MethodPost, "/collections/"+id+"/query", chromaQueryRequest{
		QueryEmbeddings: [][]float32{values},
		NResults:        topK,
		Include:         []string{"metadatas", "distances"},
	}, &resp); err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", d.spec.Name, err)
	}

	if len(resp.IDs) == 0 {
		return nil, nil
	}

	ids := resp.IDs[0]
	matches := make([]vector.Match, len(ids))
	for i, rid := range ids {
		matches[i].ID = rid
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			matches[i].Score = vector.Score(d.spec.Metric, chromaDistance(d.spec.Metric, float64(resp.Distances[0][i])))
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			matches[i].Metadata = resp.Metadatas[0][i]
		}
	}
	return matches, nil
}

// Stats returns the collection's record count.
func (d *Driver) Stats(ctx context.Context) (*vector.Stats, error) {
	col, err := d.getCollection(ctx)
	if err != nil {
		return nil, err
	}
	d.setCollectionID(col.ID)

	var count int
	if _, err := d.do(ctx, http.MethodGet, "/collections/"+col.ID+"/count", nil, &count); err != nil {
		return nil, fmt.Errorf("counting collection %q: %w", d.spec.Name, err)
	}

	stats := &vector.Stats{
		TotalVectorCount: count,
		Namespaces:       map[string]int{"": count},
	}
	if col.Dimension != nil {
		stats.Dimension = *col.Dimension
	}
	return stats, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return nil
}

// do sends a JSON request under the database path and decodes a 2xx body
// into out. It returns the status code even on failure.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

var _ vector.Driver = (*Driver)(nil)
