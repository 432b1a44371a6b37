// Package pgvector provides a Postgres vector driver backed by the pgvector
// extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/papercomputeco/profrag/pkg/vector"
)

// Driver implements vector.Driver on one Postgres table:
//
//	id text primary key, embedding vector(N), metadata jsonb
type Driver struct {
	pool   *pgxpool.Pool
	spec   vector.IndexSpec
	table  string
	logger *slog.Logger
}

// Config holds configuration for the pgvector driver.
type Config struct {
	// ConnString is a Postgres URL or DSN.
	ConnString string

	// Index names the table and sets the vector width and metric.
	Index vector.IndexSpec
}

// NewDriver opens a connection pool and pings the server.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.ConnString == "" {
		return nil, errors.New("postgres connection string is required")
	}
	if c.Index.Name == "" {
		return nil, errors.New("index name is required")
	}
	if c.Index.Dimension <= 0 {
		return nil, errors.New("pgvector embedding dimensions cannot be 0, must be configured")
	}

	spec := c.Index
	if spec.Metric == "" {
		spec.Metric = vector.Cosine
	}
	if _, _, err := operators(spec.Metric); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: creating pool: %w", vector.ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pinging postgres: %w", vector.ErrConnection, err)
	}

	logger.Debug("connected to postgres", "host", cfg.ConnConfig.Host, "table", spec.Name)

	return &Driver{
		pool:   pool,
		spec:   spec,
		table:  pgx.Identifier{spec.Name}.Sanitize(),
		logger: logger,
	}, nil
}

// operators returns the distance operator and HNSW operator class for a metric.
func operators(m vector.Metric) (string, string, error) {
	switch m {
	case vector.Cosine:
		return "<=>", "vector_cosine_ops", nil
	case vector.Euclidean:
		return "<->", "vector_l2_ops", nil
	case vector.DotProduct:
		return "<#>", "vector_ip_ops", nil
	default:
		return "", "", fmt.Errorf("unsupported pgvector metric %q", m)
	}
}

// schema returns the DDL statements that provision the table.
func schema(table, indexName string, dimension int, opclass string) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE %s (
			id text PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata jsonb NOT NULL DEFAULT '{}'::jsonb
		)`, table, dimension),
		fmt.Sprintf(`CREATE INDEX %s ON %s USING hnsw (embedding %s)`,
			pgx.Identifier{indexName}.Sanitize(), table, opclass),
	}
}

// EnsureIndex creates the table and its HNSW index when the table is absent.
// An existing table with a different vector width is left alone.
func (d *Driver) EnsureIndex(ctx context.Context) (bool, error) {
	var exists bool
	if err := d.pool.QueryRow(ctx,
		`SELECT to_regclass($1) IS NOT NULL`, d.table,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking for table %q: %w", d.spec.Name, err)
	}

	if exists {
		var typmod int
		err := d.pool.QueryRow(ctx, `
			SELECT atttypmod FROM pg_attribute
			WHERE attrelid = to_regclass($1) AND attname = 'embedding'`, d.table,
		).Scan(&typmod)
		if err == nil && typmod != d.spec.Dimension {
			d.logger.Warn("existing table has a different dimension",
				"table", d.spec.Name,
				"got", typmod,
				"want", d.spec.Dimension,
			)
		}
		return false, nil
	}

	_, opclass, _ := operators(d.spec.Metric)

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schema(d.table, d.spec.Name+"_embedding_idx", d.spec.Dimension, opclass) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return false, fmt.Errorf("provisioning table %q: %w", d.spec.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Info("created pgvector table",
		"table", d.spec.Name,
		"dimension", d.spec.Dimension,
		"metric", d.spec.Metric,
	)
	return true, nil
}

// Upsert sends every record in one batch. Rows sharing an id are replaced.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`, d.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		md := r.Metadata
		if md == nil {
			md = map[string]any{}
		}
		batch.Queue(stmt, r.ID, pgvector.NewVector(r.Values), md)
	}

	results := d.pool.SendBatch(ctx, batch)
	defer results.Close()

	accepted := 0
	for _, r := range records {
		tag, err := results.Exec()
		if err != nil {
			return accepted, fmt.Errorf("upserting %q: %w", r.ID, err)
		}
		accepted += int(tag.RowsAffected())
	}

	d.logger.Debug("upserted records to pgvector", "count", accepted)
	return accepted, nil
}

// Query orders rows by the metric's distance operator.
func (d *Driver) Query(ctx context.Context, values []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 5
	}
	op, _, _ := operators(d.spec.Metric)

	rows, err := d.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, metadata, embedding %[1]s $1 AS distance
		FROM %[2]s
		ORDER BY embedding %[1]s $1
		LIMIT $2`, op, d.table),
		pgvector.NewVector(values), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", d.spec.Name, err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var (
			m        vector.Match
			distance float64
		)
		if err := rows.Scan(&m.ID, &m.Metadata, &distance); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		m.Score = vector.Score(d.spec.Metric, distance)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return matches, nil
}

// Stats counts rows in the table.
func (d *Driver) Stats(ctx context.Context) (*vector.Stats, error) {
	var count int
	if err := d.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT count(*) FROM %s`, d.table),
	).Scan(&count); err != nil {
		return nil, fmt.Errorf("%w: counting %q: %w", vector.ErrIndexNotFound, d.spec.Name, err)
	}

	return &vector.Stats{
		Dimension:        d.spec.Dimension,
		TotalVectorCount: count,
		Namespaces:       map[string]int{"": count},
	}, nil
}

// Close closes the pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

var _ vector.Driver = (*Driver)(nil)
