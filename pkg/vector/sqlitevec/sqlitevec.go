// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/profrag/pkg/vector"
)

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Driver implements vector.Driver using SQLite with sqlite-vec.
//
// An index named "rag" is stored as two tables: rag_records maps record IDs
// to integer rowids and holds metadata, and rag_vectors is the vec0 virtual
// table keyed by the same rowids.
type Driver struct {
	db      *sql.DB
	spec    vector.IndexSpec
	records string
	vectors string
	logger  *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Index names the tables and sets the vector width and metric.
	Index vector.IndexSpec
}

// NewDriver opens the database and verifies sqlite-vec is loaded.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if c.Index.Dimension <= 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}
	if !validName.MatchString(c.Index.Name) {
		return nil, fmt.Errorf("invalid sqlite index name %q: use letters, digits and underscores", c.Index.Name)
	}

	spec := c.Index
	if spec.Metric == "" {
		spec.Metric = vector.Cosine
	}
	if spec.Metric == vector.DotProduct {
		return nil, fmt.Errorf("sqlite-vec does not support the %s metric", spec.Metric)
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	logger.Debug("sqlite-vec vector driver opened",
		"db_path", c.DBPath,
		"index", spec.Name,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:      db,
		spec:    spec,
		records: spec.Name + "_records",
		vectors: spec.Name + "_vectors",
		logger:  logger,
	}, nil
}

func (d *Driver) distanceMetric() string {
	if d.spec.Metric == vector.Euclidean {
		return "l2"
	}
	return "cosine"
}

// EnsureIndex creates both tables when the records table is absent.
func (d *Driver) EnsureIndex(ctx context.Context) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, d.records,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking for index %q: %w", d.spec.Name, err)
	}
	if n > 0 {
		return false, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE %s (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			metadata TEXT NOT NULL DEFAULT '{}'
		)`, d.records)); err != nil {
		return false, fmt.Errorf("creating records table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`CREATE VIRTUAL TABLE %s USING vec0(embedding float[%d] distance_metric=%s)`,
		d.vectors, d.spec.Dimension, d.distanceMetric(),
	)); err != nil {
		return false, fmt.Errorf("creating vec0 table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Info("created sqlite-vec index",
		"index", d.spec.Name,
		"dimension", d.spec.Dimension,
		"metric", d.distanceMetric(),
	)
	return true, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Upsert writes every record inside one transaction. Existing IDs get their
// metadata and embedding replaced.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if len(r.Values) != d.spec.Dimension {
			return 0, fmt.Errorf("%w: record %q has %d values, index %q expects %d",
				vector.ErrDimensionMismatch, r.ID, len(r.Values), d.spec.Name, d.spec.Dimension)
		}

		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return 0, fmt.Errorf("encoding metadata for %q: %w", r.ID, err)
		}
		blob := serializeFloat32(r.Values)

		var rowID int64
		err = tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT rowid FROM %s WHERE doc_id = ?`, d.records), r.ID,
		).Scan(&rowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %s SET metadata = ? WHERE rowid = ?`, d.records), string(md), rowID,
			); err != nil {
				return 0, fmt.Errorf("updating record %q: %w", r.ID, err)
			}
			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, d.vectors), rowID,
			); err != nil {
				return 0, fmt.Errorf("deleting old embedding for %q: %w", r.ID, err)
			}

		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(doc_id, metadata) VALUES (?, ?)`, d.records), r.ID, string(md),
			)
			if err != nil {
				return 0, fmt.Errorf("inserting record %q: %w", r.ID, err)
			}
			if rowID, err = res.LastInsertId(); err != nil {
				return 0, fmt.Errorf("getting rowid for %q: %w", r.ID, err)
			}

		default:
			return 0, fmt.Errorf("checking for existing record %q: %w", r.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, d.vectors), rowID, blob,
		); err != nil {
			return 0, fmt.Errorf("inserting embedding for %q: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted records to sqlite-vec", "count", len(records))
	return len(records), nil
}

// Query runs a KNN match and joins back to the records table.
func (d *Driver) Query(ctx context.Context, values []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT r.doc_id, r.metadata, v.distance
		FROM %s v
		INNER JOIN %s r ON r.rowid = v.rowid
		WHERE v.embedding MATCH ?
			AND k = ?
		ORDER BY v.distance
	`, d.vectors, d.records), serializeFloat32(values), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var (
			id, md   string
			distance float64
		)
		if err := rows.Scan(&id, &md, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		m := vector.Match{ID: id, Score: vector.Score(d.spec.Metric, distance)}
		if err := json.Unmarshal([]byte(md), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %q: %w", id, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}
	return matches, nil
}

// Stats counts stored records.
func (d *Driver) Stats(ctx context.Context) (*vector.Stats, error) {
	var count int
	if err := d.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT count(*) FROM %s`, d.records),
	).Scan(&count); err != nil {
		return nil, fmt.Errorf("%w: counting %q: %v", vector.ErrIndexNotFound, d.spec.Name, err)
	}

	return &vector.Stats{
		Dimension:        d.spec.Dimension,
		TotalVectorCount: count,
		Namespaces:       map[string]int{"": count},
	}, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*Driver)(nil)
