// Package vectorutils builds a configured vector.Driver.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/profrag/pkg/vector"
	"github.com/papercomputeco/profrag/pkg/vector/chroma"
	"github.com/papercomputeco/profrag/pkg/vector/pgvector"
	"github.com/papercomputeco/profrag/pkg/vector/pinecone"
	"github.com/papercomputeco/profrag/pkg/vector/qdrant"
	"github.com/papercomputeco/profrag/pkg/vector/sqlitevec"
)

// Supported provider names.
const (
	ProviderPinecone = "pinecone"
	ProviderQdrant   = "qdrant"
	ProviderChroma   = "chroma"
	ProviderPgvector = "pgvector"
	ProviderSqlite   = "sqlite"
)

const (
	defaultChromaURL  = "http://localhost:8000"
	defaultSqlitePath = "profrag.db"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is the provider endpoint: a control plane host for
	// Pinecone, host:port for Qdrant, a URL for Chroma, a connection
	// string for pgvector and a file path for sqlite.
	TargetURL string
	APIKey    string
	Namespace string
	Index     vector.IndexSpec
	Logger    *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderPinecone:
		return pinecone.NewDriver(pinecone.Config{
			APIKey:    o.APIKey,
			Host:      o.TargetURL,
			Namespace: o.Namespace,
			Index:     o.Index,
		}, o.Logger)
	case ProviderQdrant:
		return qdrant.NewDriver(qdrant.Config{
			Target: o.TargetURL,
			APIKey: o.APIKey,
			Index:  o.Index,
		}, o.Logger)
	case ProviderChroma:
		url := o.TargetURL
		if url == "" {
			url = defaultChromaURL
		}
		return chroma.NewDriver(chroma.Config{
			URL:   url,
			Index: o.Index,
		}, o.Logger)
	case ProviderPgvector:
		return pgvector.NewDriver(ctx, pgvector.Config{
			ConnString: o.TargetURL,
			Index:      o.Index,
		}, o.Logger)
	case ProviderSqlite:
		path := o.TargetURL
		if path == "" {
			path = defaultSqlitePath
		}
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath: path,
			Index:  o.Index,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
