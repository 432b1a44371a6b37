// Package app assembles the embedder, vector driver, loader and assistant
// from resolved configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/papercomputeco/profrag/pkg/assistant"
	"github.com/papercomputeco/profrag/pkg/config"
	"github.com/papercomputeco/profrag/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/profrag/pkg/embeddings/utils"
	"github.com/papercomputeco/profrag/pkg/pipeline"
	"github.com/papercomputeco/profrag/pkg/review"
	"github.com/papercomputeco/profrag/pkg/vector"
	vectorutils "github.com/papercomputeco/profrag/pkg/vector/utils"
)

// App holds the components built for one command invocation.
type App struct {
	Config   *config.Config
	Embedder embeddings.Embedder
	Driver   vector.Driver
	Loader   *pipeline.Loader

	viper  *viper.Viper
	logger *slog.Logger
}

// IndexSpec converts the index section of cfg into a vector.IndexSpec.
func IndexSpec(cfg *config.Config) (vector.IndexSpec, error) {
	metric, err := vector.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return vector.IndexSpec{}, err
	}
	if cfg.Embedding.Dimensions == 0 {
		return vector.IndexSpec{}, errors.New("embedding.dimensions must be set")
	}

	return vector.IndexSpec{
		Name:      cfg.Index.Name,
		Dimension: int(cfg.Embedding.Dimensions),
		Metric:    metric,
		Cloud:     cfg.Index.Cloud,
		Region:    cfg.Index.Region,
	}, nil
}

// New connects the configured vector store and embedding provider.
// Credentials are read from v.
func New(ctx context.Context, v *viper.Viper, logger *slog.Logger) (*App, error) {
	cfg := config.FromViper(v)

	spec, err := IndexSpec(cfg)
	if err != nil {
		return nil, err
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.Index.Provider,
		TargetURL:    cfg.Index.Target,
		APIKey:       config.APIKey(v, cfg.Index.Provider),
		Namespace:    cfg.Index.Namespace,
		Index:        spec,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s vector driver: %w", cfg.Index.Provider, err)
	}

	embedder, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       config.APIKey(v, cfg.Embedding.Provider),
		Dimensions:   cfg.Embedding.Dimensions,
		MaxTokens:    cfg.Embedding.MaxTokens,
		RateLimit:    cfg.Embedding.RateLimit,
		CacheSize:    int(cfg.Embedding.CacheSize),
	})
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("creating %s embedder: %w", cfg.Embedding.Provider, err)
	}

	loader, err := pipeline.NewLoader(pipeline.Config{
		Embedder:  embedder,
		Driver:    driver,
		Dimension: spec.Dimension,
		Logger:    logger,
	})
	if err != nil {
		embedder.Close()
		driver.Close()
		return nil, err
	}

	logger.Debug("app initialized",
		"index_provider", cfg.Index.Provider,
		"index", spec.Name,
		"embedding_provider", cfg.Embedding.Provider,
		"embedding_model", cfg.Embedding.Model,
		"dimension", spec.Dimension,
	)

	return &App{
		Config:   cfg,
		Embedder: embedder,
		Driver:   driver,
		Loader:   loader,
		viper:    v,
		logger:   logger,
	}, nil
}

// Assistant builds a Gemini-backed assistant over the loader that retrieves
// topK reviews per question. When withDataset is true the reviews file is
// embedded in the system prompt.
func (a *App) Assistant(ctx context.Context, withDataset bool, topK int) (*assistant.Assistant, error) {
	var reviews []review.Review
	if withDataset {
		var err error
		reviews, err = review.LoadFile(a.Config.Reviews.Path)
		if err != nil {
			return nil, err
		}
	}

	system, err := assistant.SystemPrompt(reviews)
	if err != nil {
		return nil, err
	}

	gen, err := assistant.NewGeminiGenerator(ctx, assistant.GeminiConfig{
		APIKey: a.viper.GetString(config.KeyGeminiAPIKey),
		Model:  a.Config.Assistant.Model,
	})
	if err != nil {
		return nil, err
	}

	return assistant.New(assistant.Config{
		Searcher:     a.Loader,
		Generator:    gen,
		SystemPrompt: system,
		TopK:         topK,
		Logger:       a.logger,

		DatasetInPrompt: len(reviews) > 0,
	})
}

// Close releases the embedder and driver.
func (a *App) Close() error {
	return errors.Join(a.Embedder.Close(), a.Driver.Close())
}
