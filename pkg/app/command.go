package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/profrag/pkg/config"
	"github.com/papercomputeco/profrag/pkg/logger"
)

// IndexFlags are the registry flags that select and shape the vector index.
var IndexFlags = []string{
	config.FlagIndexProvider,
	config.FlagIndexName,
	config.FlagIndexTarget,
	config.FlagIndexMetric,
	config.FlagIndexCloud,
	config.FlagIndexRegion,
	config.FlagIndexNamespace,
}

// EmbeddingFlags are the registry flags that configure the embedder.
var EmbeddingFlags = []string{
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagEmbeddingMaxTokens,
	config.FlagEmbeddingRateLimit,
	config.FlagEmbeddingCacheSize,
}

// ConnectFlags returns IndexFlags followed by EmbeddingFlags, the flags every
// command that builds an App accepts.
func ConnectFlags() []string {
	keys := make([]string, 0, len(IndexFlags)+len(EmbeddingFlags))
	keys = append(keys, IndexFlags...)
	return append(keys, EmbeddingFlags...)
}

// AddFlags registers the registry flags named by keys on cmd. Flag values
// are read back through viper once BindRegisteredFlags has run, so the
// targets here only hold cobra's parsed values.
func AddFlags(cmd *cobra.Command, keys []string) {
	sink := &config.Config{}

	for _, key := range keys {
		switch key {
		case config.FlagReviews:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Reviews.Path)
		case config.FlagIndexProvider:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Index.Provider)
		case config.FlagIndexName:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Index.Name)
		case config.FlagIndexTarget:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Index.Target)
		case config.FlagIndexMetric:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Index.Metric)
		case config.FlagIndexCloud:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Index.Cloud)
		case config.FlagIndexRegion:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Index.Region)
		case config.FlagIndexNamespace:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Index.Namespace)
		case config.FlagEmbeddingProv:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Embedding.Provider)
		case config.FlagEmbeddingTgt:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Embedding.Target)
		case config.FlagEmbeddingModel:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Embedding.Model)
		case config.FlagEmbeddingDims:
			config.AddUintFlag(cmd, config.Flags, key, &sink.Embedding.Dimensions)
		case config.FlagEmbeddingMaxTokens:
			config.AddUintFlag(cmd, config.Flags, key, &sink.Embedding.MaxTokens)
		case config.FlagEmbeddingRateLimit:
			config.AddFloatFlag(cmd, config.Flags, key, &sink.Embedding.RateLimit)
		case config.FlagEmbeddingCacheSize:
			config.AddUintFlag(cmd, config.Flags, key, &sink.Embedding.CacheSize)
		case config.FlagAssistantModel:
			config.AddStringFlag(cmd, config.Flags, key, &sink.Assistant.Model)
		}
	}
}

// Viper resolves configuration for cmd. It loads .env files, reads
// config.toml from --config-dir (or the default dot directory) and binds
// the registry flags named by keys.
func Viper(cmd *cobra.Command, keys []string) (*viper.Viper, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	if _, err := config.LoadDotEnv(configDir); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, keys)
	return v, nil
}

// Logger builds the command logger. Output goes to cmd's stderr so results
// printed on stdout stay pipeable.
func Logger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")

	return logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(true),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
}
