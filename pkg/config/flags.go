package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g.,
// --embedding-provider on "profrag load", "profrag search" and "profrag ask").
type Flag struct {
	// Name is the long flag name (e.g. "index").
	Name string

	// Shorthand is the one-letter short flag (e.g. "f"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "index.name").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagReviews            = "reviews"
	FlagIndexProvider      = "index-provider"
	FlagIndexName          = "index"
	FlagIndexTarget        = "index-target"
	FlagIndexMetric        = "metric"
	FlagIndexCloud         = "cloud"
	FlagIndexRegion        = "region"
	FlagIndexNamespace     = "namespace"
	FlagEmbeddingProv      = "embedding-provider"
	FlagEmbeddingTgt       = "embedding-target"
	FlagEmbeddingModel     = "embedding-model"
	FlagEmbeddingDims      = "embedding-dimensions"
	FlagEmbeddingMaxTokens = "embedding-max-tokens"
	FlagEmbeddingRateLimit = "embedding-rate-limit"
	FlagEmbeddingCacheSize = "embedding-cache-size"
	FlagAssistantModel     = "assistant-model"
)

// Flags is the registry shared by every profrag command.
var Flags = FlagSet{
	FlagReviews:            {Name: "reviews", Shorthand: "f", ViperKey: "reviews.path", Description: "Path to the reviews JSON file"},
	FlagIndexProvider:      {Name: "index-provider", ViperKey: "index.provider", Description: "Vector store provider (pinecone, qdrant, chroma, pgvector, sqlite)"},
	FlagIndexName:          {Name: "index", Shorthand: "i", ViperKey: "index.name", Description: "Index, collection or table name"},
	FlagIndexTarget:        {Name: "index-target", ViperKey: "index.target", Description: "Vector store endpoint, connection string or file path"},
	FlagIndexMetric:        {Name: "metric", ViperKey: "index.metric", Description: "Similarity metric used when creating the index (cosine, euclidean, dotproduct)"},
	FlagIndexCloud:         {Name: "cloud", ViperKey: "index.cloud", Description: "Serverless cloud for new Pinecone indexes"},
	FlagIndexRegion:        {Name: "region", ViperKey: "index.region", Description: "Serverless region for new Pinecone indexes"},
	FlagIndexNamespace:     {Name: "namespace", ViperKey: "index.namespace", Description: "Pinecone namespace (default namespace when empty)"},
	FlagEmbeddingProv:      {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (tei, ollama, openai, gemini)"},
	FlagEmbeddingTgt:       {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL (provider default when empty)"},
	FlagEmbeddingModel:     {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:      {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensions; records of any other length are skipped"},
	FlagEmbeddingMaxTokens: {Name: "embedding-max-tokens", ViperKey: "embedding.max_tokens", Description: "Truncate input to this many tokens where the provider supports it"},
	FlagEmbeddingRateLimit: {Name: "embedding-rate-limit", ViperKey: "embedding.rate_limit", Description: "Maximum embedding requests per second (0 is unlimited)"},
	FlagEmbeddingCacheSize: {Name: "embedding-cache-size", ViperKey: "embedding.cache_size", Description: "Number of embeddings to cache in memory (0 disables)"},
	FlagAssistantModel:     {Name: "assistant-model", ViperKey: "assistant.model", Description: "Gemini model used to answer questions"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloatFlag registers a float64 flag on cmd from the given FlagSet.
func AddFloatFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *float64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultFloat(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

func defaultFloat(viperKey string) float64 {
	v := viper.New()
	setViperDefaults(v)
	return v.GetFloat64(viperKey)
}
