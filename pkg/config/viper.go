package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/profrag/pkg/dotdir"
)

// Credential keys. Each resolves from its conventional environment variable
// (PINECONE_API_KEY, ...) or from the PROFRAG_-prefixed form.
const (
	KeyPineconeAPIKey = "credentials.pinecone_api_key"
	KeyQdrantAPIKey   = "credentials.qdrant_api_key"
	KeyOpenAIAPIKey   = "credentials.openai_api_key"
	KeyGeminiAPIKey   = "credentials.gemini_api_key"
	KeyTEIAPIKey      = "credentials.tei_api_key"
)

var credentialEnv = map[string][]string{
	KeyPineconeAPIKey: {"PINECONE_API_KEY", "PROFRAG_PINECONE_API_KEY"},
	KeyQdrantAPIKey:   {"QDRANT_API_KEY", "PROFRAG_QDRANT_API_KEY"},
	KeyOpenAIAPIKey:   {"OPENAI_API_KEY", "PROFRAG_OPENAI_API_KEY"},
	KeyGeminiAPIKey:   {"GEMINI_API_KEY", "PROFRAG_GEMINI_API_KEY"},
	KeyTEIAPIKey:      {"HF_API_TOKEN", "PROFRAG_TEI_API_KEY"},
}

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PROFRAG_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PROFRAG_INDEX_NAME, PROFRAG_EMBEDDING_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: PROFRAG_INDEX_PROVIDER, PROFRAG_REVIEWS_PATH, etc.
	v.SetEnvPrefix("PROFRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, envs := range credentialEnv {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Reviews
	v.SetDefault("reviews.path", d.Reviews.Path)

	// Index
	v.SetDefault("index.provider", d.Index.Provider)
	v.SetDefault("index.name", d.Index.Name)
	v.SetDefault("index.target", d.Index.Target)
	v.SetDefault("index.metric", d.Index.Metric)
	v.SetDefault("index.cloud", d.Index.Cloud)
	v.SetDefault("index.region", d.Index.Region)
	v.SetDefault("index.namespace", d.Index.Namespace)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.max_tokens", d.Embedding.MaxTokens)
	v.SetDefault("embedding.rate_limit", d.Embedding.RateLimit)
	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)

	// Assistant
	v.SetDefault("assistant.model", d.Assistant.Model)
}

// FromViper materializes the resolved settings in v into a Config.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Reviews: ReviewsConfig{
			Path: v.GetString("reviews.path"),
		},
		Index: IndexConfig{
			Provider:  v.GetString("index.provider"),
			Name:      v.GetString("index.name"),
			Target:    v.GetString("index.target"),
			Metric:    v.GetString("index.metric"),
			Cloud:     v.GetString("index.cloud"),
			Region:    v.GetString("index.region"),
			Namespace: v.GetString("index.namespace"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
			MaxTokens:  v.GetUint("embedding.max_tokens"),
			RateLimit:  v.GetFloat64("embedding.rate_limit"),
			CacheSize:  v.GetUint("embedding.cache_size"),
		},
		Assistant: AssistantConfig{
			Model: v.GetString("assistant.model"),
		},
	}
}

// APIKey returns the credential a provider needs, or "" when the provider
// takes none.
func APIKey(v *viper.Viper, provider string) string {
	switch provider {
	case "pinecone":
		return v.GetString(KeyPineconeAPIKey)
	case "qdrant":
		return v.GetString(KeyQdrantAPIKey)
	case "openai":
		return v.GetString(KeyOpenAIAPIKey)
	case "gemini":
		return v.GetString(KeyGeminiAPIKey)
	case "tei":
		return v.GetString(KeyTEIAPIKey)
	default:
		return ""
	}
}
