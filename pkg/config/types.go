package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent profrag configuration stored as
// config.toml in the .profrag/ directory. The TOML layout uses sections for
// logical grouping. Credentials are never written here; they come from the
// environment or a .env file.
type Config struct {
	Version   int             `toml:"version"`
	Reviews   ReviewsConfig   `toml:"reviews"`
	Index     IndexConfig     `toml:"index"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Assistant AssistantConfig `toml:"assistant"`
}

// ReviewsConfig locates the input dataset.
type ReviewsConfig struct {
	Path string `toml:"path,omitempty"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Provider  string `toml:"provider,omitempty"`
	Name      string `toml:"name,omitempty"`
	Target    string `toml:"target,omitempty"`
	Metric    string `toml:"metric,omitempty"`
	Cloud     string `toml:"cloud,omitempty"`
	Region    string `toml:"region,omitempty"`
	Namespace string `toml:"namespace,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string  `toml:"provider,omitempty"`
	Target     string  `toml:"target,omitempty"`
	Model      string  `toml:"model,omitempty"`
	Dimensions uint    `toml:"dimensions,omitempty"`
	MaxTokens  uint    `toml:"max_tokens,omitempty"`
	RateLimit  float64 `toml:"rate_limit,omitempty"`
	CacheSize  uint    `toml:"cache_size,omitempty"`
}

// AssistantConfig holds settings for the question answering command.
type AssistantConfig struct {
	Model string `toml:"model,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"reviews.path": stringKey(func(c *Config) *string { return &c.Reviews.Path }),

	"index.provider":  stringKey(func(c *Config) *string { return &c.Index.Provider }),
	"index.name":      stringKey(func(c *Config) *string { return &c.Index.Name }),
	"index.target":    stringKey(func(c *Config) *string { return &c.Index.Target }),
	"index.metric":    stringKey(func(c *Config) *string { return &c.Index.Metric }),
	"index.cloud":     stringKey(func(c *Config) *string { return &c.Index.Cloud }),
	"index.region":    stringKey(func(c *Config) *string { return &c.Index.Region }),
	"index.namespace": stringKey(func(c *Config) *string { return &c.Index.Namespace }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.max_tokens": uintKey("embedding.max_tokens", func(c *Config) *uint { return &c.Embedding.MaxTokens }),
	"embedding.cache_size": uintKey("embedding.cache_size", func(c *Config) *uint { return &c.Embedding.CacheSize }),
	"embedding.rate_limit": {
		get: func(c *Config) string {
			if c.Embedding.RateLimit == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Embedding.RateLimit, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.rate_limit: %w", err)
			}
			if f < 0 {
				return fmt.Errorf("invalid value for embedding.rate_limit: %v is negative", f)
			}
			c.Embedding.RateLimit = f
			return nil
		},
	},

	"assistant.model": stringKey(func(c *Config) *string { return &c.Assistant.Model }),
}
