package config

const (
	defaultReviewsPath = "reviews.json"

	defaultIndexProvider = "pinecone"
	defaultIndexName     = "rag"
	defaultIndexMetric   = "cosine"
	defaultIndexCloud    = "aws"
	defaultIndexRegion   = "us-east-1"

	defaultEmbeddingProvider   = "tei"
	defaultEmbeddingModel      = "distilbert-base-uncased"
	defaultEmbeddingDimensions = 768
	defaultEmbeddingMaxTokens  = 512

	defaultAssistantModel = "gemini-2.0-flash"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
//
// Index and embedding targets default to empty so each provider falls back
// to its own endpoint.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Reviews: ReviewsConfig{
			Path: defaultReviewsPath,
		},
		Index: IndexConfig{
			Provider: defaultIndexProvider,
			Name:     defaultIndexName,
			Metric:   defaultIndexMetric,
			Cloud:    defaultIndexCloud,
			Region:   defaultIndexRegion,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			MaxTokens:  defaultEmbeddingMaxTokens,
		},
		Assistant: AssistantConfig{
			Model: defaultAssistantModel,
		},
	}
}
