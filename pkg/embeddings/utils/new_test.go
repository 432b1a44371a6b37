package embeddingutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/profrag/pkg/embeddings"
	"github.com/papercomputeco/profrag/pkg/embeddings/ollama"
	"github.com/papercomputeco/profrag/pkg/embeddings/tei"
	embeddingutils "github.com/papercomputeco/profrag/pkg/embeddings/utils"
)

var _ = Describe("NewEmbedder", func() {
	ctx := context.Background()

	It("builds the TEI embedder by default name", func() {
		e, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{ProviderType: "tei"})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&tei.Embedder{}))
	})

	It("builds the Ollama embedder", func() {
		e, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{ProviderType: "ollama"})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&ollama.Embedder{}))
	})

	It("wraps the provider in a cache when enabled", func() {
		e, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
			ProviderType: "tei",
			RateLimit:    5,
			CacheSize:    16,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&embeddings.Cached{}))
	})

	It("rate limits without a cache", func() {
		e, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{ProviderType: "tei", RateLimit: 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&embeddings.RateLimited{}))
	})

	It("requires an OpenAI key", func() {
		_, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{ProviderType: "openai"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{ProviderType: "cohere"})
		Expect(err).To(MatchError(ContainSubstring("unsupported embedding provider")))
	})
})
