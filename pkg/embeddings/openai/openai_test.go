package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/profrag/pkg/embeddings"
	"github.com/papercomputeco/profrag/pkg/embeddings/openai"
)

var _ = Describe("Embedder", func() {
	var (
		srv     *httptest.Server
		gotBody map[string]any
		gotAuth string
		status  int
	)

	BeforeEach(func() {
		status = http.StatusOK
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/embeddings"))
			gotAuth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			if status != http.StatusOK {
				_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
				return
			}

			// Reply out of order to exercise index placement.
			_, _ = w.Write([]byte(`{
				"object": "list",
				"model": "text-embedding-3-small",
				"data": [
					{"object": "embedding", "index": 1, "embedding": [0.3, 0.4]},
					{"object": "embedding", "index": 0, "embedding": [0.1, 0.2]}
				],
				"usage": {"prompt_tokens": 2, "total_tokens": 2}
			}`))
		}))
		DeferCleanup(srv.Close)
	})

	newEmbedder := func() *openai.Embedder {
		e, err := openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     "sk-test",
			BaseURL:    srv.URL + "/v1",
			Dimensions: 2,
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("places vectors by response index", func() {
		out, err := newEmbedder().Embed(context.Background(), []string{"a", "b"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([][]float32{{0.1, 0.2}, {0.3, 0.4}}))

		Expect(gotAuth).To(Equal("Bearer sk-test"))
		Expect(gotBody).To(HaveKeyWithValue("model", "text-embedding-3-small"))
		Expect(gotBody).To(HaveKeyWithValue("dimensions", BeNumerically("==", 2)))
	})

	It("wraps API errors", func() {
		status = http.StatusUnauthorized

		_, err := newEmbedder().Embed(context.Background(), []string{"a", "b"})
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})

	It("requires an API key", func() {
		_, err := openai.NewEmbedder(openai.EmbedderConfig{})
		Expect(err).To(HaveOccurred())
	})
})
