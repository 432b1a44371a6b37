package chroma_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/profrag/pkg/logger"
	"github.com/papercomputeco/profrag/pkg/vector"
	"github.com/papercomputeco/profrag/pkg/vector/chroma"
)

const base = "/api/v2/tenants/default_tenant/databases/default_database"

// fakeChroma is an in-memory stand-in for the subset of Chroma's v2 API
// the driver uses.
type fakeChroma struct {
	mu       sync.Mutex
	exists   bool
	creates  []map[string]any
	upserts  []map[string]any
	records  map[string]map[string]any
	lastBody map[string]any
	distance float32
}

func (f *fakeChroma) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+base+"/collections/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.exists {
			http.Error(w, `{"error":"NotFoundError"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":        "col-1",
			"name":      r.PathValue("name"),
			"dimension": 3,
			"metadata":  map[string]any{"hnsw:space": "cosine"},
		})
	})

	mux.HandleFunc("POST "+base+"/collections", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.creates = append(f.creates, body)
		f.exists = true
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "col-1", "name": body["name"]})
	})

	mux.HandleFunc("POST "+base+"/collections/col-1/upsert", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.upserts = append(f.upserts, body)
		ids, _ := body["ids"].([]any)
		mds, _ := body["metadatas"].([]any)
		seen := map[string]bool{}
		for _, id := range ids {
			if seen[id.(string)] {
				http.Error(w, `{"error":"DuplicateIDError"}`, http.StatusBadRequest)
				return
			}
			seen[id.(string)] = true
		}
		for i, id := range ids {
			md, _ := mds[i].(map[string]any)
			f.records[id.(string)] = md
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`true`))
	})

	mux.HandleFunc("POST "+base+"/collections/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lastBody = body
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ids":       [][]string{{"Dr. A"}},
			"distances": [][]float32{{f.distance}},
			"metadatas": [][]map[string]any{{{"subject": "Math"}}},
		})
	})

	mux.HandleFunc("GET "+base+"/collections/col-1/count", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(len(f.records))
	})

	return mux
}

var _ = Describe("Driver", func() {
	var (
		fake   *fakeChroma
		server *httptest.Server
		driver *chroma.Driver
	)

	BeforeEach(func() {
		fake = &fakeChroma{records: map[string]map[string]any{}}
		server = httptest.NewServer(fake.handler())

		var err error
		driver, err = chroma.NewDriver(chroma.Config{
			URL:   server.URL,
			Index: vector.IndexSpec{Name: "rag", Dimension: 3, Metric: vector.Cosine},
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewDriver", func() {
		It("requires a URL", func() {
			_, err := chroma.NewDriver(chroma.Config{Index: vector.IndexSpec{Name: "rag"}}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("chroma URL is required")))
		})

		It("requires a collection name", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: server.URL}, logger.Nop())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("EnsureIndex", func() {
		It("creates a missing collection with the cosine space", func() {
			created, err := driver.EnsureIndex(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())
			Expect(fake.creates).To(HaveLen(1))
			Expect(fake.creates[0]["name"]).To(Equal("rag"))
			Expect(fake.creates[0]["metadata"]).To(HaveKeyWithValue("hnsw:space", "cosine"))
		})

		It("leaves an existing collection alone", func() {
			fake.exists = true
			created, err := driver.EnsureIndex(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(fake.creates).To(BeEmpty())
		})
	})

	Describe("Upsert", func() {
		It("sends all records in one request and overwrites by ID", func() {
			fake.exists = true

			count, err := driver.Upsert(context.Background(), []vector.Record{
				{ID: "Dr. A", Values: []float32{1, 0, 0}, Metadata: map[string]any{"subject": "Math"}},
				{ID: "Dr. A", Values: []float32{0, 1, 0}, Metadata: map[string]any{"subject": "Physics"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
			Expect(fake.upserts).To(HaveLen(1))
			Expect(fake.records).To(HaveLen(1))
			Expect(fake.records["Dr. A"]).To(HaveKeyWithValue("subject", "Physics"))
		})

		It("collapses repeated IDs so Chroma accepts the batch", func() {
			fake.exists = true

			count, err := driver.Upsert(context.Background(), []vector.Record{
				{ID: "Dr. A", Values: []float32{1, 0, 0}, Metadata: map[string]any{"review": "First"}},
				{ID: "Dr. B", Values: []float32{0, 0, 1}, Metadata: map[string]any{"review": "Other"}},
				{ID: "Dr. A", Values: []float32{0, 1, 0}, Metadata: map[string]any{"review": "Second"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
			Expect(fake.upserts).To(HaveLen(1))
			Expect(fake.upserts[0]["ids"]).To(Equal([]any{"Dr. A", "Dr. B"}))
			Expect(fake.upserts[0]["embeddings"]).To(Equal([]any{
				[]any{0.0, 1.0, 0.0},
				[]any{0.0, 0.0, 1.0},
			}))
			Expect(fake.records["Dr. A"]).To(HaveKeyWithValue("review", "Second"))
		})

		It("fails when the collection is missing", func() {
			_, err := driver.Upsert(context.Background(), []vector.Record{{ID: "x", Values: []float32{1, 2, 3}}})
			Expect(err).To(MatchError(vector.ErrIndexNotFound))
		})
	})

	Describe("Query", func() {
		It("converts distances to scores", func() {
			fake.exists = true
			matches, err := driver.Query(context.Background(), []float32{1, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID).To(Equal("Dr. A"))
			Expect(matches[0].Score).To(BeNumerically("~", 1.0, 1e-6))
			Expect(matches[0].Metadata).To(HaveKeyWithValue("subject", "Math"))
			Expect(fake.lastBody["n_results"]).To(BeNumerically("==", 2))
		})
	})

	Describe("Query scores", func() {
		DescribeTable("map each Chroma space like the other distance stores",
			func(m vector.Metric, distance float32, want float64) {
				fake.exists = true
				fake.distance = distance

				d, err := chroma.NewDriver(chroma.Config{
					URL:   server.URL,
					Index: vector.IndexSpec{Name: "rag", Dimension: 3, Metric: m},
				}, logger.Nop())
				Expect(err).NotTo(HaveOccurred())

				matches, err := d.Query(context.Background(), []float32{1, 0, 0}, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(matches).To(HaveLen(1))
				Expect(matches[0].Score).To(BeNumerically("~", want, 1e-6))
			},
			Entry("cosine is 1 - distance", vector.Cosine, float32(0.25), 0.75),
			Entry("l2 lands in (0, 1]", vector.Euclidean, float32(1), 0.5),
			Entry("ip recovers the inner product", vector.DotProduct, float32(-2), 3.0),
		)
	})

	Describe("Stats", func() {
		It("reports count and dimension", func() {
			fake.exists = true
			_, err := driver.Upsert(context.Background(), []vector.Record{{ID: "Dr. A", Values: []float32{1, 0, 0}}})
			Expect(err).NotTo(HaveOccurred())

			stats, err := driver.Stats(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalVectorCount).To(Equal(1))
			Expect(stats.Dimension).To(Equal(3))
		})
	})

	Describe("Interface compliance", func() {
		It("implements vector.Driver", func() {
			var _ vector.Driver = (*chroma.Driver)(nil)
		})
	})
})
