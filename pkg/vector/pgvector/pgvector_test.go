package pgvector

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/profrag/pkg/logger"
	"github.com/papercomputeco/profrag/pkg/vector"
)

var _ = Describe("operators", func() {
	DescribeTable("maps metrics to operator and opclass",
		func(m vector.Metric, op, opclass string) {
			gotOp, gotClass, err := operators(m)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotOp).To(Equal(op))
			Expect(gotClass).To(Equal(opclass))
		},
		Entry("cosine", vector.Cosine, "<=>", "vector_cosine_ops"),
		Entry("euclidean", vector.Euclidean, "<->", "vector_l2_ops"),
		Entry("dot product", vector.DotProduct, "<#>", "vector_ip_ops"),
	)

	It("rejects unknown metrics", func() {
		_, _, err := operators(vector.Metric("manhattan"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("schema", func() {
	It("sizes the vector column and indexes it with HNSW", func() {
		stmts := schema(`"rag"`, "rag_embedding_idx", 768, "vector_cosine_ops")
		Expect(stmts).To(HaveLen(3))
		Expect(stmts[0]).To(ContainSubstring("CREATE EXTENSION IF NOT EXISTS vector"))
		Expect(stmts[1]).To(ContainSubstring(`CREATE TABLE "rag"`))
		Expect(stmts[1]).To(ContainSubstring("vector(768)"))
		Expect(stmts[1]).To(ContainSubstring("metadata jsonb"))
		Expect(stmts[2]).To(ContainSubstring(`"rag_embedding_idx"`))
		Expect(stmts[2]).To(ContainSubstring("USING hnsw (embedding vector_cosine_ops)"))
	})
})

var _ = Describe("NewDriver", func() {
	It("requires a connection string", func() {
		_, err := NewDriver(context.Background(), Config{
			Index: vector.IndexSpec{Name: "rag", Dimension: 3},
		}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("connection string is required")))
	})

	It("requires a dimension", func() {
		_, err := NewDriver(context.Background(), Config{
			ConnString: "postgres://localhost/profrag",
			Index:      vector.IndexSpec{Name: "rag"},
		}, logger.Nop())
		Expect(err).To(HaveOccurred())
	})
})

// Runs against a live server when PROFRAG_TEST_POSTGRES_URL is set.
var _ = Describe("Driver against Postgres", Ordered, func() {
	var (
		driver *Driver
		ctx    = context.Background()
	)

	BeforeAll(func() {
		url := os.Getenv("PROFRAG_TEST_POSTGRES_URL")
		if url == "" {
			Skip("PROFRAG_TEST_POSTGRES_URL not set")
		}

		var err error
		driver, err = NewDriver(ctx, Config{
			ConnString: url,
			Index:      vector.IndexSpec{Name: "profrag_test", Dimension: 3, Metric: vector.Cosine},
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		_, err = driver.pool.Exec(ctx, `DROP TABLE IF EXISTS "profrag_test"`)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if driver != nil {
			_, _ = driver.pool.Exec(ctx, `DROP TABLE IF EXISTS "profrag_test"`)
			Expect(driver.Close()).To(Succeed())
		}
	})

	It("creates the table once", func() {
		created, err := driver.EnsureIndex(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeTrue())

		created, err = driver.EnsureIndex(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeFalse())
	})

	It("upserts, overwrites and queries", func() {
		n, err := driver.Upsert(ctx, []vector.Record{
			{ID: "Dr. A", Values: []float32{1, 0, 0}, Metadata: map[string]any{"subject": "Math"}},
			{ID: "Dr. A", Values: []float32{0, 1, 0}, Metadata: map[string]any{"subject": "Art"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))

		stats, err := driver.Stats(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.TotalVectorCount).To(Equal(1))

		matches, err := driver.Query(ctx, []float32{0, 1, 0}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(1))
		Expect(matches[0].Metadata).To(HaveKeyWithValue("subject", "Art"))
	})
})
