package sqlitevec_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/profrag/pkg/logger"
	"github.com/papercomputeco/profrag/pkg/vector"
	"github.com/papercomputeco/profrag/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var (
		driver *sqlitevec.Driver
		ctx    context.Context
	)

	newDriver := func(metric vector.Metric) *sqlitevec.Driver {
		d, err := sqlitevec.NewDriver(sqlitevec.Config{
			DBPath: ":memory:",
			Index:  vector.IndexSpec{Name: "rag", Dimension: 3, Metric: metric},
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver(vector.Cosine)
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	Describe("NewDriver", func() {
		It("rejects a zero dimension", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath: ":memory:",
				Index:  vector.IndexSpec{Name: "rag"},
			}, logger.Nop())
			Expect(err).To(HaveOccurred())
		})

		It("rejects index names that are not identifiers", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath: ":memory:",
				Index:  vector.IndexSpec{Name: "rag; DROP", Dimension: 3},
			}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("invalid sqlite index name")))
		})

		It("rejects the dot product metric", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath: ":memory:",
				Index:  vector.IndexSpec{Name: "rag", Dimension: 3, Metric: vector.DotProduct},
			}, logger.Nop())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("EnsureIndex", func() {
		It("creates the index once", func() {
			created, err := driver.EnsureIndex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())

			created, err = driver.EnsureIndex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
		})
	})

	Context("with an index", func() {
		BeforeEach(func() {
			_, err := driver.EnsureIndex(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("overwrites records sharing an ID", func() {
			n, err := driver.Upsert(ctx, []vector.Record{
				{ID: "Dr. A", Values: []float32{1, 0, 0}, Metadata: map[string]any{"subject": "Math"}},
				{ID: "Dr. B", Values: []float32{0, 1, 0}, Metadata: map[string]any{"subject": "Art"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			_, err = driver.Upsert(ctx, []vector.Record{
				{ID: "Dr. A", Values: []float32{0, 0, 1}, Metadata: map[string]any{"subject": "Physics"}},
			})
			Expect(err).NotTo(HaveOccurred())

			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalVectorCount).To(Equal(2))
			Expect(stats.Dimension).To(Equal(3))

			matches, err := driver.Query(ctx, []float32{0, 0, 1}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID).To(Equal("Dr. A"))
			Expect(matches[0].Metadata).To(HaveKeyWithValue("subject", "Physics"))
			Expect(matches[0].Score).To(BeNumerically("~", 1.0, 1e-5))
		})

		It("orders query results by similarity", func() {
			_, err := driver.Upsert(ctx, []vector.Record{
				{ID: "near", Values: []float32{1, 0.1, 0}},
				{ID: "far", Values: []float32{0, 0, 1}},
			})
			Expect(err).NotTo(HaveOccurred())

			matches, err := driver.Query(ctx, []float32{1, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].ID).To(Equal("near"))
			Expect(matches[1].ID).To(Equal("far"))
		})

		It("rejects records of the wrong width", func() {
			_, err := driver.Upsert(ctx, []vector.Record{
				{ID: "Dr. A", Values: []float32{1, 0}},
			})
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("accepts an empty batch", func() {
			n, err := driver.Upsert(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
		})
	})

	It("reports a missing index in Stats", func() {
		_, err := driver.Stats(ctx)
		Expect(err).To(MatchError(vector.ErrIndexNotFound))
	})

	It("implements vector.Driver", func() {
		var _ vector.Driver = driver
	})
})
