package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/profrag/pkg/logger"
	"github.com/papercomputeco/profrag/pkg/pipeline"
	"github.com/papercomputeco/profrag/pkg/review"
	testutils "github.com/papercomputeco/profrag/pkg/utils/test"
	"github.com/papercomputeco/profrag/pkg/vector"
)

func writeDataset(contents string) string {
	path := filepath.Join(GinkgoT().TempDir(), "reviews.json")
	Expect(os.WriteFile(path, []byte(contents), 0o600)).To(Succeed())
	return path
}

var _ = Describe("Loader", func() {
	var (
		ctx      context.Context
		embedder *testutils.MockEmbedder
		driver   *testutils.MockVectorDriver
		logs     *bytes.Buffer
		loader   *pipeline.Loader
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder(pipeline.DefaultDimension)
		driver = testutils.NewMockVectorDriver(pipeline.DefaultDimension)
		logs = &bytes.Buffer{}

		var err error
		loader, err = pipeline.NewLoader(pipeline.Config{
			Embedder: embedder,
			Driver:   driver,
			Logger:   logger.New(logger.WithJSON(true), logger.WithWriter(logs)),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewLoader", func() {
		It("defaults to 768 dimensions", func() {
			Expect(loader.Dimension()).To(Equal(768))
		})

		It("requires an embedder", func() {
			_, err := pipeline.NewLoader(pipeline.Config{Driver: driver, Logger: logger.Nop()})
			Expect(err).To(HaveOccurred())
		})

		It("requires a driver", func() {
			_, err := pipeline.NewLoader(pipeline.Config{Embedder: embedder, Logger: logger.Nop()})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Transform", func() {
		reviews := []review.Review{
			{Professor: "Dr. A", Review: "Great lectures", Subject: "Math", Stars: 5},
			{Professor: "Dr. B", Review: "Too much homework", Subject: "Physics", Stars: 2},
			{Professor: "Dr. C", Review: "Fair grader", Subject: "History", Stars: 4},
		}

		It("embeds the review text of each review in order", func() {
			_, _, err := loader.Transform(ctx, reviews)
			Expect(err).NotTo(HaveOccurred())
			Expect(embedder.Inputs()).To(Equal([]string{
				"Great lectures", "Too much homework", "Fair grader",
			}))
			Expect(embedder.Calls()).To(Equal(3))
		})

		It("builds one triple per review keyed by professor", func() {
			records, skipped, err := loader.Transform(ctx, reviews)
			Expect(err).NotTo(HaveOccurred())
			Expect(skipped).To(BeEmpty())
			Expect(records).To(HaveLen(3))

			Expect(records[0].ID).To(Equal("Dr. A"))
			Expect(records[0].Values).To(HaveLen(768))
			Expect(records[0].Metadata).To(Equal(map[string]any{
				"review":  "Great lectures",
				"subject": "Math",
				"stars":   float64(5),
			}))
		})

		It("skips reviews whose embedding has the wrong length", func() {
			embedder.Embeddings["Too much homework"] = make([]float32, 5)

			records, skipped, err := loader.Transform(ctx, reviews)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(records) + len(skipped)).To(Equal(len(reviews)))
			Expect(skipped).To(ConsistOf(reviews[1]))
			for _, r := range records {
				Expect(r.Values).To(HaveLen(768))
				Expect(r.ID).NotTo(Equal("Dr. B"))
			}

			Expect(logs.String()).To(ContainSubstring(`"level":"WARN"`))
			Expect(logs.String()).To(ContainSubstring(`"professor":"Dr. B"`))
			Expect(logs.String()).To(ContainSubstring(`"got":5`))
			Expect(logs.String()).To(ContainSubstring(`"want":768`))
		})

		It("aborts on embedder errors", func() {
			embedder.FailOn = "Fair grader"

			_, _, err := loader.Transform(ctx, reviews)
			Expect(err).To(MatchError(ContainSubstring("Dr. C")))
		})

		It("handles an empty dataset", func() {
			records, skipped, err := loader.Transform(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
			Expect(skipped).To(BeEmpty())
		})
	})

	Describe("Run", func() {
		It("loads a single review end to end", func() {
			path := writeDataset(`{"reviews":[{"professor":"Dr. A","review":"Great","subject":"Math","stars":5}]}`)

			result, err := loader.Run(ctx, path)
			Expect(err).NotTo(HaveOccurred())

			Expect(embedder.Calls()).To(Equal(1))
			Expect(driver.UpsertCalls()).To(Equal(1))
			Expect(driver.LastUpsert()).To(HaveLen(1))
			Expect(driver.LastUpsert()[0].ID).To(Equal("Dr. A"))
			Expect(driver.LastUpsert()[0].Metadata).To(HaveKeyWithValue("subject", "Math"))

			Expect(result.Reviews).To(Equal(1))
			Expect(result.Embedded).To(Equal(1))
			Expect(result.Upserted).To(Equal(1))
			Expect(result.Stats.TotalVectorCount).To(Equal(1))
		})

		It("upserts nothing when every embedding has the wrong length", func() {
			embedder.Dimension = 5
			path := writeDataset(`{"reviews":[{"professor":"Dr. A","review":"Great","subject":"Math","stars":5}]}`)

			result, err := loader.Run(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Skipped).To(Equal(1))
			Expect(result.Upserted).To(BeZero())
			Expect(driver.LastUpsert()).To(BeEmpty())
			Expect(logs.String()).To(ContainSubstring(`"professor":"Dr. A"`))
		})

		It("creates a missing index exactly once", func() {
			path := writeDataset(`{"reviews":[]}`)

			result, err := loader.Run(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IndexCreated).To(BeTrue())
			Expect(driver.CreateCalls()).To(Equal(1))
		})

		It("does not create an index that already exists", func() {
			driver.Exists = true
			path := writeDataset(`{"reviews":[]}`)

			result, err := loader.Run(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IndexCreated).To(BeFalse())
			Expect(driver.CreateCalls()).To(BeZero())
		})

		It("lets the later review of a repeated professor win", func() {
			path := writeDataset(`{"reviews":[
				{"professor":"Dr. A","review":"First","subject":"Math","stars":1},
				{"professor":"Dr. A","review":"Second","subject":"Art","stars":4}
			]}`)

			result, err := loader.Run(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Upserted).To(Equal(2))
			Expect(result.Duplicates).To(Equal(1))
			Expect(result.Stats.TotalVectorCount).To(Equal(1))

			stored, ok := driver.Record("Dr. A")
			Expect(ok).To(BeTrue())
			Expect(stored.Metadata).To(HaveKeyWithValue("review", "Second"))
			Expect(logs.String()).To(ContainSubstring("more than once"))
		})

		It("fails on a missing dataset", func() {
			_, err := loader.Run(ctx, filepath.Join(GinkgoT().TempDir(), "missing.json"))
			Expect(err).To(MatchError(os.ErrNotExist))
			Expect(driver.UpsertCalls()).To(BeZero())
		})

		It("fails on malformed JSON", func() {
			path := writeDataset(`{"reviews":`)

			_, err := loader.Run(ctx, path)
			Expect(err).To(MatchError(review.ErrDecode))
		})

		It("surfaces upsert failures", func() {
			driver.UpsertErr = errors.New("boom")
			path := writeDataset(`{"reviews":[{"professor":"Dr. A","review":"Great","subject":"Math","stars":5}]}`)

			_, err := loader.Run(ctx, path)
			Expect(err).To(MatchError(ContainSubstring("boom")))
		})
	})

	Describe("Search", func() {
		It("returns the nearest stored review", func() {
			path := writeDataset(`{"reviews":[
				{"professor":"Dr. A","review":"Great lectures","subject":"Math","stars":5},
				{"professor":"Dr. B","review":"Boring","subject":"Art","stars":1}
			]}`)
			_, err := loader.Run(ctx, path)
			Expect(err).NotTo(HaveOccurred())

			matches, err := loader.Search(ctx, "Great lectures", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID).To(Equal("Dr. A"))
		})

		It("rejects query embeddings of the wrong length", func() {
			embedder.Embeddings["short"] = []float32{1, 2}

			_, err := loader.Search(ctx, "short", 5)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})
	})
})

var _ = Describe("Result", func() {
	It("summarizes counts and stats", func() {
		r := &pipeline.Result{
			IndexCreated: true,
			Reviews:      3,
			Embedded:     2,
			Skipped:      1,
			Upserted:     2,
			Stats:        &vector.Stats{Dimension: 768, TotalVectorCount: 2, Namespaces: map[string]int{"": 2}},
		}

		s := r.Summary()
		Expect(s).To(ContainSubstring("3 reviews read"))
		Expect(s).To(ContainSubstring("1 skipped"))
		Expect(s).To(ContainSubstring("Upserted 2 vectors into new index"))
		Expect(s).To(ContainSubstring("total_vectors=2"))
	})
})
