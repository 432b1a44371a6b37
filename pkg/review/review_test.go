package review_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/profrag/pkg/review"
)

var _ = Describe("Review", func() {
	Describe("Decode", func() {
		It("decodes reviews in file order", func() {
			reviews, err := review.Decode(strings.NewReader(`{"reviews":[
				{"professor":"Dr. A","review":"Great lecturer","subject":"Math","stars":5},
				{"professor":"Dr. B","review":"Hard exams","subject":"Physics","stars":2.5}
			]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(HaveLen(2))
			Expect(reviews[0]).To(Equal(review.Review{
				Professor: "Dr. A",
				Review:    "Great lecturer",
				Subject:   "Math",
				Stars:     5,
			}))
			Expect(reviews[1].Stars).To(Equal(2.5))
		})

		It("returns no reviews when the key is missing", func() {
			reviews, err := review.Decode(strings.NewReader(`{}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(BeEmpty())
		})

		It("wraps malformed JSON with ErrDecode", func() {
			_, err := review.Decode(strings.NewReader(`{"reviews": [`))
			Expect(err).To(MatchError(review.ErrDecode))
		})
	})

	Describe("LoadFile", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("loads a dataset from disk", func() {
			path := filepath.Join(dir, "reviews.json")
			Expect(os.WriteFile(path, []byte(`{"reviews":[{"professor":"Dr. A","review":"Great lecturer","subject":"Math","stars":5}]}`), 0o600)).To(Succeed())

			reviews, err := review.LoadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(HaveLen(1))
			Expect(reviews[0].Professor).To(Equal("Dr. A"))
		})

		It("fails when the file is missing", func() {
			_, err := review.LoadFile(filepath.Join(dir, "missing.json"))
			Expect(err).To(MatchError(os.ErrNotExist))
		})

		It("names the file in decode errors", func() {
			path := filepath.Join(dir, "bad.json")
			Expect(os.WriteFile(path, []byte(`not json`), 0o600)).To(Succeed())

			_, err := review.LoadFile(path)
			Expect(err).To(MatchError(review.ErrDecode))
			Expect(err.Error()).To(ContainSubstring("bad.json"))
		})
	})

	Describe("Metadata", func() {
		It("carries review, subject and stars", func() {
			r := review.Review{Professor: "Dr. A", Review: "Great lecturer", Subject: "Math", Stars: 5}
			Expect(r.Metadata()).To(Equal(map[string]any{
				"review":  "Great lecturer",
				"subject": "Math",
				"stars":   5.0,
			}))
		})
	})
})
