package assistant_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/profrag/pkg/assistant"
	"github.com/papercomputeco/profrag/pkg/logger"
	"github.com/papercomputeco/profrag/pkg/review"
	"github.com/papercomputeco/profrag/pkg/vector"
)

type fakeSearcher struct {
	matches []vector.Match
	err     error
	query   string
	topK    int
}

func (f *fakeSearcher) Search(_ context.Context, query string, topK int) ([]vector.Match, error) {
	f.query = query
	f.topK = topK
	return f.matches, f.err
}

type fakeGenerator struct {
	reply        string
	err          error
	system       string
	conversation []assistant.Message
}

func (f *fakeGenerator) Generate(_ context.Context, system string, conversation []assistant.Message) (string, error) {
	f.system = system
	f.conversation = conversation
	return f.reply, f.err
}

var _ = Describe("Assistant", func() {
	var (
		searcher  *fakeSearcher
		generator *fakeGenerator
		a         *assistant.Assistant
	)

	BeforeEach(func() {
		searcher = &fakeSearcher{matches: []vector.Match{{
			ID:    "Dr. A",
			Score: 0.9,
			Metadata: map[string]any{
				"review":  "Great lectures",
				"subject": "Math",
				"stars":   float64(5),
			},
		}}}
		generator = &fakeGenerator{reply: "Dr. A is great."}

		var err error
		a, err = assistant.New(assistant.Config{
			Searcher:     searcher,
			Generator:    generator,
			SystemPrompt: "be helpful",
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("retrieves the top five reviews for the last user message", func() {
		reply, err := a.Ask(context.Background(), []assistant.Message{
			{Role: assistant.RoleUser, Content: "hi"},
			{Role: assistant.RoleModel, Content: "hello"},
			{Role: assistant.RoleUser, Content: "Who teaches Math well?"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("Dr. A is great."))

		Expect(searcher.query).To(Equal("Who teaches Math well?"))
		Expect(searcher.topK).To(Equal(5))
	})

	It("sends history unchanged and the question with retrieved context", func() {
		conversation := []assistant.Message{
			{Role: assistant.RoleUser, Content: "hi"},
			{Role: assistant.RoleModel, Content: "hello"},
			{Role: assistant.RoleUser, Content: "Who teaches Math well?"},
		}
		_, err := a.Ask(context.Background(), conversation)
		Expect(err).NotTo(HaveOccurred())

		Expect(generator.system).To(Equal("be helpful"))
		Expect(generator.conversation).To(HaveLen(3))
		Expect(generator.conversation[:2]).To(Equal(conversation[:2]))

		last := generator.conversation[2]
		Expect(last.Role).To(Equal(assistant.RoleUser))
		Expect(last.Content).To(ContainSubstring("User Query: Who teaches Math well?"))
		Expect(last.Content).To(ContainSubstring("Professor: Dr. A"))
		Expect(last.Content).To(ContainSubstring("Stars: 5"))

		Expect(conversation[2].Content).To(Equal("Who teaches Math well?"))
	})

	It("does not cite the system prompt when it carries no dataset", func() {
		_, err := a.Ask(context.Background(), []assistant.Message{
			{Role: assistant.RoleUser, Content: "Who teaches Math well?"},
		})
		Expect(err).NotTo(HaveOccurred())

		last := generator.conversation[0].Content
		Expect(last).To(ContainSubstring("using the relevant results above"))
		Expect(last).NotTo(ContainSubstring("system prompt"))
	})

	It("cites the system prompt when the dataset is embedded", func() {
		withDataset, err := assistant.New(assistant.Config{
			Searcher:        searcher,
			Generator:       generator,
			SystemPrompt:    "be helpful",
			Logger:          logger.Nop(),
			DatasetInPrompt: true,
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = withDataset.Ask(context.Background(), []assistant.Message{
			{Role: assistant.RoleUser, Content: "Who teaches Math well?"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(generator.conversation[0].Content).To(ContainSubstring("the reviews provided in the system prompt"))
	})

	It("requires the conversation to end with a user turn", func() {
		_, err := a.Ask(context.Background(), []assistant.Message{
			{Role: assistant.RoleModel, Content: "hello"},
		})
		Expect(err).To(MatchError(assistant.ErrNoQuestion))

		_, err = a.Ask(context.Background(), nil)
		Expect(err).To(MatchError(assistant.ErrNoQuestion))
	})

	It("surfaces retrieval errors", func() {
		searcher.err = vector.ErrDimensionMismatch

		_, err := a.Ask(context.Background(), []assistant.Message{
			{Role: assistant.RoleUser, Content: "q"},
		})
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))
	})

	It("surfaces generation errors", func() {
		generator.err = errors.New("quota exceeded")

		_, err := a.Ask(context.Background(), []assistant.Message{
			{Role: assistant.RoleUser, Content: "q"},
		})
		Expect(err).To(MatchError(ContainSubstring("quota exceeded")))
	})
})

var _ = Describe("SystemPrompt", func() {
	It("embeds the dataset when given", func() {
		prompt, err := assistant.SystemPrompt([]review.Review{
			{Professor: "Dr. A", Review: "Great", Subject: "Math", Stars: 5},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(prompt).To(ContainSubstring("Rate My Professor"))
		Expect(prompt).To(ContainSubstring(`"professor": "Dr. A"`))
		Expect(prompt).To(ContainSubstring("Be Honest"))
	})

	It("omits the dataset section when empty", func() {
		prompt, err := assistant.SystemPrompt(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(prompt).NotTo(ContainSubstring("Use the following review information"))
	})
})

var _ = Describe("FormatMatches", func() {
	It("renders one block per match", func() {
		out := assistant.FormatMatches([]vector.Match{
			{ID: "Dr. A", Metadata: map[string]any{"review": "Great", "subject": "Math", "stars": 5}},
			{ID: "Dr. B", Metadata: map[string]any{"review": "Meh", "subject": "Art", "stars": 2}},
		})
		Expect(out).To(Equal(
			"Professor: Dr. A\nReview: Great\nSubject: Math\nStars: 5\n\n" +
				"Professor: Dr. B\nReview: Meh\nSubject: Art\nStars: 2\n\n",
		))
	})
})
