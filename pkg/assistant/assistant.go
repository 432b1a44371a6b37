// Package assistant answers student questions about professors using
// retrieved reviews and a generative model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/profrag/pkg/vector"
)

// DefaultTopK is how many reviews are retrieved per question.
const DefaultTopK = 5

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// ErrNoQuestion is returned when the conversation does not end with a user turn.
var ErrNoQuestion = errors.New("conversation must end with a user message")

// Searcher finds reviews similar to a query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]vector.Match, error)
}

// Generator produces a model reply for a conversation.
type Generator interface {
	Generate(ctx context.Context, system string, conversation []Message) (string, error)
}

// Assistant answers questions grounded on the review index.
type Assistant struct {
	searcher  Searcher
	generator Generator
	system    string
	topK      int
	logger    *slog.Logger

	datasetInPrompt bool
}

// Config wires an Assistant.
type Config struct {
	Searcher  Searcher
	Generator Generator

	// SystemPrompt is sent as the model's system instruction.
	SystemPrompt string

	// DatasetInPrompt reports whether SystemPrompt embeds the review
	// dataset, so questions can point the model at it.
	DatasetInPrompt bool

	// TopK defaults to DefaultTopK.
	TopK int

	Logger *slog.Logger
}

func New(c Config) (*Assistant, error) {
	if c.Searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if c.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	topK := c.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Assistant{
		searcher:  c.Searcher,
		generator: c.Generator,
		system:    c.SystemPrompt,
		topK:      topK,
		logger:    c.Logger,

		datasetInPrompt: c.DatasetInPrompt,
	}, nil
}

// Ask answers the last user message of conversation. Earlier turns are
// passed to the model unchanged as history.
func (a *Assistant) Ask(ctx context.Context, conversation []Message) (string, error) {
	if len(conversation) == 0 || conversation[len(conversation)-1].Role != RoleUser {
		return "", ErrNoQuestion
	}
	query := conversation[len(conversation)-1].Content

	matches, err := a.searcher.Search(ctx, query, a.topK)
	if err != nil {
		return "", fmt.Errorf("retrieving reviews: %w", err)
	}
	a.logger.Debug("retrieved reviews", "query", query, "matches", len(matches))

	turns := make([]Message, len(conversation))
	copy(turns, conversation)
	turns[len(turns)-1].Content = contextualize(query, FormatMatches(matches), a.datasetInPrompt)

	reply, err := a.generator.Generate(ctx, a.system, turns)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return reply, nil
}
