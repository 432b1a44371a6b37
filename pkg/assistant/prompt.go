package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papercomputeco/profrag/pkg/review"
	"github.com/papercomputeco/profrag/pkg/vector"
)

const guidelines = `Additionally, you should:

1. Be Conversational: Engage in natural, friendly conversation. Respond appropriately to social cues and casual remarks.

2. Stay on Topic: Only provide information about professors when explicitly asked. Don't offer unsolicited information about professors.

3. Understand Context: Pay attention to the flow of conversation. If a user thanks you or indicates they're done, respond appropriately without adding new information.

4. Be Concise: Provide brief, to-the-point answers unless asked for more details.

5. Ask for Clarification: If a query is ambiguous, ask for more details to ensure you understand the user's intent.

6. Be Honest: If you can't find information related to a query, politely inform the user.

Remember, your primary goal is to be helpful and maintain a natural conversation, providing information about professors only when directly asked.`

// SystemPrompt builds the Rate My Professor instruction. When reviews is
// non-empty the full dataset is embedded as reference material.
func SystemPrompt(reviews []review.Review) (string, error) {
	var b strings.Builder
	b.WriteString(`You are a helpful and knowledgeable assistant for students using a "Rate My Professor" platform. `)
	b.WriteString("Your primary task is to assist students in finding information about professors based on their queries.")

	if len(reviews) > 0 {
		data, err := json.MarshalIndent(reviews, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding reviews for prompt: %w", err)
		}
		b.WriteString(" Use the following review information to answer queries about professors:\n\n")
		b.Write(data)
	}

	b.WriteString("\n\n")
	b.WriteString(guidelines)
	return b.String(), nil
}

// FormatMatches renders matches as Professor/Review/Subject/Stars blocks.
func FormatMatches(matches []vector.Match) string {
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "Professor: %s\nReview: %v\nSubject: %v\nStars: %v\n\n",
			m.ID,
			m.Metadata["review"],
			m.Metadata["subject"],
			m.Metadata["stars"],
		)
	}
	return b.String()
}

// contextualize wraps the user's query with retrieved reviews. The
// system prompt is only cited as a source when it carries the dataset.
func contextualize(query, relevant string, datasetInPrompt bool) string {
	sources := "the relevant results above. If the information isn't found there"
	if datasetInPrompt {
		sources = "the reviews provided in the system prompt and the relevant results above. If the information isn't found in either source"
	}
	return fmt.Sprintf(`User Query: %s

Relevant information from the review index:
%s
Please answer the query using %s, please state that clearly.`,
		query, relevant, sources)
}
