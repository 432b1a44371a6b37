// Package askcmder provides the ask command, a retrieval-augmented chat over
// the review index answered by Gemini.
package askcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/profrag/pkg/app"
	"github.com/papercomputeco/profrag/pkg/assistant"
	"github.com/papercomputeco/profrag/pkg/cliui"
	"github.com/papercomputeco/profrag/pkg/config"
)

// Asker answers the last user turn of a conversation.
type Asker interface {
	Ask(ctx context.Context, conversation []assistant.Message) (string, error)
}

type askCommander struct {
	topK        int
	withDataset bool
	raw         bool
}

func (c *askCommander) render(interactive bool) func(string) string {
	if c.raw || !interactive {
		return func(s string) string { return s }
	}
	return cliui.Markdown
}

// IsTerminal reports whether r is a file attached to a terminal. Piped or
// in-memory input is not.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

const askLongDesc string = `Ask the Rate My Professor assistant a question.

Each question is embedded, the most similar reviews are retrieved from the
index, and Gemini answers using them as context. GEMINI_API_KEY must be set in
the environment or a .env file.

With a question argument the answer is printed once. Without arguments an
interactive session starts; earlier turns are kept as conversation history.
Enter an empty line or press Ctrl-D to quit. When stdin is piped each line is
answered in turn with no prompt and answers are printed as plain text.

Use --dataset to also include the full reviews file in the system prompt.
Answers are rendered as markdown unless --raw is set.

Examples:
  profrag ask "who is the best professor for organic chemistry?"
  profrag ask --top 10 --dataset
  profrag ask`

const askShortDesc string = "Ask questions about professors"

func flagKeys() []string {
	return append([]string{config.FlagReviews, config.FlagAssistantModel}, app.ConnectFlags()...)
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: askShortDesc,
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.Viper(cmd, flagKeys())
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), v, app.Logger(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			asker, err := a.Assistant(cmd.Context(), cmder.withDataset, cmder.topK)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				return AskOnce(cmd.Context(), cmd.OutOrStdout(), asker, cmder.render(true), strings.Join(args, " "))
			}

			interactive := IsTerminal(cmd.InOrStdin())
			return Chat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), asker, cmder.render(interactive), interactive)
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", assistant.DefaultTopK, "Number of reviews retrieved per question")
	cmd.Flags().BoolVar(&cmder.withDataset, "dataset", false, "Include the full reviews file in the system prompt")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print answers without markdown rendering")
	app.AddFlags(cmd, flagKeys())

	return cmd
}

// AskOnce prints the answer to a single question through render.
func AskOnce(ctx context.Context, w io.Writer, asker Asker, render func(string) string, question string) error {
	answer, err := asker.Ask(ctx, []assistant.Message{{Role: assistant.RoleUser, Content: question}})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, render(answer))
	return nil
}

// Chat reads questions line by line from r until EOF or an empty line,
// keeping the conversation history across turns. History holds the raw
// answers; only the printed copy goes through render. Unless interactive,
// the banner and prompts are left out and only answers are written.
func Chat(ctx context.Context, r io.Reader, w io.Writer, asker Asker, render func(string) string, interactive bool) error {
	var conversation []assistant.Message
	scanner := bufio.NewScanner(r)

	if interactive {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("Ask about professors. Empty line to quit."))
	}

	for {
		if interactive {
			fmt.Fprint(w, cliui.KeyStyle.Render("you> "))
		}
		if !scanner.Scan() {
			if interactive {
				fmt.Fprintln(w)
			}
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			return nil
		}

		conversation = append(conversation, assistant.Message{Role: assistant.RoleUser, Content: question})
		answer, err := asker.Ask(ctx, conversation)
		if err != nil {
			return err
		}
		conversation = append(conversation, assistant.Message{Role: assistant.RoleModel, Content: answer})

		if !interactive {
			fmt.Fprintln(w, render(answer))
			continue
		}
		fmt.Fprintf(w, "%s\n%s\n\n", cliui.HeaderStyle.Render("assistant>"), render(answer))
	}
}
