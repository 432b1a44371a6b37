// Package searchcmder provides the search command for semantic search over
// the review index.
package searchcmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/profrag/pkg/app"
	"github.com/papercomputeco/profrag/pkg/cliui"
	"github.com/papercomputeco/profrag/pkg/utils"
	"github.com/papercomputeco/profrag/pkg/vector"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

type searchCommander struct {
	query string
	topK  int
	quiet bool
}

const searchLongDesc string = `Search the review index.

Embeds the query with the configured embedding provider and returns the most
similar professors with their review, subject and star rating. The query
embedding must match --embedding-dimensions.

Use --quiet to output only professor names, one per line.

Examples:
  profrag search "easy grader for intro calculus"
  profrag search "explains proofs clearly" --top 10
  profrag search "organic chemistry" --quiet`

const searchShortDesc string = "Search reviews by meaning"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = strings.Join(args, " ")

			v, err := app.Viper(cmd, app.ConnectFlags())
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), v, app.Logger(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), a)
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only professor names, one per line (for piping)")
	app.AddFlags(cmd, app.ConnectFlags())

	return cmd
}

func (c *searchCommander) run(ctx context.Context, w io.Writer, a *app.App) error {
	if c.topK <= 0 {
		return fmt.Errorf("--top must be positive, got %d", c.topK)
	}

	matches, err := a.Loader.Search(ctx, c.query, c.topK)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		if !c.quiet {
			fmt.Fprintln(w, "No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, m := range matches {
			fmt.Fprintln(w, m.ID)
		}
		return nil
	}

	fmt.Fprintf(w, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search Results for:"),
		nameStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for i, m := range matches {
		printMatch(w, i+1, m)
	}

	return nil
}

func printMatch(w io.Writer, rank int, m vector.Match) {
	fmt.Fprintf(w, "  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", m.Score)),
		nameStyle.Render(m.ID),
	)

	text := strings.ReplaceAll(fmt.Sprint(m.Metadata["review"]), "\n", " ")
	text = utils.Truncate(text, 77)

	fmt.Fprintf(w, "  %s\n", previewStyle.Render(text))
	fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render(
		fmt.Sprintf("%v · %v stars", m.Metadata["subject"], m.Metadata["stars"]),
	))
}
