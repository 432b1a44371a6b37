// Package loadcmder provides the load command, which embeds a reviews file
// and upserts it into the configured vector index.
package loadcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/profrag/pkg/app"
	"github.com/papercomputeco/profrag/pkg/cliui"
	"github.com/papercomputeco/profrag/pkg/config"
	"github.com/papercomputeco/profrag/pkg/pipeline"
)

const loadLongDesc string = `Load professor reviews into the vector index.

Reads the reviews JSON file ({"reviews": [...]}), embeds every review with the
configured embedding provider, and upserts one vector per professor into the
index. The index is created first when it does not exist.

Reviews whose embedding does not match --embedding-dimensions are skipped with
a warning. Re-running re-embeds and re-upserts every review.

Credentials are read from the environment or a .env file:
  PINECONE_API_KEY, QDRANT_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, HF_API_TOKEN

Examples:
  profrag load
  profrag load -f reviews.json --index rag
  profrag load --index-provider sqlite --index-target profrag.db --embedding-provider ollama`

const loadShortDesc string = "Embed reviews and upsert them into the index"

func flagKeys() []string {
	return append([]string{config.FlagReviews}, app.ConnectFlags()...)
}

func NewLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: loadShortDesc,
		Long:  loadLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := app.Viper(cmd, flagKeys())
			if err != nil {
				return err
			}
			logger := app.Logger(cmd)

			a, err := app.New(cmd.Context(), v, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return run(cmd.Context(), cmd.OutOrStdout(), a)
		},
	}

	app.AddFlags(cmd, flagKeys())

	return cmd
}

func run(ctx context.Context, w io.Writer, a *app.App) error {
	path := a.Config.Reviews.Path
	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.HeaderStyle.Render("Loading"),
		cliui.ValueStyle.Render(path),
	)

	var result *pipeline.Result
	msg := fmt.Sprintf("Embedding and upserting into %s index %q", a.Config.Index.Provider, a.Config.Index.Name)
	err := cliui.Step(w, msg, func() error {
		var err error
		result, err = a.Loader.Run(ctx, path)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n\n", result.Summary())
	if result.Skipped > 0 {
		fmt.Fprintf(w, "  %s %d reviews were skipped; check the embedding model produces %d dimensions\n\n",
			cliui.WarnMark, result.Skipped, a.Loader.Dimension())
	}

	return nil
}
