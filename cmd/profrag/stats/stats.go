// Package statscmder provides the stats command for describing the vector index.
package statscmder

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/profrag/pkg/app"
	"github.com/papercomputeco/profrag/pkg/cliui"
)

const statsLongDesc string = `Show statistics for the configured vector index.

Prints the index dimension, total vector count, fullness and per-namespace
counts as reported by the vector store. The index is not created.

Examples:
  profrag stats
  profrag stats --index-provider qdrant --index-target localhost:6334`

const statsShortDesc string = "Show vector index statistics"

func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := app.Viper(cmd, app.ConnectFlags())
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), v, app.Logger(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			return run(cmd.Context(), cmd.OutOrStdout(), a)
		},
	}

	app.AddFlags(cmd, app.ConnectFlags())

	return cmd
}

func run(ctx context.Context, w io.Writer, a *app.App) error {
	stats, err := a.Driver.Stats(ctx)
	if err != nil {
		return err
	}

	pairs := [][2]string{
		{"provider", a.Config.Index.Provider},
		{"index", a.Config.Index.Name},
		{"dimension", strconv.Itoa(stats.Dimension)},
		{"vectors", strconv.Itoa(stats.TotalVectorCount)},
		{"fullness", fmt.Sprintf("%.4f", stats.Fullness)},
	}

	names := make([]string, 0, len(stats.Namespaces))
	for ns := range stats.Namespaces {
		names = append(names, ns)
	}
	sort.Strings(names)
	for _, ns := range names {
		label := ns
		if label == "" {
			label = "(default)"
		}
		pairs = append(pairs, [2]string{"namespace " + label, strconv.Itoa(stats.Namespaces[ns])})
	}

	fmt.Fprintf(w, "\n%s\n", cliui.KeyValues("Index stats", pairs))
	return nil
}
