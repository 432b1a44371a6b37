// Package profragcmder is the root profrag command.
package profragcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/profrag/cmd/profrag/ask"
	configcmder "github.com/papercomputeco/profrag/cmd/profrag/config"
	initcmder "github.com/papercomputeco/profrag/cmd/profrag/init"
	loadcmder "github.com/papercomputeco/profrag/cmd/profrag/load"
	searchcmder "github.com/papercomputeco/profrag/cmd/profrag/search"
	statscmder "github.com/papercomputeco/profrag/cmd/profrag/stats"
	versioncmder "github.com/papercomputeco/profrag/cmd/version"
)

const profragLongDesc string = `profrag loads professor reviews into a vector index and answers
questions over them.

Typical flow:
  profrag init --preset local          Create .profrag/config.toml
  profrag load -f reviews.json         Embed and upsert every review
  profrag stats                        Show index statistics
  profrag search "clear lectures"      Find similar reviews
  profrag ask "who should I take?"     Ask the Gemini-backed assistant`

const profragShortDesc string = "profrag - Rate My Professor RAG loader"

func NewProfragCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "profrag",
		Short:        profragShortDesc,
		Long:         profragLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .profrag/ config directory")

	// Add subcommands
	cmd.AddCommand(loadcmder.NewLoadCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
