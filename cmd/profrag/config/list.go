package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/profrag/pkg/cliui"
	"github.com/papercomputeco/profrag/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays every configuration key and its value from the config.toml file
stored in the .profrag/ directory, with defaults filled in.

Examples:
  profrag config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runList(w io.Writer, configDir string) error {
	cfger, err := openConfiger(w, configDir)
	if err != nil {
		return err
	}

	keys := config.ValidConfigKeys()
	pairs := make([][2]string, 0, len(keys))
	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		if value == "" {
			value = cliui.DimStyle.Render("<not set>")
		} else {
			value = cliui.ValueStyle.Render(fmt.Sprintf("%q", value))
		}
		pairs = append(pairs, [2]string{key, value})
	}

	fmt.Fprint(w, cliui.KeyValues("", pairs))
	return nil
}
