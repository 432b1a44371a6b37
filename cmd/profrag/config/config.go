// Package configcmder provides the config command for managing persistent
// profrag configuration stored in the .profrag/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/profrag/pkg/cliui"
	"github.com/papercomputeco/profrag/pkg/config"
)

const configLongDesc string = `Manage persistent profrag configuration.

Configuration is stored as config.toml in the .profrag/ directory and provides
default values for command flags. Precedence, highest first: CLI flags,
PROFRAG_* environment variables, config.toml, built-in defaults.

Keys use dotted notation matching the TOML section structure:
  reviews.path,
  index.provider, index.name, index.target, index.metric,
  index.cloud, index.region, index.namespace,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  embedding.max_tokens, embedding.rate_limit, embedding.cache_size,
  assistant.model

API keys are never stored here. Set them in the environment or a .env file.

Use subcommands to get, set, or list configuration values:
  profrag config set <key> <value>    Set a configuration value
  profrag config get <key>            Get a configuration value
  profrag config list                 List all configuration values

Examples:
  profrag config set index.provider qdrant
  profrag config set embedding.dimensions 768
  profrag config get index.name
  profrag config list`

const configShortDesc string = "Manage persistent profrag configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if config.IsValidConfigKey(key) {
		return nil
	}
	if strings.HasPrefix(key, "credentials.") {
		return fmt.Errorf("%q is a credential: set it in the environment or a .env file", key)
	}
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

// openConfiger resolves the config file and prints which one is in use.
func openConfiger(w io.Writer, configDir string) (*config.Configer, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}

	return cfger, nil
}
