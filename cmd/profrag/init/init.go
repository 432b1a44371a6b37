// Package initcmder provides the init command for initializing a local .profrag
// directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/profrag/pkg/cliui"
	"github.com/papercomputeco/profrag/pkg/config"
)

const (
	dirName = ".profrag"
)

const initLongDesc string = `Initialize a new .profrag/ directory in the current working directory.

Creates a local .profrag/ directory that takes precedence over the default
~/.profrag/ directory, and writes a config.toml populated from a preset.
An existing config.toml is left untouched.

Presets:
  pinecone   Pinecone serverless index + TEI distilbert embeddings (default)
  qdrant     Qdrant on localhost:6334 + TEI distilbert embeddings
  local      sqlite-vec file + Ollama nomic-embed-text
  openai     Pinecone + OpenAI text-embedding-3-small at 768 dimensions

Credentials are not stored in config.toml. Put them in .env or
.profrag/.env instead.

Examples:
  profrag init
  profrag init --preset local`

const initShortDesc string = "Initialize a local .profrag/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if preset == "" {
				return nil
			}
			_, err := config.PresetConfig(preset)
			return err
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Config preset: "+strings.Join(config.ValidPresetNames(), ", "))
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Printf("Already initialized: %s\n", dir)
	case err == nil:
		return fmt.Errorf("%s exists and is not a directory", dir)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .profrag directory: %w", err)
		}
		fmt.Printf("Initialized .profrag directory: %s\n", dir)
	}

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  %s %s\n", cliui.DimStyle.Render("Keeping existing"), cliui.DimStyle.Render(path))
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfg := config.NewDefaultConfig()
	if preset != "" {
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("  %s Wrote %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(path))
	return nil
}
