package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/papercomputeco/profrag/pkg/dotdir"
)

const envFile = ".env"

// LoadDotEnv loads ./.env and then <config dir>/.env into the process
// environment. Variables already set are never overwritten, so the earlier
// file and the real environment win. Missing files are skipped. It returns
// the files that were loaded.
func LoadDotEnv(configDir string) ([]string, error) {
	candidates := []string{envFile}

	target, err := dotdir.NewManager().File(configDir, envFile)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	if abs, err := filepath.Abs(envFile); err != nil || abs != target {
		candidates = append(candidates, target)
	}

	var loaded []string
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("reading %s: %w", path, err)
		}

		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("loading %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}

	return loaded, nil
}
