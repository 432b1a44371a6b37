package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/profrag/internal/dagger"
)

// Build returns a directory holding the profrag binary for linux/<arch>.
// CGO is required, so each architecture builds in its own native container.
func (p *Profrag) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	goarches := []string{"amd64", "arm64"}

	outputs := dag.Directory()

	for _, goarch := range goarches {
		path := fmt.Sprintf("linux/%s/", goarch)

		build := p.goContainer().
			WithEnvVariable("GOOS", "linux").
			WithEnvVariable("GOARCH", goarch).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/profrag"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (p *Profrag) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now().UTC().Format(time.RFC3339)

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/profrag/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/profrag/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/profrag/pkg/utils.Buildtime=%s'", buildtime),
	}

	return p.Build(ctx, strings.Join(ldflags, " "))
}
