// Profrag CI
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/profrag/internal/dagger"
)

// Profrag is the main module for the profrag CI pipeline
type Profrag struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Profrag CI module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", "build", "tmp", ".profrag", ".env"]
	source *dagger.Directory,
) *Profrag {
	return &Profrag{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with gcc and CGO
// enabled for go-sqlite3 and sqlite-vec, with the project source mounted.
func (p *Profrag) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", p.Source)
}

// Test runs the unit tests. Set postgresURL to also run the pgvector
// driver against a live database.
func (p *Profrag) Test(
	ctx context.Context,

	// +optional
	postgresURL *dagger.Secret,
) (string, error) {
	ctr := p.goContainer()
	if postgresURL != nil {
		ctr = ctr.WithSecretVariable("PROFRAG_TEST_POSTGRES_URL", postgresURL)
	}

	return ctr.
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}
