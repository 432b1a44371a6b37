package main

import (
	"context"
	"errors"
	"fmt"

	"dagger/profrag/internal/dagger"
)

// CheckGoMod verifies module checksums and fails when "go mod tidy" would
// change go.mod or go.sum.
//
// +check
func (p *Profrag) CheckGoMod(ctx context.Context) (string, error) {
	out, err := p.goContainer().
		WithExec([]string{"go", "mod", "verify"}).
		WithExec([]string{"sh", "-c", "cp go.mod /tmp/go.mod && cp go.sum /tmp/go.sum"}).
		WithExec([]string{"go", "mod", "tidy"}).
		WithExec([]string{"sh", "-c", "diff -u /tmp/go.mod go.mod && diff -u /tmp/go.sum go.sum"}).
		Stdout(ctx)

	var e *dagger.ExecError
	switch {
	case errors.As(err, &e):
		return "", fmt.Errorf("go.mod or go.sum are not tidy: run 'go mod tidy' and commit the result\n\n%s", e.Stdout)
	case err != nil:
		return "", fmt.Errorf("checking modules: %w", err)
	}

	return fmt.Sprintf("modules verified and tidy: %s", out), nil
}

// Vet runs "go vet" over the module.
//
// +check
func (p *Profrag) Vet(ctx context.Context) (string, error) {
	return p.goContainer().
		WithExec([]string{"go", "vet", "./..."}).
		Stdout(ctx)
}
