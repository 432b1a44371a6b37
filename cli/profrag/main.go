package main

import (
	"os"

	profragcmder "github.com/papercomputeco/profrag/cmd/profrag"
)

func main() {
	cmd := profragcmder.NewProfragCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
