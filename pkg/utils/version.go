// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Build metadata, set with -ldflags "-X github.com/papercomputeco/profrag/pkg/utils.Version=..."
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
