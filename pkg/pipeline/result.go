package pipeline

import (
	"fmt"

	"github.com/papercomputeco/profrag/pkg/vector"
)

// Result contains statistics from a load run.
type Result struct {
	// IndexCreated is true when the run provisioned the index.
	IndexCreated bool

	Reviews    int
	Embedded   int
	Skipped    int
	Duplicates int
	Upserted   int

	// Stats is the index description fetched after the upsert.
	Stats *vector.Stats
}

// Summary returns a human-readable summary of the load result.
func (r *Result) Summary() string {
	index := "existing index"
	if r.IndexCreated {
		index = "new index"
	}

	return fmt.Sprintf(
		"Load complete: %d reviews read, %d embedded, %d skipped (dimension mismatch), %d duplicate professors\n"+
			"Upserted %d vectors into %s\n"+
			"Index stats: %s",
		r.Reviews, r.Embedded, r.Skipped, r.Duplicates,
		r.Upserted, index,
		r.Stats,
	)
}
