// Package review loads the professor review dataset.
package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultPath is where the loader looks for the dataset when no path is configured.
const DefaultPath = "reviews.json"

// ErrDecode is returned when the dataset is not valid JSON of the expected shape.
var ErrDecode = errors.New("decoding reviews")

// Review is a single student review of a professor.
type Review struct {
	// Professor is the professor's name. It doubles as the vector record ID,
	// so two reviews of the same professor collide.
	Professor string  `json:"professor"`
	Review    string  `json:"review"`
	Subject   string  `json:"subject"`
	Stars     float64 `json:"stars"`
}

// Dataset is the on-disk document: {"reviews": [...]}.
type Dataset struct {
	Reviews []Review `json:"reviews"`
}

// Metadata returns the fields stored alongside the review's embedding.
func (r Review) Metadata() map[string]any {
	return map[string]any{
		"review":  r.Review,
		"subject": r.Subject,
		"stars":   r.Stars,
	}
}

// Decode reads a dataset from r, keeping the reviews in file order.
func Decode(r io.Reader) ([]Review, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return ds.Reviews, nil
}

// LoadFile opens path and decodes it.
func LoadFile(path string) ([]Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening reviews file: %w", err)
	}
	defer f.Close()

	reviews, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reviews, nil
}
