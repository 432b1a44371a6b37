package embeddings

import "fmt"

// MeanPool averages per-token hidden states along the sequence axis.
// Every token row must have the same width; the result has that width.
// An empty sequence pools to nil. Ragged rows fail with ErrEmbedding.
func MeanPool(tokens [][]float32) ([]float32, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	width := len(tokens[0])
	sum := make([]float64, width)
	for row, tok := range tokens {
		if len(tok) != width {
			return nil, fmt.Errorf("%w: token %d has width %d, want %d", ErrEmbedding, row, len(tok), width)
		}
		for i, v := range tok {
			sum[i] += float64(v)
		}
	}

	n := float64(len(tokens))
	out := make([]float32, width)
	for i, s := range sum {
		out[i] = float32(s / n)
	}
	return out, nil
}
