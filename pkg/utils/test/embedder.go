package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// MockEmbedder is a test embedder that returns predictable embeddings.
type MockEmbedder struct {
	// Dimension is the length of generated embeddings.
	Dimension int

	// Embeddings overrides the generated vector for specific texts.
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when any input text matches.
	FailOn string

	mu     sync.Mutex
	calls  int
	inputs []string
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{
		Dimension:  dimension,
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	for _, t := range texts {
		if m.FailOn != "" && t == m.FailOn {
			return nil, fmt.Errorf("mock embedding failure for: %s", t)
		}
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		m.inputs = append(m.inputs, t)
		if emb, ok := m.Embeddings[t]; ok {
			out[i] = emb
			continue
		}
		out[i] = deterministicVector(t, m.Dimension)
	}
	return out, nil
}

// Calls returns how many times Embed was invoked.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Inputs returns every text embedded so far, in call order.
func (m *MockEmbedder) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inputs...)
}

func (m *MockEmbedder) Close() error {
	return nil
}

func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	v := make([]float32, dim)
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%1000) / 1000
	}
	return v
}
