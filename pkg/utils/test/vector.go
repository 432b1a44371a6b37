package testutils

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/profrag/pkg/vector"
)

// MockVectorDriver is an in-memory vector.Driver that records every call.
type MockVectorDriver struct {
	// Exists reports whether the index is already provisioned.
	Exists bool

	// Dimension is reported by Stats.
	Dimension int

	// UpsertErr, when set, is returned from Upsert without storing anything.
	UpsertErr error

	mu          sync.Mutex
	createCalls int
	upsertCalls int
	lastUpsert  []vector.Record
	records     map[string]vector.Record
	order       []string
}

func NewMockVectorDriver(dimension int) *MockVectorDriver {
	return &MockVectorDriver{
		Dimension: dimension,
		records:   make(map[string]vector.Record),
	}
}

func (m *MockVectorDriver) EnsureIndex(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Exists {
		return false, nil
	}
	m.createCalls++
	m.Exists = true
	return true, nil
}

func (m *MockVectorDriver) Upsert(_ context.Context, records []vector.Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upsertCalls++
	if m.UpsertErr != nil {
		return 0, m.UpsertErr
	}

	m.lastUpsert = append([]vector.Record(nil), records...)
	for _, r := range records {
		if _, ok := m.records[r.ID]; !ok {
			m.order = append(m.order, r.ID)
		}
		m.records[r.ID] = r
	}
	return len(records), nil
}

func (m *MockVectorDriver) Query(_ context.Context, values []float32, topK int) ([]vector.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matches := make([]vector.Match, 0, len(m.records))
	for _, id := range m.order {
		r := m.records[id]
		matches = append(matches, vector.Match{
			ID:       r.ID,
			Score:    cosine(values, r.Values),
			Metadata: r.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MockVectorDriver) Stats(_ context.Context) (*vector.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &vector.Stats{
		Dimension:        m.Dimension,
		TotalVectorCount: len(m.records),
		Namespaces:       map[string]int{"": len(m.records)},
	}, nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

// CreateCalls returns how many times EnsureIndex created the index.
func (m *MockVectorDriver) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

// UpsertCalls returns how many times Upsert was invoked.
func (m *MockVectorDriver) UpsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertCalls
}

// LastUpsert returns the records passed to the most recent successful Upsert.
func (m *MockVectorDriver) LastUpsert() []vector.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpsert
}

// Record returns the stored record for id.
func (m *MockVectorDriver) Record(id string) (vector.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r, ok
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ vector.Driver = (*MockVectorDriver)(nil)
