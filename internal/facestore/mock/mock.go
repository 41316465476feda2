// Package mock provides a mock facestore.Backend for testing.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/kozaktomas/face-keeper/internal/facestore"
)

// MockBackend keeps the persisted records in memory
type MockBackend struct {
	mu        sync.Mutex
	records   []facestore.Record
	persisted bool
	saves     int

	// Error injection
	LoadError error
	SaveError error
}

// NewMockBackend creates a backend with nothing persisted
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Seed marks records as already persisted
func (m *MockBackend) Seed(records ...facestore.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = cloneRecords(records)
	m.persisted = true
}

// Load returns the persisted records or facestore.ErrNoData
func (m *MockBackend) Load(ctx context.Context) ([]facestore.Record, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.persisted {
		return nil, facestore.ErrNoData
	}
	return cloneRecords(m.records), nil
}

// Save replaces the persisted records
func (m *MockBackend) Save(ctx context.Context, records []facestore.Record) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = cloneRecords(records)
	m.persisted = true
	m.saves++
	return nil
}

// Persisted returns a copy of the last saved records
func (m *MockBackend) Persisted() []facestore.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRecords(m.records)
}

// Saves returns the number of successful saves
func (m *MockBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func cloneRecords(records []facestore.Record) []facestore.Record {
	out := make([]facestore.Record, len(records))
	for i, r := range records {
		r.Embedding = slices.Clone(r.Embedding)
		out[i] = r
	}
	return out
}
