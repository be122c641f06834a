package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/storage"
)

// MockStorage is an in-memory implementation of storage.Operations
type MockStorage struct {
	mu sync.RWMutex

	// Mock data
	Installations []database.Installation
	Batches       []database.ImportBatch // newest last

	// Behavior configuration
	ShouldFailReplace bool
	ShouldFailLoad    bool
	ShouldFailPing    bool

	// AfterReplace runs once a batch is recorded, outside the mock's lock
	AfterReplace func(batch database.ImportBatch)

	// Call tracking
	ReplaceCalled int
	LoadCalled    int
	Closed        bool
}

var _ storage.Operations = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage holding installations
func NewMockStorage(installations ...database.Installation) *MockStorage {
	return &MockStorage{Installations: installations}
}

// ReplaceSnapshot mocks replacing the stored snapshot
func (m *MockStorage) ReplaceSnapshot(ctx context.Context, installations []database.Installation, batch database.ImportBatch) error {
	m.mu.Lock()
	m.ReplaceCalled++

	if m.ShouldFailReplace {
		m.mu.Unlock()
		return fmt.Errorf("mock replace snapshot error")
	}

	m.Installations = append([]database.Installation(nil), installations...)
	m.Batches = append(m.Batches, batch)
	hook := m.AfterReplace
	m.mu.Unlock()

	if hook != nil {
		hook(batch)
	}
	return nil
}

// LoadSnapshot mocks loading the stored snapshot
func (m *MockStorage) LoadSnapshot(ctx context.Context) (*storage.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoadCalled++

	if m.ShouldFailLoad {
		return nil, fmt.Errorf("mock load snapshot error")
	}

	snap := &storage.Snapshot{
		Installations: append([]database.Installation(nil), m.Installations...),
	}
	if n := len(m.Batches); n > 0 {
		batch := m.Batches[n-1]
		snap.Batch = &batch
	}
	return snap, nil
}

// LatestImport mocks getting the newest import batch
func (m *MockStorage) LatestImport(ctx context.Context) (*database.ImportBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.Batches) == 0 {
		return nil, storage.ErrNoImport
	}
	batch := m.Batches[len(m.Batches)-1]
	return &batch, nil
}

// ListImports mocks listing import batches, newest first
func (m *MockStorage) ListImports(ctx context.Context, limit int) ([]database.ImportBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []database.ImportBatch{}
	for i := len(m.Batches) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, m.Batches[i])
	}
	return result, nil
}

// Ping mocks the connection check
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ShouldFailPing {
		return fmt.Errorf("mock ping error")
	}
	return nil
}

// Close mocks closing the storage
func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	return nil
}
