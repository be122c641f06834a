package mocks

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/liftdiag/internal/database"
)

// MockDatabase is a mock implementation of DatabaseInterface for testing
type MockDatabase struct {
	mu sync.RWMutex

	// Mock data
	version    string
	pingError  error
	closeError error

	// Call tracking
	CreateSchemaCalled bool
	PingCalled         bool
	CloseCalled        bool
	GetVersionCalled   bool

	// Configurable behavior
	ShouldFailCreateSchema bool
	ShouldFailPing         bool
	ShouldFailClose        bool
	ShouldFailGetVersion   bool
}

var _ database.DatabaseInterface = (*MockDatabase)(nil)

// NewMockDatabase creates a new mock database
func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		version: "test-version-1.0.0",
	}
}

// Close mocks the Close method
func (m *MockDatabase) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CloseCalled = true

	if m.ShouldFailClose {
		return fmt.Errorf("mock close error")
	}

	return m.closeError
}

// Conn returns nil; the mock has no SQL connection
func (m *MockDatabase) Conn() *sql.DB {
	return nil
}

// Driver returns the mock driver name
func (m *MockDatabase) Driver() string {
	return "mock"
}

// CreateSchema mocks the CreateSchema method
func (m *MockDatabase) CreateSchema() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateSchemaCalled = true

	if m.ShouldFailCreateSchema {
		return fmt.Errorf("mock create schema error")
	}

	return nil
}

// GetVersion mocks the GetVersion method
func (m *MockDatabase) GetVersion() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetVersionCalled = true

	if m.ShouldFailGetVersion {
		return "", fmt.Errorf("mock get version error")
	}

	return m.version, nil
}

// InsertStatement builds a placeholder insert like the DuckDB backend
func (m *MockDatabase) InsertStatement(table string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)
}

// ClearStatement builds a delete-all statement
func (m *MockDatabase) ClearStatement(table string) string {
	return "DELETE FROM " + table
}

// Ping mocks the Ping method
func (m *MockDatabase) Ping() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PingCalled = true

	if m.ShouldFailPing {
		return fmt.Errorf("mock ping error")
	}

	return m.pingError
}

// SetVersion sets the version returned by GetVersion
func (m *MockDatabase) SetVersion(version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = version
}

// SetPingError sets the error returned by Ping
func (m *MockDatabase) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetCloseError sets the error returned by Close
func (m *MockDatabase) SetCloseError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeError = err
}

// Reset resets all call tracking flags
func (m *MockDatabase) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateSchemaCalled = false
	m.PingCalled = false
	m.CloseCalled = false
	m.GetVersionCalled = false

	m.ShouldFailCreateSchema = false
	m.ShouldFailPing = false
	m.ShouldFailClose = false
	m.ShouldFailGetVersion = false
}

// ClickHouseConfig returns a test ClickHouse configuration pointer
func ClickHouseConfig() *database.ClickHouseConfig {
	return &database.ClickHouseConfig{
		Host:     "localhost",
		Port:     9000,
		Database: "liftdiag_test",
		Username: "default",
		Password: "",
	}
}
