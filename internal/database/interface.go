package database

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
)

// DatabaseInterface defines the common interface for all database backends
type DatabaseInterface interface {
	// Connection management
	Close() error
	Conn() *sql.DB
	Driver() string

	// Schema management
	CreateSchema() error
	GetVersion() (string, error)

	// Dialect
	InsertStatement(table string, columns []string) string
	ClearStatement(table string) string

	// Health check
	Ping() error
}

// Factory function type for creating database instances
type DatabaseFactory func(config interface{}) (DatabaseInterface, error)

var (
	registryMu sync.RWMutex

	// DatabaseRegistry holds factory functions for different database types.
	// Backends register themselves from init.
	DatabaseRegistry = map[string]DatabaseFactory{}
)

// RegisterDatabase registers a new database type with its factory function
func RegisterDatabase(dbType string, factory DatabaseFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	DatabaseRegistry[dbType] = factory
}

// CreateDatabase creates a database instance based on type and configuration
func CreateDatabase(dbType string, config interface{}) (DatabaseInterface, error) {
	registryMu.RLock()
	factory, exists := DatabaseRegistry[dbType]
	registryMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	return factory(config)
}

// Drivers lists the registered database types
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(DatabaseRegistry))
	for name := range DatabaseRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
