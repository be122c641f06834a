package database

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

// DriverDuckDB is the registry name of the embedded backend
const DriverDuckDB = "duckdb"

// DuckDBConfig holds DuckDB connection configuration
type DuckDBConfig struct {
	// Path of the database file, empty for an in-memory database.
	Path        string
	MemoryLimit string
	Threads     int
}

func init() {
	RegisterDatabase(DriverDuckDB, func(config interface{}) (DatabaseInterface, error) {
		cfg, ok := config.(*DuckDBConfig)
		if !ok {
			return nil, fmt.Errorf("duckdb config must be *DuckDBConfig")
		}
		return NewDuckDB(cfg)
	})
}

// DuckDB wraps a DuckDB connection with thread-safety
type DuckDB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// NewDuckDB creates a new DuckDB connection
func NewDuckDB(config *DuckDBConfig) (*DuckDB, error) {
	conn, err := sql.Open("duckdb", duckDBDSN(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping DuckDB: %w", err)
	}

	return &DuckDB{conn: conn}, nil
}

func duckDBDSN(config *DuckDBConfig) string {
	var params []string
	if config.MemoryLimit != "" {
		params = append(params, "memory_limit="+config.MemoryLimit)
	}
	if config.Threads > 0 {
		params = append(params, fmt.Sprintf("threads=%d", config.Threads))
	}
	if len(params) == 0 {
		return config.Path
	}
	return config.Path + "?" + strings.Join(params, "&")
}

// Close closes the database connection
func (db *DuckDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying sql.DB connection (thread-safe)
func (db *DuckDB) Conn() *sql.DB {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn
}

// Driver returns the registry name of the backend
func (db *DuckDB) Driver() string {
	return DriverDuckDB
}

// CreateSchema creates the snapshot tables if they do not exist
func (db *DuckDB) CreateSchema() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS installations (
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			dependency_group TEXT NOT NULL,
			commissioned_on DATE NOT NULL,
			has_commissioned_on BOOLEAN NOT NULL DEFAULT FALSE,
			commissioned_raw TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS incidents (
			installation_position INTEGER NOT NULL,
			position INTEGER NOT NULL,
			installation_id TEXT NOT NULL,
			id TEXT NOT NULL,
			description TEXT NOT NULL,
			occurred_on DATE NOT NULL,
			has_occurred_on BOOLEAN NOT NULL DEFAULT FALSE,
			occurred_raw TEXT NOT NULL,
			category TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS import_batches (
			id TEXT PRIMARY KEY,
			imported_at TIMESTAMP NOT NULL,
			sources TEXT NOT NULL,
			installations INTEGER NOT NULL,
			incidents INTEGER NOT NULL,
			skipped_rows INTEGER NOT NULL,
			duplicate_incidents INTEGER NOT NULL
		)`,
		"CREATE INDEX IF NOT EXISTS idx_incidents_date ON incidents(occurred_on)",
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create DuckDB schema: %w", err)
		}
	}
	return nil
}

// GetVersion returns the DuckDB version
func (db *DuckDB) GetVersion() (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var version string
	err := db.conn.QueryRow("SELECT version()").Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to get DuckDB version: %w", err)
	}

	return version, nil
}

// Ping tests the database connection
func (db *DuckDB) Ping() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.Ping()
}

// InsertStatement returns a parameterised single-row insert
func (db *DuckDB) InsertStatement(table string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)
}

// ClearStatement returns the statement emptying a table
func (db *DuckDB) ClearStatement(table string) string {
	return "DELETE FROM " + table
}

// Ensure DuckDB implements DatabaseInterface
var _ DatabaseInterface = (*DuckDB)(nil)
