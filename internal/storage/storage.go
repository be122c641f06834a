package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/liftdiag/internal/database"
)

// Storage persists incident snapshots in a DuckDB or ClickHouse backend
type Storage struct {
	db database.DatabaseInterface
	mu sync.RWMutex
}

// New creates a Storage on an open backend and makes sure the schema exists
func New(db database.DatabaseInterface) (*Storage, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if err := db.CreateSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Open creates the backend named by driver from its config and wraps it
func Open(driver string, config interface{}) (*Storage, error) {
	db, err := database.CreateDatabase(driver, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", driver, err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Driver returns the backend name
func (s *Storage) Driver() string {
	return s.db.Driver()
}

// Version returns the backend server or library version
func (s *Storage) Version() (string, error) {
	return s.db.GetVersion()
}

// Ping checks the backend connection
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Ping()
}

// Close closes the backend
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// insertRows writes rows into table inside a single transaction through one
// prepared statement. ClickHouse turns this into one block insert.
func (s *Storage) insertRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin %s insert: %w", table, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, s.db.InsertStatement(table, columns))
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert %s row %d: %w", table, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s insert: %w", table, err)
	}
	return nil
}

func (s *Storage) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}
