package database

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/liftdiag/internal/logging"
)

// DriverClickHouse is the registry name of the server backend
const DriverClickHouse = "clickhouse"

func init() {
	RegisterDatabase(DriverClickHouse, func(config interface{}) (DatabaseInterface, error) {
		chConfig, ok := config.(*ClickHouseConfig)
		if !ok {
			return nil, fmt.Errorf("clickhouse config must be *ClickHouseConfig")
		}
		return NewClickHouse(chConfig)
	})
}

// ClickHouseDB wraps a ClickHouse connection with thread-safety
type ClickHouseDB struct {
	conn   driver.Conn
	sqlDB  *sql.DB // used for the portable snapshot queries
	mu     sync.RWMutex
	config *ClickHouseConfig
}

// ClickHouseConfig holds ClickHouse connection configuration
type ClickHouseConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	UseSSL       bool
	MaxOpenConns int
	MaxIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	Compression  string
}

func (c *ClickHouseConfig) compression() *clickhouse.Compression {
	switch strings.ToLower(c.Compression) {
	case "none", "off":
		return nil
	case "zstd":
		return &clickhouse.Compression{Method: clickhouse.CompressionZSTD}
	default:
		return &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
	}
}

// NewClickHouse creates a new ClickHouse connection
func NewClickHouse(config *ClickHouseConfig) (*ClickHouseDB, error) {
	// IMPORTANT: Do NOT set MaxOpenConns/MaxIdleConns in Options due to driver bug
	// They must be set on the sql.DB after OpenDB
	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", config.Host, config.Port)},
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		DialTimeout: config.DialTimeout,
		ReadTimeout: config.ReadTimeout,
		Compression: config.compression(),
	}

	if config.UseSSL {
		options.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	sqlDB := clickhouse.OpenDB(options)

	// CRITICAL: Set pool settings AFTER OpenDB due to driver bug
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &ClickHouseDB{
		conn:   conn,
		sqlDB:  sqlDB,
		config: config,
	}, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var err error
	if db.sqlDB != nil {
		if sqlErr := db.sqlDB.Close(); sqlErr != nil {
			err = sqlErr
		}
	}

	if db.conn != nil {
		if connErr := db.conn.Close(); connErr != nil && err == nil {
			err = connErr
		}
	}

	return err
}

// Conn returns the database/sql handle
func (db *ClickHouseDB) Conn() *sql.DB {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.sqlDB
}

// NativeConn returns the native ClickHouse connection
func (db *ClickHouseDB) NativeConn() driver.Conn {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn
}

// Driver returns the registry name of the backend
func (db *ClickHouseDB) Driver() string {
	return DriverClickHouse
}

// CreateSchema creates the snapshot tables if they do not exist
func (db *ClickHouseDB) CreateSchema() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	ctx := context.Background()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS installations (
			position Int32,
			id String,
			name String,
			dependency_group LowCardinality(String),
			commissioned_on Date,
			has_commissioned_on Bool DEFAULT false,
			commissioned_raw String
		) ENGINE = MergeTree()
		ORDER BY position`,
		`CREATE TABLE IF NOT EXISTS incidents (
			installation_position Int32,
			position Int32,
			installation_id String,
			id String,
			description String,
			occurred_on Date,
			has_occurred_on Bool DEFAULT false,
			occurred_raw String,
			category LowCardinality(String)
		) ENGINE = MergeTree()
		ORDER BY (installation_position, position)`,
		`CREATE TABLE IF NOT EXISTS import_batches (
			id String,
			imported_at DateTime64(3, 'UTC'),
			sources String,
			installations Int32,
			incidents Int32,
			skipped_rows Int32,
			duplicate_incidents Int32
		) ENGINE = MergeTree()
		ORDER BY imported_at`,
	}

	for _, stmt := range statements {
		if err := db.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create ClickHouse schema: %w", err)
		}
	}

	indexes := []string{
		"ALTER TABLE incidents ADD INDEX IF NOT EXISTS idx_incidents_date occurred_on TYPE minmax GRANULARITY 1",
		"ALTER TABLE installations ADD INDEX IF NOT EXISTS idx_installations_id id TYPE bloom_filter GRANULARITY 1",
	}
	for _, stmt := range indexes {
		if err := db.conn.Exec(ctx, stmt); err != nil {
			// Older servers reject some index types; the tables work without them.
			logging.Warn("could not create ClickHouse index", logging.Err(err))
		}
	}

	return nil
}

// GetVersion returns the ClickHouse version
func (db *ClickHouseDB) GetVersion() (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	ctx := context.Background()
	var version string

	row := db.conn.QueryRow(ctx, "SELECT version()")
	if err := row.Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get ClickHouse version: %w", err)
	}

	return version, nil
}

// Ping tests the database connection
func (db *ClickHouseDB) Ping() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return db.conn.Ping(ctx)
}

// InsertStatement returns a batch insert header; rows are appended through
// a prepared statement inside a transaction.
func (db *ClickHouseDB) InsertStatement(table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(columns, ", "))
}

// ClearStatement returns the statement emptying a table
func (db *ClickHouseDB) ClearStatement(table string) string {
	return "TRUNCATE TABLE IF EXISTS " + table
}

// Ensure ClickHouseDB implements DatabaseInterface
var _ DatabaseInterface = (*ClickHouseDB)(nil)
