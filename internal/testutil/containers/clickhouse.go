package containers

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/liftdiag/internal/database"
)

// EnvClickHouseHost names the variable pointing tests at a running ClickHouse
// server. Tests using this package are skipped when it is unset.
const EnvClickHouseHost = "LIFTDIAG_CLICKHOUSE_HOST"

// ClickHouseServer is a throwaway database on an external ClickHouse server
type ClickHouseServer struct {
	Database string
	Config   database.ClickHouseConfig
}

// NewClickHouseServer creates a uniquely named test database on the server
// named by LIFTDIAG_CLICKHOUSE_HOST and drops it when the test ends
func NewClickHouseServer(t *testing.T) *ClickHouseServer {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping ClickHouse test in short mode")
	}
	host := os.Getenv(EnvClickHouseHost)
	if host == "" {
		t.Skipf("%s not set", EnvClickHouseHost)
	}

	port := 9000
	if p, err := strconv.Atoi(os.Getenv("LIFTDIAG_CLICKHOUSE_PORT")); err == nil {
		port = p
	}

	server := &ClickHouseServer{
		Database: fmt.Sprintf("liftdiag_test_%d", time.Now().UnixNano()),
	}
	server.Config = database.ClickHouseConfig{
		Host:     host,
		Port:     port,
		Database: server.Database,
		Username: envOr("LIFTDIAG_CLICKHOUSE_USER", "default"),
		Password: os.Getenv("LIFTDIAG_CLICKHOUSE_PASSWORD"),
	}

	if err := WaitForClickHouse(server.adminConfig(), 10*time.Second); err != nil {
		t.Fatalf("ClickHouse not reachable: %v", err)
	}
	if err := server.exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", server.Database)); err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = server.exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", server.Database))
	})

	return server
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *ClickHouseServer) adminConfig() database.ClickHouseConfig {
	cfg := s.Config
	cfg.Database = "default"
	return cfg
}

func (s *ClickHouseServer) exec(query string) error {
	cfg := s.adminConfig()
	db, err := database.NewClickHouse(&cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	defer db.Close()

	_, err = db.Conn().Exec(query)
	return err
}

// WaitForClickHouse waits for ClickHouse to be ready
func WaitForClickHouse(config database.ClickHouseConfig, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		db, err := database.NewClickHouse(&config)
		if err == nil {
			pingErr := db.Ping()
			db.Close()
			if pingErr == nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for ClickHouse")
		case <-ticker.C:
		}
	}
}
