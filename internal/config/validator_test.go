package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/liftdiag/internal/database"
)

func TestClickHouseValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  ClickHouseConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: ClickHouseConfig{
				Host:         "localhost",
				Port:         9000,
				Database:     "test",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
			wantErr: false,
		},
		{
			name: "missing host",
			config: ClickHouseConfig{
				Port:     9000,
				Database: "test",
			},
			wantErr: true,
		},
		{
			name: "invalid port",
			config: ClickHouseConfig{
				Host:     "localhost",
				Port:     99999,
				Database: "test",
			},
			wantErr: true,
		},
		{
			name: "missing database",
			config: ClickHouseConfig{
				Host: "localhost",
				Port: 9000,
			},
			wantErr: true,
		},
		{
			name: "idle conns exceed open conns",
			config: ClickHouseConfig{
				Host:         "localhost",
				Port:         9000,
				Database:     "test",
				MaxOpenConns: 5,
				MaxIdleConns: 10,
			},
			wantErr: true,
		},
		{
			name: "unknown compression",
			config: ClickHouseConfig{
				Host:        "localhost",
				Port:        9000,
				Database:    "test",
				Compression: "gzip",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStorageValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  StorageConfig
		wantErr bool
	}{
		{
			name:    "duckdb",
			config:  StorageConfig{Driver: database.DriverDuckDB, DuckDB: DuckDBConfig{Path: "x.duckdb"}},
			wantErr: false,
		},
		{
			name:    "duckdb negative threads",
			config:  StorageConfig{Driver: database.DriverDuckDB, DuckDB: DuckDBConfig{Threads: -1}},
			wantErr: true,
		},
		{
			name:    "clickhouse without database",
			config:  StorageConfig{Driver: database.DriverClickHouse, ClickHouse: ClickHouseConfig{Host: "h", Port: 9000}},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			config:  StorageConfig{Driver: "sqlite"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCacheValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  CacheConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: CacheConfig{
				Path:           "/tmp/cache",
				MaxMemoryMB:    256,
				ValueLogMaxMB:  100,
				GCDiscardRatio: 0.5,
				Enabled:        true,
			},
			wantErr: false,
		},
		{
			name: "in memory without path",
			config: CacheConfig{
				InMemory:      true,
				MaxMemoryMB:   64,
				ValueLogMaxMB: 100,
				Enabled:       true,
			},
			wantErr: false,
		},
		{
			name: "missing path",
			config: CacheConfig{
				MaxMemoryMB:   256,
				ValueLogMaxMB: 100,
				Enabled:       true,
			},
			wantErr: true,
		},
		{
			name: "invalid max memory",
			config: CacheConfig{
				Path:          "/tmp/cache",
				MaxMemoryMB:   0,
				ValueLogMaxMB: 100,
				Enabled:       true,
			},
			wantErr: true,
		},
		{
			name: "invalid gc ratio",
			config: CacheConfig{
				Path:           "/tmp/cache",
				MaxMemoryMB:    256,
				ValueLogMaxMB:  100,
				GCDiscardRatio: 1.5,
				Enabled:        true,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerValidation(t *testing.T) {
	valid := *DefaultServerConfig()
	if err := valid.Validate(); err != nil {
		t.Errorf("default server config should be valid: %v", err)
	}

	bad := valid
	bad.Port = 0
	bad.MaxUploadMB = -1
	err := bad.Validate()
	var ve *ValidationErrors
	if !errors.As(err, &ve) || len(ve.Errors) != 2 {
		t.Errorf("expected two aggregated errors, got %v", err)
	}
}

func TestLoggingValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  LoggingConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: LoggingConfig{
				Level:      "info",
				Console:    true,
				MaxSize:    100,
				MaxBackups: 3,
				MaxAge:     28,
			},
			wantErr: false,
		},
		{
			name: "invalid level",
			config: LoggingConfig{
				Level:   "invalid",
				Console: true,
			},
			wantErr: true,
		},
		{
			name: "negative max size",
			config: LoggingConfig{
				Level:   "info",
				Console: true,
				MaxSize: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors

	if errs.HasErrors() {
		t.Error("Empty ValidationErrors should not have errors")
	}

	if errs.Error() != "" {
		t.Error("Empty ValidationErrors should return empty string")
	}

	errs.Add(nil)
	if errs.HasErrors() {
		t.Error("Adding nil should not create errors")
	}

	sentinel := errors.New("test error 1")
	errs.Add(sentinel)
	errs.Add(errors.New("test error 2"))

	if len(errs.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(errs.Errors))
	}

	errMsg := errs.Error()
	if !strings.Contains(errMsg, "test error 1") || !strings.Contains(errMsg, "test error 2") {
		t.Errorf("Error message doesn't contain expected errors: %s", errMsg)
	}

	if !errors.Is(&errs, sentinel) {
		t.Error("collected errors should be reachable through errors.Is")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		if err := Default().Validate(); err != nil {
			t.Errorf("Default config should not error: %v", err)
		}
	})

	t.Run("multiple validation errors", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Driver = database.DriverClickHouse
		cfg.Storage.ClickHouse.Port = 99999
		cfg.Storage.ClickHouse.Database = ""
		cfg.Cache = CacheConfig{Enabled: true, MaxMemoryMB: -1}
		cfg.ServerLogging.Level = "invalid"

		err := cfg.Validate()
		if err == nil {
			t.Fatal("Expected validation errors")
		}

		errMsg := err.Error()
		if !strings.Contains(errMsg, "configuration validation failed") {
			t.Errorf("Error message should indicate validation failure: %s", errMsg)
		}
		for _, want := range []string{"clickhouse.port", "cache.path", "logging.level"} {
			if !strings.Contains(errMsg, want) {
				t.Errorf("Error message missing %q: %s", want, errMsg)
			}
		}
	})
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
storage:
  duckdb:
    path: /var/lib/liftdiag/snapshot.duckdb
cache:
  enabled: true
  in_memory: true
  view_ttl: 2m
server:
  port: 9090
import:
  paths: [./incoming]
  workers: 3
server_logging:
  level: debug
  json: true
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Storage.Driver != database.DriverDuckDB {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Storage.DuckDB.Path != "/var/lib/liftdiag/snapshot.duckdb" {
		t.Errorf("duckdb path = %q", cfg.Storage.DuckDB.Path)
	}
	if cfg.Cache.ViewTTL != 2*time.Minute || cfg.Cache.DashboardTTL != 5*time.Minute {
		t.Errorf("ttls = %v, %v", cfg.Cache.ViewTTL, cfg.Cache.DashboardTTL)
	}
	if cfg.Cache.Path != "" {
		t.Errorf("in-memory cache should not get a default path, got %q", cfg.Cache.Path)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Host != "0.0.0.0" || cfg.Server.MaxUploadMB != 32 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.Address() != "0.0.0.0:9090" || cfg.Server.MaxUploadBytes() != 32<<20 {
		t.Errorf("address = %s, upload = %d", cfg.Server.Address(), cfg.Server.MaxUploadBytes())
	}
	if cfg.Import.Workers != 3 || len(cfg.Import.Paths) != 1 {
		t.Errorf("import = %+v", cfg.Import)
	}
	if !cfg.ServerLogging.JSON || cfg.ServerLogging.Level != "debug" || !cfg.ServerLogging.Console {
		t.Errorf("server logging = %+v", cfg.ServerLogging)
	}
	if cfg.ImporterLogging.Level != "info" {
		t.Errorf("importer logging = %+v", cfg.ImporterLogging)
	}

	lc := cfg.ServerLogging.ToLogging()
	if lc.Level != "debug" || !lc.JSON {
		t.Errorf("ToLogging = %+v", lc)
	}
	cc := cfg.Cache.ToCacheConfig()
	if !cc.Enabled || !cc.InMemory || cc.BadgerMaxMemoryMB != 64 {
		t.Errorf("ToCacheConfig = %+v", cc)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse([]byte("storage: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("importer_logging:\n  level: loud\n")); err == nil {
		t.Error("expected invalid level error")
	}
	if _, err := Parse([]byte("storage:\n  driver: Oracle\n")); err == nil {
		t.Error("expected unknown driver error")
	}
}

func TestDatabaseConfig(t *testing.T) {
	cfg := Default()

	driver, dbCfg, err := cfg.Storage.DatabaseConfig()
	if err != nil {
		t.Fatalf("DatabaseConfig: %v", err)
	}
	if driver != database.DriverDuckDB {
		t.Errorf("driver = %s", driver)
	}
	if d, ok := dbCfg.(*database.DuckDBConfig); !ok || d.Path != cfg.Storage.DuckDB.Path {
		t.Errorf("duckdb config = %#v", dbCfg)
	}

	cfg.Storage.Driver = database.DriverClickHouse
	_, dbCfg, err = cfg.Storage.DatabaseConfig()
	if err != nil {
		t.Fatalf("DatabaseConfig: %v", err)
	}
	ch, ok := dbCfg.(*database.ClickHouseConfig)
	if !ok || ch.DialTimeout != 30*time.Second || ch.ReadTimeout != 5*time.Minute {
		t.Errorf("clickhouse config = %#v", dbCfg)
	}

	cfg.Storage.ClickHouse.DialTimeout = "soon"
	if _, _, err := cfg.Storage.DatabaseConfig(); err == nil {
		t.Error("expected invalid duration error")
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Driver != database.DriverDuckDB || cfg.Server.Port != 8080 {
		t.Errorf("defaults = %+v", cfg)
	}

	dir := t.TempDir()
	if err := CreateExampleConfig(dir); err != nil {
		t.Fatalf("CreateExampleConfig: %v", err)
	}
	path := filepath.Join(dir, "config.example.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("example config not written: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig(example): %v", err)
	}
	if len(loaded.Import.Paths) != 1 || loaded.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("example config = %+v", loaded)
	}
}
