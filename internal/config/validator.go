package config

import (
	"fmt"
	"strings"

	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/logging"
)

// Validator interface for config validation
type Validator interface {
	Validate() error
}

// ValidationErrors collects multiple validation errors
type ValidationErrors struct {
	Errors []error
}

func (ve *ValidationErrors) Add(err error) {
	if err != nil {
		ve.Errors = append(ve.Errors, err)
	}
}

func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		messages[i] = fmt.Sprintf("  - %s", err.Error())
	}

	return fmt.Sprintf("configuration validation failed:\n%s",
		strings.Join(messages, "\n"))
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (ve *ValidationErrors) Unwrap() []error {
	return ve.Errors
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs.Add(c.Storage.Validate())

	if c.Cache.Enabled {
		errs.Add(c.Cache.Validate())
	}

	errs.Add(c.Server.Validate())
	errs.Add(c.Import.Validate())
	errs.Add(c.ServerLogging.Validate())
	errs.Add(c.ImporterLogging.Validate())

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

// Validate validates the storage selection and the selected backend
func (s *StorageConfig) Validate() error {
	switch s.Driver {
	case database.DriverDuckDB:
		if s.DuckDB.Threads < 0 {
			return fmt.Errorf("storage.duckdb.threads cannot be negative, got %d", s.DuckDB.Threads)
		}
		return nil
	case database.DriverClickHouse:
		return s.ClickHouse.Validate()
	default:
		return fmt.Errorf("storage.driver must be one of: %s, %s, got %q",
			database.DriverDuckDB, database.DriverClickHouse, s.Driver)
	}
}

// Validate validates ClickHouse configuration
func (c *ClickHouseConfig) Validate() error {
	var errs ValidationErrors

	if c.Host == "" {
		errs.Add(fmt.Errorf("clickhouse.host is required"))
	}

	if c.Port < 1 || c.Port > 65535 {
		errs.Add(fmt.Errorf("clickhouse.port must be between 1-65535, got %d", c.Port))
	}

	if c.Database == "" {
		errs.Add(fmt.Errorf("clickhouse.database is required"))
	}

	if c.MaxOpenConns < 0 {
		errs.Add(fmt.Errorf("clickhouse.max_open_conns cannot be negative"))
	}

	if c.MaxIdleConns < 0 {
		errs.Add(fmt.Errorf("clickhouse.max_idle_conns cannot be negative"))
	}

	if c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns {
		errs.Add(fmt.Errorf("clickhouse.max_idle_conns (%d) cannot exceed max_open_conns (%d)",
			c.MaxIdleConns, c.MaxOpenConns))
	}

	switch strings.ToLower(c.Compression) {
	case "", "none", "lz4", "zstd":
	default:
		errs.Add(fmt.Errorf("clickhouse.compression must be one of: none, lz4, zstd, got %s", c.Compression))
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	var errs ValidationErrors

	if c.Path == "" && !c.InMemory {
		errs.Add(fmt.Errorf("cache.path is required when cache is enabled"))
	}

	if c.MaxMemoryMB < 1 {
		errs.Add(fmt.Errorf("cache.max_memory_mb must be positive, got %d", c.MaxMemoryMB))
	}

	if c.ValueLogMaxMB < 1 {
		errs.Add(fmt.Errorf("cache.value_log_max_mb must be positive, got %d", c.ValueLogMaxMB))
	}

	if c.DashboardTTL < 0 || c.ViewTTL < 0 {
		errs.Add(fmt.Errorf("cache TTLs cannot be negative"))
	}

	if c.GCDiscardRatio < 0 || c.GCDiscardRatio > 1 {
		errs.Add(fmt.Errorf("cache.gc_discard_ratio must be between 0 and 1, got %.2f", c.GCDiscardRatio))
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	var errs ValidationErrors

	if s.Port < 1 || s.Port > 65535 {
		errs.Add(fmt.Errorf("server.port must be between 1-65535, got %d", s.Port))
	}

	if s.MaxUploadMB < 1 {
		errs.Add(fmt.Errorf("server.max_upload_mb must be positive, got %d", s.MaxUploadMB))
	}

	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 {
		errs.Add(fmt.Errorf("server timeouts cannot be negative"))
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

// Validate validates importer defaults
func (i *ImportConfig) Validate() error {
	if i.Workers < 0 {
		return fmt.Errorf("import.workers cannot be negative, got %d", i.Workers)
	}
	for n, p := range i.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("import.paths[%d] is empty", n)
		}
	}
	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	var errs ValidationErrors

	if c.Level != "" && !logging.ValidLevel(c.Level) {
		errs.Add(fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %s", c.Level))
	}

	if c.MaxSize < 0 {
		errs.Add(fmt.Errorf("logging.max_size cannot be negative, got %d", c.MaxSize))
	}

	if c.MaxBackups < 0 {
		errs.Add(fmt.Errorf("logging.max_backups cannot be negative, got %d", c.MaxBackups))
	}

	if c.MaxAge < 0 {
		errs.Add(fmt.Errorf("logging.max_age cannot be negative, got %d", c.MaxAge))
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}
