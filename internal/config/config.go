package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/liftdiag/internal/cache"
	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/logging"
)

// Config represents the complete application configuration
type Config struct {
	Storage         StorageConfig `yaml:"storage"`
	Cache           CacheConfig   `yaml:"cache"`
	Server          ServerConfig  `yaml:"server"`
	Import          ImportConfig  `yaml:"import"`
	ServerLogging   LoggingConfig `yaml:"server_logging"`
	ImporterLogging LoggingConfig `yaml:"importer_logging"`
}

// StorageConfig selects and configures the snapshot database
type StorageConfig struct {
	Driver     string           `yaml:"driver"` // duckdb or clickhouse
	DuckDB     DuckDBConfig     `yaml:"duckdb"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// DuckDBConfig holds the embedded database settings
type DuckDBConfig struct {
	Path        string `yaml:"path"` // empty keeps the database in memory
	MemoryLimit string `yaml:"memory_limit,omitempty"`
	Threads     int    `yaml:"threads,omitempty"`
}

// ClickHouseConfig holds ClickHouse database connection configuration
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseSSL   bool   `yaml:"use_ssl,omitempty"`

	// Connection settings
	MaxOpenConns int    `yaml:"max_open_conns,omitempty"`
	MaxIdleConns int    `yaml:"max_idle_conns,omitempty"`
	DialTimeout  string `yaml:"dial_timeout,omitempty"`
	ReadTimeout  string `yaml:"read_timeout,omitempty"`
	Compression  string `yaml:"compression,omitempty"` // none, zstd, lz4
}

// CacheConfig holds the view cache configuration
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled"`
	InMemory       bool          `yaml:"in_memory"`
	Path           string        `yaml:"path"`
	MaxMemoryMB    int           `yaml:"max_memory_mb"`
	ValueLogMaxMB  int           `yaml:"value_log_max_mb"`
	DashboardTTL   time.Duration `yaml:"dashboard_ttl"`
	ViewTTL        time.Duration `yaml:"view_ttl"`
	CompactOnClose bool          `yaml:"compact_on_close"`
	GCInterval     time.Duration `yaml:"gc_interval"`
	GCDiscardRatio float64       `yaml:"gc_discard_ratio"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadMB     int           `yaml:"max_upload_mb"`
	// LoadOnStart imports Import.Paths when the stored snapshot is empty
	LoadOnStart bool `yaml:"load_on_start"`
}

// ImportConfig holds the defaults of the importer
type ImportConfig struct {
	Paths     []string `yaml:"paths"`
	Recursive bool     `yaml:"recursive"`
	Workers   int      `yaml:"workers"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	File       string `yaml:"file"`        // log file path (optional)
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxBackups int    `yaml:"max_backups"` // number of old log files to keep
	MaxAge     int    `yaml:"max_age"`     // days
	Console    bool   `yaml:"console"`     // also log to console
	JSON       bool   `yaml:"json"`        // JSON format instead of text
}

// Default configurations
func DefaultClickHouseConfig() ClickHouseConfig {
	return ClickHouseConfig{
		Host:         "localhost",
		Port:         9000,
		Database:     "liftdiag",
		Username:     "default",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		DialTimeout:  "30s",
		ReadTimeout:  "5m",
		Compression:  "lz4",
	}
}

func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:     database.DriverDuckDB,
		DuckDB:     DuckDBConfig{Path: "./data/liftdiag.duckdb"},
		ClickHouse: DefaultClickHouseConfig(),
	}
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:        false,
		Path:           "./cache/badger",
		MaxMemoryMB:    64,
		ValueLogMaxMB:  100,
		DashboardTTL:   5 * time.Minute,
		ViewTTL:        15 * time.Minute,
		CompactOnClose: true,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		MaxUploadMB:     32,
	}
}

func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:      "info",
		Console:    true,
		JSON:       false,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// Default returns a configuration with every section at its default
func Default() *Config {
	c := &Config{
		Storage:         DefaultStorageConfig(),
		Cache:           *DefaultCacheConfig(),
		Server:          *DefaultServerConfig(),
		ServerLogging:   *DefaultLoggingConfig(),
		ImporterLogging: *DefaultLoggingConfig(),
	}
	_ = c.validate()
	return c
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, fills defaults and validates it
func Parse(data []byte) (*Config, error) {
	config := Config{Storage: DefaultStorageConfig()}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateExampleConfig writes config.example.yaml into dir
func CreateExampleConfig(dir string) error {
	config := Default()
	config.Import.Paths = []string{"./data/incoming"}

	if err := SaveConfig(config, filepath.Join(dir, "config.example.yaml")); err != nil {
		return fmt.Errorf("failed to create example config: %w", err)
	}

	return nil
}

// validate sets defaults where needed and rejects values no default can fix
func (c *Config) validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = database.DriverDuckDB
	}

	ch := &c.Storage.ClickHouse
	if ch.Port == 0 {
		ch.Port = 9000
	}
	if ch.Username == "" {
		ch.Username = "default"
	}
	if ch.MaxOpenConns == 0 {
		ch.MaxOpenConns = 10
	}
	if ch.MaxIdleConns == 0 {
		ch.MaxIdleConns = 5
	}
	if ch.DialTimeout == "" {
		ch.DialTimeout = "30s"
	}
	if ch.ReadTimeout == "" {
		ch.ReadTimeout = "5m"
	}
	if ch.Compression == "" {
		ch.Compression = "lz4"
	}

	if c.Cache.Enabled && c.Cache.Path == "" && !c.Cache.InMemory {
		c.Cache.Path = "./cache/badger"
	}
	if c.Cache.MaxMemoryMB == 0 {
		c.Cache.MaxMemoryMB = 64
	}
	if c.Cache.ValueLogMaxMB == 0 {
		c.Cache.ValueLogMaxMB = 100
	}
	if c.Cache.DashboardTTL == 0 {
		c.Cache.DashboardTTL = 5 * time.Minute
	}
	if c.Cache.ViewTTL == 0 {
		c.Cache.ViewTTL = 15 * time.Minute
	}
	if c.Cache.GCInterval == 0 {
		c.Cache.GCInterval = 10 * time.Minute
	}
	if c.Cache.GCDiscardRatio == 0 {
		c.Cache.GCDiscardRatio = 0.5
	}

	defaults := DefaultServerConfig()
	if c.Server.Host == "" {
		c.Server.Host = defaults.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaults.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaults.WriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = defaults.IdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = defaults.MaxUploadMB
	}

	validateLogging := func(cfg *LoggingConfig, componentName string) error {
		if cfg.Level == "" {
			cfg.Level = "info"
		}
		if !logging.ValidLevel(cfg.Level) {
			return fmt.Errorf("%s.level must be one of: debug, info, warn, error, got: %s", componentName, cfg.Level)
		}
		if !cfg.Console && cfg.File == "" {
			cfg.Console = true
		}
		if cfg.MaxSize == 0 {
			cfg.MaxSize = 100
		}
		if cfg.MaxBackups == 0 {
			cfg.MaxBackups = 3
		}
		if cfg.MaxAge == 0 {
			cfg.MaxAge = 28
		}
		return nil
	}

	if err := validateLogging(&c.ServerLogging, "server_logging"); err != nil {
		return err
	}
	if err := validateLogging(&c.ImporterLogging, "importer_logging"); err != nil {
		return err
	}

	return nil
}

// DatabaseConfig returns the driver name and the backend config that
// database.CreateDatabase expects for it
func (s *StorageConfig) DatabaseConfig() (string, interface{}, error) {
	switch s.Driver {
	case database.DriverDuckDB:
		return s.Driver, &database.DuckDBConfig{
			Path:        s.DuckDB.Path,
			MemoryLimit: s.DuckDB.MemoryLimit,
			Threads:     s.DuckDB.Threads,
		}, nil
	case database.DriverClickHouse:
		cfg, err := s.ClickHouse.ToClickHouseDatabaseConfig()
		if err != nil {
			return "", nil, err
		}
		return s.Driver, cfg, nil
	default:
		return "", nil, fmt.Errorf("unsupported storage driver %q", s.Driver)
	}
}

// ToClickHouseDatabaseConfig converts ClickHouseConfig to database.ClickHouseConfig
func (c *ClickHouseConfig) ToClickHouseDatabaseConfig() (*database.ClickHouseConfig, error) {
	dialTimeout, err := time.ParseDuration(c.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(c.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	return &database.ClickHouseConfig{
		Host:         c.Host,
		Port:         c.Port,
		Database:     c.Database,
		Username:     c.Username,
		Password:     c.Password,
		UseSSL:       c.UseSSL,
		MaxOpenConns: c.MaxOpenConns,
		MaxIdleConns: c.MaxIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		Compression:  c.Compression,
	}, nil
}

// ToCacheConfig converts CacheConfig to cache.Config
func (c *CacheConfig) ToCacheConfig() *cache.Config {
	return &cache.Config{
		Enabled:              c.Enabled,
		InMemory:             c.InMemory,
		BadgerPath:           c.Path,
		BadgerMaxMemoryMB:    c.MaxMemoryMB,
		BadgerValueLogMaxMB:  c.ValueLogMaxMB,
		BadgerCompactL0:      c.CompactOnClose,
		BadgerGCInterval:     c.GCInterval,
		BadgerGCDiscardRatio: c.GCDiscardRatio,
	}
}

// ToLogging converts LoggingConfig to logging.Config
func (c *LoggingConfig) ToLogging() *logging.Config {
	return &logging.Config{
		Level:      c.Level,
		File:       c.File,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Console:    c.Console,
		JSON:       c.JSON,
	}
}

// Address returns host:port of the HTTP server
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes returns the multipart upload limit in bytes
func (s *ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}
