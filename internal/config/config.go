// Package config provides chronicle's configuration: database connection,
// external-fetcher timeouts, ingest concurrency, and logging behavior.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (CHRONICLE_*) — highest priority
//  2. JSON configuration file
//  3. Defaults returned by DefaultConfig
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the complete chronicle configuration.
type Config struct {
	Database DatabaseConfig `json:"database"`
	Fetch    FetchConfig    `json:"fetch"`
	Ingest   IngestConfig   `json:"ingest"`
	Logging  LoggingConfig  `json:"logging"`
	API      APIConfig      `json:"api"`
}

// DatabaseConfig holds the Postgres connection settings for internal/store/postgres.
type DatabaseConfig struct {
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int32         `json:"max_connections"`
	ConnectTimeout   time.Duration `json:"connect_timeout"`
	MigrationsPath   string        `json:"migrations_path"`
}

// FetchConfig holds settings for the external codified-text and enacted-law
// fetchers consumed through internal/fetch.
type FetchConfig struct {
	CacheDir       string        `json:"cache_dir"`
	RequestTimeout time.Duration `json:"request_timeout"`
	RemoteCacheURL string        `json:"remote_cache_url,omitempty"`
}

// IngestConfig controls play-forward and snapshot-ingest behavior.
type IngestConfig struct {
	TitleFetchConcurrency int `json:"title_fetch_concurrency"`
	MaxFailuresReported   int `json:"max_failures_reported"`
	CompactionInterval    int `json:"compaction_interval"`
}

// LoggingConfig controls the default logger built by internal/logging.
type LoggingConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	ShowCaller bool   `json:"show_caller"`
}

// APIConfig controls the minimal operational HTTP surface in internal/api.
type APIConfig struct {
	ListenAddr string `json:"listen_addr"`
}

// DefaultConfig returns safe defaults suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			ConnectionString: "postgres://localhost:5432/chronicle?sslmode=disable",
			MaxConnections:   10,
			ConnectTimeout:   30 * time.Second,
			MigrationsPath:   "file://internal/store/postgres/migrations",
		},
		Fetch: FetchConfig{
			CacheDir:       "./data/cache",
			RequestTimeout: 60 * time.Second,
		},
		Ingest: IngestConfig{
			TitleFetchConcurrency: 8,
			MaxFailuresReported:   25,
			CompactionInterval:    500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		API: APIConfig{
			ListenAddr: ":8980",
		},
	}
}

// Load builds a Config from defaults, an optional JSON file, and environment
// overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile merges JSON configuration into cfg. A missing file is not an
// error — it allows a defaults-only configuration.
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies CHRONICLE_* environment variables.
// Invalid integer/duration values are silently ignored so a bad override
// cannot prevent startup; Validate still runs afterward.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv("CHRONICLE_DATABASE_URL"); v != "" {
		c.Database.ConnectionString = v
	}
	if v := os.Getenv("CHRONICLE_DATABASE_MAX_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Database.MaxConnections = int32(n)
		}
	}
	if v := os.Getenv("CHRONICLE_MIGRATIONS_PATH"); v != "" {
		c.Database.MigrationsPath = v
	}
	if v := os.Getenv("CHRONICLE_CACHE_DIR"); v != "" {
		c.Fetch.CacheDir = v
	}
	if v := os.Getenv("CHRONICLE_FETCH_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Fetch.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("CHRONICLE_INGEST_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Ingest.TitleFetchConcurrency = n
		}
	}
	if v := os.Getenv("CHRONICLE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CHRONICLE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CHRONICLE_API_ADDR"); v != "" {
		c.API.ListenAddr = v
	}
}

// Validate checks for internally-inconsistent or out-of-range settings.
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" {
		return fmt.Errorf("database.connection_string is required")
	}
	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("database.max_connections must be positive, got %d", c.Database.MaxConnections)
	}
	if c.Ingest.TitleFetchConcurrency <= 0 {
		return fmt.Errorf("ingest.title_fetch_concurrency must be positive, got %d", c.Ingest.TitleFetchConcurrency)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug|info|warn|error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text|json", c.Logging.Format)
	}
	return nil
}

// SaveToFile writes the configuration to path as indented JSON.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
