// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata" // MARKET_TIMEZONE must resolve on hosts without a zoneinfo database

	"github.com/joho/godotenv"
)

// Supported price sources
const (
	PriceSourceChart  = "chart"  // Yahoo v8 chart endpoint over HTTP
	PriceSourceNative = "native" // go-yfinance library
)

// Supported database drivers
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the database file (always absolute)
	DatabaseName     string
	DatabaseDriver   string
	LogLevel         string
	LogPretty        bool
	PriceSource      string
	YahooBaseURL     string
	YahooMaxRetries  int           // attempts on 429/5xx from the chart endpoint
	YahooBackoff     time.Duration // base delay between those attempts
	FetchTimeout     time.Duration
	FetchConcurrency int
	UpdateSchedule   string // cron expression with a seconds field
	MarketTimezone   string
	// Maintenance runs integrity checks, WAL checkpoints, disk checks and backup rotation
	MaintenanceSchedule string
	MinFreeDiskMB       int
	Backup              *BackupConfig
}

// BackupConfig holds S3-compatible backup settings. Backups are disabled when Bucket is empty.
type BackupConfig struct {
	Bucket          string
	Endpoint        string // Empty = AWS default endpoint resolution
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
}

// Enabled reports whether a bucket has been configured
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from the environment, after applying a .env file if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("STORABLE_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		DatabaseName:        getEnv("STORABLE_DB_NAME", "stock_portfolio.sqlite"),
		DatabaseDriver:      getEnv("STORABLE_DB_DRIVER", DriverModernc),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogPretty:           getEnvAsBool("LOG_PRETTY", true),
		PriceSource:         getEnv("PRICE_SOURCE", PriceSourceChart),
		YahooBaseURL:        getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		YahooMaxRetries:     getEnvAsInt("YAHOO_MAX_RETRIES", 3),
		YahooBackoff:        time.Duration(getEnvAsInt("YAHOO_RETRY_BACKOFF_MS", 1000)) * time.Millisecond,
		FetchTimeout:        time.Duration(getEnvAsInt("FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		FetchConcurrency:    getEnvAsInt("FETCH_CONCURRENCY", 1),
		UpdateSchedule:      getEnv("UPDATE_SCHEDULE", "0 30 18 * * MON-FRI"),
		MarketTimezone:      getEnv("MARKET_TIMEZONE", "America/New_York"),
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 0 3 * * *"),
		MinFreeDiskMB:       getEnvAsInt("MIN_FREE_DISK_MB", 500),
		Backup: &BackupConfig{
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath returns the absolute path of the SQLite database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.DatabaseName)
}

// Location returns the market timezone used to derive "today"
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.MarketTimezone)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.PriceSource {
	case PriceSourceChart, PriceSourceNative:
	default:
		return fmt.Errorf("unknown PRICE_SOURCE %q (want %q or %q)", c.PriceSource, PriceSourceChart, PriceSourceNative)
	}

	switch c.DatabaseDriver {
	case DriverModernc, DriverMattn:
	default:
		return fmt.Errorf("unknown STORABLE_DB_DRIVER %q (want %q or %q)", c.DatabaseDriver, DriverModernc, DriverMattn)
	}

	if c.DatabaseName == "" {
		return fmt.Errorf("STORABLE_DB_NAME must not be empty")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive")
	}
	if c.YahooMaxRetries < 1 {
		return fmt.Errorf("YAHOO_MAX_RETRIES must be at least 1")
	}
	if c.YahooBackoff < 0 {
		return fmt.Errorf("YAHOO_RETRY_BACKOFF_MS must not be negative")
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be at least 1")
	}
	if c.MinFreeDiskMB < 0 {
		return fmt.Errorf("MIN_FREE_DISK_MB must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid MARKET_TIMEZONE %q: %w", c.MarketTimezone, err)
	}

	if c.Backup.Enabled() {
		if c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("BACKUP_BUCKET is set but backup credentials are missing")
		}
		if c.Backup.RetentionDays < 0 {
			return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative")
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
