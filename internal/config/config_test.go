package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"STORABLE_DATA_DIR", "STORABLE_DB_NAME", "STORABLE_DB_DRIVER", "LOG_LEVEL", "LOG_PRETTY",
	"PRICE_SOURCE", "YAHOO_BASE_URL", "FETCH_TIMEOUT_SECONDS", "FETCH_CONCURRENCY",
	"UPDATE_SCHEDULE", "MARKET_TIMEZONE", "BACKUP_BUCKET", "BACKUP_ENDPOINT", "BACKUP_REGION",
	"BACKUP_ACCESS_KEY_ID", "BACKUP_SECRET_ACCESS_KEY", "BACKUP_RETENTION_DAYS",
	"MAINTENANCE_SCHEDULE", "MIN_FREE_DISK_MB", "YAHOO_MAX_RETRIES", "YAHOO_RETRY_BACKOFF_MS",
}

func clearEnv(t *testing.T) string {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Setenv("STORABLE_DATA_DIR", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "stock_portfolio.sqlite", cfg.DatabaseName)
	assert.Equal(t, filepath.Join(dir, "stock_portfolio.sqlite"), cfg.DatabasePath())
	assert.Equal(t, DriverModernc, cfg.DatabaseDriver)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, PriceSourceChart, cfg.PriceSource)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.YahooMaxRetries)
	assert.Equal(t, time.Second, cfg.YahooBackoff)
	assert.Equal(t, 1, cfg.FetchConcurrency)
	assert.Equal(t, "0 30 18 * * MON-FRI", cfg.UpdateSchedule)
	assert.Equal(t, "0 0 3 * * *", cfg.MaintenanceSchedule)
	assert.Equal(t, 500, cfg.MinFreeDiskMB)
	assert.False(t, cfg.Backup.Enabled())
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRICE_SOURCE", "native")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "5")
	t.Setenv("FETCH_CONCURRENCY", "4")
	t.Setenv("LOG_PRETTY", "false")
	t.Setenv("STORABLE_DB_DRIVER", "sqlite3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, PriceSourceNative, cfg.PriceSource)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.False(t, cfg.LogPretty)
	assert.Equal(t, DriverMattn, cfg.DatabaseDriver)
}

func TestLoad_InvalidIntegerFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("FETCH_CONCURRENCY", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.FetchConcurrency)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown price source", "PRICE_SOURCE", "bloomberg"},
		{"unknown driver", "STORABLE_DB_DRIVER", "postgres"},
		{"zero concurrency", "FETCH_CONCURRENCY", "0"},
		{"negative timeout", "FETCH_TIMEOUT_SECONDS", "-1"},
		{"bad timezone", "MARKET_TIMEZONE", "Mars/Olympus_Mons"},
		{"negative disk floor", "MIN_FREE_DISK_MB", "-5"},
		{"zero retries", "YAHOO_MAX_RETRIES", "0"},
		{"negative backoff", "YAHOO_RETRY_BACKOFF_MS", "-10"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_BackupRequiresCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKUP_BUCKET", "portfolio-backups")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")

	t.Setenv("BACKUP_ACCESS_KEY_ID", "key")
	t.Setenv("BACKUP_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Backup.Enabled())
	assert.Equal(t, "auto", cfg.Backup.Region)
}
