package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/storable/internal/config"
	"github.com/aristath/storable/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:             t.TempDir(),
		DatabaseName:        "stock_portfolio.sqlite",
		DatabaseDriver:      config.DriverModernc,
		PriceSource:         config.PriceSourceChart,
		YahooBaseURL:        "http://127.0.0.1:1",
		FetchTimeout:        time.Second,
		FetchConcurrency:    1,
		UpdateSchedule:      "0 30 18 * * MON-FRI",
		MarketTimezone:      "America/New_York",
		MaintenanceSchedule: "0 0 3 * * *",
		MinFreeDiskMB:       0,
		Backup:              &config.BackupConfig{RetentionDays: 30},
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.DB)
	assert.NotNil(t, container.Source)
	assert.NotNil(t, container.Runner)
	assert.NotNil(t, container.Journal)
	assert.Nil(t, container.Backup)
	assert.Equal(t, "America/New_York", container.Location.String())
	assert.Equal(t, filepath.Join(cfg.DataDir, "stock_portfolio.sqlite"), container.DB.Path())

	var cash string
	require.NoError(t, container.DB.Conn().QueryRow(`SELECT symbol FROM stocks WHERE id = 1`).Scan(&cash))
	assert.Equal(t, "CASH", cash)
}

func TestWire_BadTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.MarketTimezone = "Mars/Olympus_Mons"

	_, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_BackupEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup = &config.BackupConfig{
		Bucket:          "portfolio-backups",
		Endpoint:        "http://127.0.0.1:1",
		Region:          "auto",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		RetentionDays:   7,
	}

	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.Backup)
}

func TestRegisterJobs(t *testing.T) {
	container, err := Wire(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	sched := scheduler.New(container.Location, zerolog.Nop())
	jobs, err := RegisterJobs(container, sched, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 2, sched.Entries())
	assert.Equal(t, "daily_update", jobs.DailyUpdate.Name())
	assert.Equal(t, "daily_maintenance", jobs.Maintenance.Name())

	// Maintenance runs against the real database with no bucket configured
	assert.NoError(t, jobs.Maintenance.Run())
}

func TestRegisterJobs_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	cfg.UpdateSchedule = "30 18 * * MON-FRI"
	_, err = RegisterJobs(container, scheduler.New(container.Location, zerolog.Nop()), zerolog.Nop())
	assert.Error(t, err)

	_, err = RegisterJobs(nil, scheduler.New(time.UTC, zerolog.Nop()), zerolog.Nop())
	assert.Error(t, err)
}
