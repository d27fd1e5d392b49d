package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMigratedDB(t *testing.T, driver string) *DB {
	t.Helper()

	db, err := New(Config{
		Path:   filepath.Join(t.TempDir(), "portfolio.db"),
		Driver: driver,
		Name:   "portfolio",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func TestMigrate_CreatesTablesAndCashInstrument(t *testing.T) {
	for _, driver := range []string{DriverModernc, DriverMattn} {
		t.Run(driver, func(t *testing.T) {
			db := newMigratedDB(t, driver)

			for _, table := range []string{"stocks", "portfolio", "quotes", "report_lines", "report_summary", "pipeline_runs"} {
				var name string
				err := db.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
				require.NoError(t, err, table)
				assert.Equal(t, table, name)
			}

			var symbol, name string
			err := db.Conn().QueryRow(`SELECT symbol, name FROM stocks WHERE id = 1`).Scan(&symbol, &name)
			require.NoError(t, err)
			assert.Equal(t, "CASH", symbol)
			assert.Equal(t, "Cash", name)
		})
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newMigratedDB(t, DriverModernc)

	require.NoError(t, db.Migrate())

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM stocks`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "other.db"), Name: "scratch"})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate())
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres", Name: "x"})
	assert.Error(t, err)
}

func TestClassifyError_UniqueViolation(t *testing.T) {
	for _, driver := range []string{DriverModernc, DriverMattn} {
		t.Run(driver, func(t *testing.T) {
			db := newMigratedDB(t, driver)

			insert := `INSERT INTO quotes (date, stock_id, open, high, low, close) VALUES ('2021-05-03', 1, '1', '1', '1', '1')`
			_, err := db.Conn().Exec(insert)
			require.NoError(t, err)

			_, err = db.Conn().Exec(insert)
			require.Error(t, err)

			classified := ClassifyError("quotes", err)
			assert.True(t, IsConflict(classified))

			var conflict *ConflictError
			require.True(t, errors.As(classified, &conflict))
			assert.Equal(t, "quotes", conflict.Table)
		})
	}
}

func TestClassifyError_PrimaryKeyViolation(t *testing.T) {
	db := newMigratedDB(t, DriverModernc)

	insert := `INSERT INTO report_summary (date, open_value, high_value, low_value, close_value) VALUES ('2021-05-03', '1', '1', '1', '1')`
	_, err := db.Conn().Exec(insert)
	require.NoError(t, err)

	_, err = db.Conn().Exec(insert)
	assert.True(t, IsConflict(ClassifyError("report_summary", err)))
}

func TestClassifyError_OtherErrorsPassThrough(t *testing.T) {
	db := newMigratedDB(t, DriverModernc)

	// Foreign key violation is not a uniqueness conflict
	_, err := db.Conn().Exec(`INSERT INTO portfolio (stock_id, quantity) VALUES (999, '1')`)
	require.Error(t, err)
	assert.False(t, IsConflict(ClassifyError("portfolio", err)))

	plain := errors.New("disk I/O error")
	assert.Same(t, plain, ClassifyError("quotes", plain))
	assert.NoError(t, ClassifyError("quotes", nil))
}

func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	db := newMigratedDB(t, DriverModernc)

	err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO stocks (id, symbol, name) VALUES (2, 'AAPL', 'Apple Inc.')`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM stocks`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newMigratedDB(t, DriverModernc)

	boom := errors.New("boom")
	err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO stocks (id, symbol, name) VALUES (2, 'AAPL', 'Apple Inc.')`); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM stocks`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newMigratedDB(t, DriverModernc)

	err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
		panic("unexpected")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestWithTransaction_ConflictDoesNotAbortTransaction(t *testing.T) {
	db := newMigratedDB(t, DriverModernc)

	err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
		insert := `INSERT INTO report_summary (date, open_value, high_value, low_value, close_value) VALUES (?, '1', '1', '1', '1')`
		if _, err := tx.Exec(insert, "2021-05-03"); err != nil {
			return err
		}
		_, err := tx.Exec(insert, "2021-05-03")
		require.True(t, IsConflict(ClassifyError("report_summary", err)))

		_, err = tx.Exec(insert, "2021-05-04")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM report_summary`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSnapshotAndHealthCheck(t *testing.T) {
	db := newMigratedDB(t, DriverModernc)
	ctx := context.Background()

	require.NoError(t, db.HealthCheck(ctx))
	require.NoError(t, db.Checkpoint(ctx))

	dest := filepath.Join(t.TempDir(), "snap", "portfolio.db")
	require.NoError(t, db.Snapshot(ctx, dest))

	copyDB, err := New(Config{Path: dest, Name: "portfolio"})
	require.NoError(t, err)
	defer copyDB.Close()

	var count int
	require.NoError(t, copyDB.Conn().QueryRow(`SELECT COUNT(*) FROM stocks`).Scan(&count))
	assert.Equal(t, 1, count)
}
