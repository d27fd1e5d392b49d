// Package testing provides testing utilities and helpers for the storable project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aristath/storable/internal/database"
)

// PortfolioSchema is the embedded schema name applied by NewTestDB
const PortfolioSchema = "portfolio"

// NewTestDB creates a migrated portfolio database backed by a temporary file.
// Returns the database instance and a cleanup function that closes the connection.
// The cleanup function is idempotent and can be called multiple times safely.
func NewTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()
	return NewTestDBWithDriver(t, database.DriverModernc)
}

// NewTestDBWithDriver is NewTestDB for a specific SQLite driver
func NewTestDBWithDriver(t *testing.T, driver string) (*database.DB, func()) {
	t.Helper()

	// Temporary files keep tests isolated; in-memory databases vanish between pooled connections
	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", PortfolioSchema))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Driver:  driver,
		Profile: database.ProfileStandard,
		Name:    PortfolioSchema,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database: %v", err)
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(tmpPath + suffix)
		}
	}
}
