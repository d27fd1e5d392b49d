package testing

import (
	"database/sql"
	"testing"

	"github.com/aristath/storable/internal/domain"
	"github.com/shopspring/decimal"
)

// Apple and Microsoft are the instruments most tests hold
var (
	Apple     = domain.Instrument{ID: 2, Symbol: "AAPL", Name: "Apple Inc."}
	Microsoft = domain.Instrument{ID: 3, Symbol: "MSFT", Name: "Microsoft Corporation"}
)

// SeedInstrument inserts an instrument row
func SeedInstrument(t *testing.T, db *sql.DB, inst domain.Instrument) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO stocks (id, symbol, name) VALUES (?, ?, ?)`, inst.ID, inst.Symbol, inst.Name); err != nil {
		t.Fatalf("Failed to seed instrument %s: %v", inst.Symbol, err)
	}
}

// SeedDelta records a quantity change for an instrument
func SeedDelta(t *testing.T, db *sql.DB, instrumentID int64, quantity string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO portfolio (stock_id, quantity) VALUES (?, ?)`, instrumentID, decimal.RequireFromString(quantity).String()); err != nil {
		t.Fatalf("Failed to seed delta for instrument %d: %v", instrumentID, err)
	}
}

// SeedQuote inserts a quote row with the given prices
func SeedQuote(t *testing.T, db *sql.DB, date string, instrumentID int64, open, high, low, close string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO quotes (date, stock_id, open, high, low, close) VALUES (?, ?, ?, ?, ?, ?)`,
		date, instrumentID, open, high, low, close)
	if err != nil {
		t.Fatalf("Failed to seed quote for instrument %d on %s: %v", instrumentID, date, err)
	}
}

// CountRows returns the number of rows in table matching date, or all rows when date is empty
func CountRows(t *testing.T, db *sql.DB, table, date string) int {
	t.Helper()
	query := `SELECT COUNT(*) FROM ` + table
	var args []any
	if date != "" {
		query += ` WHERE date = ?`
		args = append(args, date)
	}
	var count int
	if err := db.QueryRow(query, args...).Scan(&count); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return count
}

// Dec parses a decimal literal, failing loudly on typos
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
