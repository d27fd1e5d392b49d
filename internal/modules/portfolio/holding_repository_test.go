package portfolio

import (
	"context"
	"testing"

	"github.com/aristath/storable/internal/domain"
	testingpkg "github.com/aristath/storable/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldings_SumsDeltasPerInstrument(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	conn := db.Conn()

	testingpkg.SeedInstrument(t, conn, testingpkg.Apple)
	testingpkg.SeedInstrument(t, conn, testingpkg.Microsoft)
	testingpkg.SeedDelta(t, conn, testingpkg.Apple.ID, "15")
	testingpkg.SeedDelta(t, conn, domain.CashInstrumentID, "1000")
	testingpkg.SeedDelta(t, conn, testingpkg.Apple.ID, "-5")
	testingpkg.SeedDelta(t, conn, testingpkg.Microsoft.ID, "2.5")

	holdings, err := NewRepository(conn, zerolog.Nop()).Holdings(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 3)

	assert.Equal(t, domain.CashInstrumentID, holdings[0].Instrument.ID)
	assert.True(t, testingpkg.Dec("1000").Equal(holdings[0].Quantity))

	assert.Equal(t, testingpkg.Apple, holdings[1].Instrument)
	assert.True(t, testingpkg.Dec("10").Equal(holdings[1].Quantity))

	assert.Equal(t, testingpkg.Microsoft, holdings[2].Instrument)
	assert.True(t, testingpkg.Dec("2.5").Equal(holdings[2].Quantity))
}

func TestHoldings_ExcludesNonPositive(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	conn := db.Conn()

	testingpkg.SeedInstrument(t, conn, testingpkg.Apple)
	testingpkg.SeedInstrument(t, conn, testingpkg.Microsoft)
	// Fully sold
	testingpkg.SeedDelta(t, conn, testingpkg.Apple.ID, "10")
	testingpkg.SeedDelta(t, conn, testingpkg.Apple.ID, "-10")
	// Oversold
	testingpkg.SeedDelta(t, conn, testingpkg.Microsoft.ID, "-1")

	holdings, err := NewRepository(conn, zerolog.Nop()).Holdings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestRecord_AppendsWithoutMutating(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	conn := db.Conn()

	testingpkg.SeedInstrument(t, conn, testingpkg.Apple)
	repo := NewRepository(conn, zerolog.Nop())
	ctx := context.Background()

	first, err := repo.Record(ctx, domain.PositionDelta{InstrumentID: testingpkg.Apple.ID, Quantity: testingpkg.Dec("10")})
	require.NoError(t, err)
	second, err := repo.Record(ctx, domain.PositionDelta{InstrumentID: testingpkg.Apple.ID, Quantity: testingpkg.Dec("-3")})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	deltas, err := repo.Deltas(ctx, testingpkg.Apple.ID)
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	assert.True(t, testingpkg.Dec("10").Equal(deltas[0].Quantity))
	assert.True(t, testingpkg.Dec("-3").Equal(deltas[1].Quantity))

	holdings, err := repo.Holdings(ctx)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.True(t, testingpkg.Dec("7").Equal(holdings[0].Quantity))
}

func TestRecord_UnknownInstrumentFails(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()

	_, err := NewRepository(db.Conn(), zerolog.Nop()).Record(context.Background(),
		domain.PositionDelta{InstrumentID: 42, Quantity: testingpkg.Dec("1")})
	assert.Error(t, err)
}

func TestRecord_RejectsSubCentCash(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	_, err := repo.Record(ctx, domain.PositionDelta{InstrumentID: domain.CashInstrumentID, Quantity: testingpkg.Dec("10.005")})
	assert.ErrorIs(t, err, domain.ErrCashPrecision)

	_, err = repo.Record(ctx, domain.PositionDelta{InstrumentID: domain.CashInstrumentID, Quantity: testingpkg.Dec("10.50")})
	require.NoError(t, err)

	assert.Equal(t, 1, testingpkg.CountRows(t, db.Conn(), "portfolio", ""))
}
