package quotes

import (
	"context"
	"testing"

	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/domain"
	testingpkg "github.com/aristath/storable/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appleRecord(date string, open, high, low, close string) Record {
	return Record{
		Symbol: testingpkg.Apple.Symbol,
		Quote: domain.Quote{
			Date:         domain.MustParseTradingDate(date),
			InstrumentID: testingpkg.Apple.ID,
			Open:         testingpkg.Dec(open),
			High:         testingpkg.Dec(high),
			Low:          testingpkg.Dec(low),
			Close:        testingpkg.Dec(close),
		},
	}
}

func TestRepository_InsertAndForDate(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	testingpkg.SeedInstrument(t, db.Conn(), testingpkg.Apple)

	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, appleRecord("2021-05-03", "120", "122", "119", "121").Quote))

	var open string
	require.NoError(t, db.Conn().QueryRow(`SELECT open FROM quotes WHERE date = '2021-05-03'`).Scan(&open))
	assert.Equal(t, "120.00", open)

	quotes, err := repo.ForDate(ctx, domain.MustParseTradingDate("2021-05-03"))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "2021-05-03", quotes[0].Date.String())
	assert.True(t, testingpkg.Dec("121").Equal(quotes[0].Close))

	none, err := repo.ForDate(ctx, domain.MustParseTradingDate("2021-05-04"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_DuplicateIsConflict(t *testing.T) {
	for _, driver := range []string{database.DriverModernc, database.DriverMattn} {
		t.Run(driver, func(t *testing.T) {
			db, cleanup := testingpkg.NewTestDBWithDriver(t, driver)
			defer cleanup()
			testingpkg.SeedInstrument(t, db.Conn(), testingpkg.Apple)

			repo := NewRepository(db.Conn(), zerolog.Nop())
			ctx := context.Background()

			require.NoError(t, repo.Insert(ctx, appleRecord("2021-05-03", "120", "122", "119", "121").Quote))
			err := repo.Insert(ctx, appleRecord("2021-05-03", "1", "1", "1", "1").Quote)
			assert.True(t, database.IsConflict(err))

			var open string
			require.NoError(t, db.Conn().QueryRow(`SELECT open FROM quotes`).Scan(&open))
			assert.Equal(t, "120.00", open)
		})
	}
}

func TestPersist_SetsDirtyOnlyWhenSomethingIsNew(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	testingpkg.SeedInstrument(t, db.Conn(), testingpkg.Apple)

	persister := NewPersister(NewRepository(db.Conn(), zerolog.Nop()), zerolog.Nop())
	ctx := context.Background()
	records := []Record{appleRecord("2021-05-03", "120", "122", "119", "121")}

	first, err := persister.Persist(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, PersistResult{Inserted: 1, Dirty: true}, first)

	second, err := persister.Persist(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, PersistResult{Conflicts: 1}, second)

	assert.Equal(t, 1, testingpkg.CountRows(t, db.Conn(), "quotes", ""))
}

func TestPersist_ConflictDoesNotStopBatch(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	testingpkg.SeedInstrument(t, db.Conn(), testingpkg.Apple)
	testingpkg.SeedQuote(t, db.Conn(), "2021-05-03", testingpkg.Apple.ID, "120.00", "122.00", "119.00", "121.00")

	persister := NewPersister(NewRepository(db.Conn(), zerolog.Nop()), zerolog.Nop())
	result, err := persister.Persist(context.Background(), []Record{
		appleRecord("2021-05-03", "1", "1", "1", "1"),
		appleRecord("2021-05-04", "121", "123", "120", "122"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Conflicts)
	assert.True(t, result.Dirty)
}

func TestPersist_OtherErrorsPropagate(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()

	// No such instrument: the foreign key rejects it and that is not a conflict
	persister := NewPersister(NewRepository(db.Conn(), zerolog.Nop()), zerolog.Nop())
	_, err := persister.Persist(context.Background(), []Record{appleRecord("2021-05-03", "1", "1", "1", "1")})
	require.Error(t, err)
	assert.False(t, database.IsConflict(err))
}

func TestPersist_EmptyBatch(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()

	result, err := NewPersister(NewRepository(db.Conn(), zerolog.Nop()), zerolog.Nop()).Persist(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, result.Dirty)
}
