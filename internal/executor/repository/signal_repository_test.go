package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-signal-engine/internal/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func testSignal(ts time.Time) *entity.Signal {
	return &entity.Signal{
		SymbolID:   1,
		Timeframe:  "1h",
		Timestamp:  ts,
		StrategyID: "aggregated",
		SignalType: "BUY",
		Strength:   0.8,
		Confidence: 0.8,
		Status:     entity.SignalStatusActive,
	}
}

func TestUpsertSignalWritesNewRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignalRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "signals"`).
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectQuery(`INSERT INTO "signals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectCommit()

	written, err := repo.UpsertSignal(context.Background(), testSignal(time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.True(t, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSignalSkipsOlderTimestamp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignalRepository(db)

	stored := time.Date(2026, 8, 28, 16, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "signals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "symbol_id", "timeframe", "timestamp", "strategy_id", "signal_type"}).
			AddRow(int64(5), 1, "1h", stored, "aggregated", "BUY"))
	mock.ExpectCommit()

	// Incoming signal is an hour older than the stored latest.
	written, err := repo.UpsertSignal(context.Background(), testSignal(stored.Add(-time.Hour)))
	require.NoError(t, err)
	assert.False(t, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSignalDuplicateKeyIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignalRepository(db)

	stored := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "signals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "symbol_id", "timeframe", "timestamp", "strategy_id", "signal_type"}).
			AddRow(int64(5), 1, "1h", stored, "aggregated", "BUY"))
	mock.ExpectCommit()

	written, err := repo.UpsertSignal(context.Background(), testSignal(stored))
	require.NoError(t, err)
	assert.False(t, written, "identical timestamp re-delivery is dropped")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSignalConflictRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignalRepository(db)

	// A concurrent worker inserted the same key between our read and write;
	// ON CONFLICT DO NOTHING affects zero rows.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "signals"`).
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectQuery(`INSERT INTO "signals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	written, err := repo.UpsertSignal(context.Background(), testSignal(time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.False(t, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireSignals(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignalRepository(db)

	mock.ExpectExec(`UPDATE "signals" SET`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	expired, err := repo.ExpireSignals(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(3), expired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelSignalNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSignalRepository(db)

	mock.ExpectExec(`UPDATE "signals" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CancelSignal(context.Background(), 42)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
