package repository

import (
	"context"
	"errors"
	"time"

	"golang-signal-engine/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CandleRepository provides access to raw OHLCV rows.
type CandleRepository interface {
	BulkUpsert(ctx context.Context, candles []entity.Candle) error
	GetRecent(ctx context.Context, symbolID uint, timeframe string, limit int) ([]entity.Candle, error)
	GetRange(ctx context.Context, symbolID uint, timeframe string, from, to time.Time) ([]entity.Candle, error)
	GetLatestTimestamp(ctx context.Context, symbolID uint, timeframe string) (time.Time, error)
}

type candleRepository struct {
	db *gorm.DB
}

func NewCandleRepository(db *gorm.DB) CandleRepository {
	return &candleRepository{db: db}
}

// BulkUpsert inserts candles, silently skipping rows whose
// (symbol, timeframe, timestamp) already exist. Providers occasionally
// resend history, so duplicates are expected.
func (r *candleRepository) BulkUpsert(ctx context.Context, candles []entity.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol_id"}, {Name: "timeframe"}, {Name: "timestamp"}},
		DoNothing: true,
	}).CreateInBatches(candles, 500).Error
}

// GetRecent returns the newest candles in ascending timestamp order.
func (r *candleRepository) GetRecent(ctx context.Context, symbolID uint, timeframe string, limit int) ([]entity.Candle, error) {
	var candles []entity.Candle
	err := r.db.WithContext(ctx).
		Where("symbol_id = ? AND timeframe = ?", symbolID, timeframe).
		Order("timestamp desc").
		Limit(limit).
		Find(&candles).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

func (r *candleRepository) GetRange(ctx context.Context, symbolID uint, timeframe string, from, to time.Time) ([]entity.Candle, error) {
	var candles []entity.Candle
	err := r.db.WithContext(ctx).
		Where("symbol_id = ? AND timeframe = ? AND timestamp >= ? AND timestamp < ?", symbolID, timeframe, from, to).
		Order("timestamp asc").
		Find(&candles).Error
	if err != nil {
		return nil, err
	}
	return candles, nil
}

// GetLatestTimestamp returns the zero time when no candles exist yet.
func (r *candleRepository) GetLatestTimestamp(ctx context.Context, symbolID uint, timeframe string) (time.Time, error) {
	var candle entity.Candle
	err := r.db.WithContext(ctx).
		Where("symbol_id = ? AND timeframe = ?", symbolID, timeframe).
		Order("timestamp desc").
		First(&candle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return candle.Timestamp, nil
}
