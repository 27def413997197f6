package repository

import (
	"context"

	"golang-signal-engine/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IndicatorRepository provides access to computed indicator rows. It
// satisfies the engine's IndicatorSource.
type IndicatorRepository interface {
	GetLatestRow(ctx context.Context, symbolID uint, timeframe string) (*entity.IndicatorSnapshot, error)
	GetRows(ctx context.Context, symbolID uint, timeframe string, limit int) ([]entity.IndicatorSnapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *entity.IndicatorSnapshot) error
}

type indicatorRepository struct {
	db *gorm.DB
}

func NewIndicatorRepository(db *gorm.DB) IndicatorRepository {
	return &indicatorRepository{db: db}
}

func (r *indicatorRepository) GetLatestRow(ctx context.Context, symbolID uint, timeframe string) (*entity.IndicatorSnapshot, error) {
	var row entity.IndicatorSnapshot
	err := r.db.WithContext(ctx).
		Where("symbol_id = ? AND timeframe = ?", symbolID, timeframe).
		Order("timestamp desc").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *indicatorRepository) GetRows(ctx context.Context, symbolID uint, timeframe string, limit int) ([]entity.IndicatorSnapshot, error) {
	var rows []entity.IndicatorSnapshot
	err := r.db.WithContext(ctx).
		Where("symbol_id = ? AND timeframe = ?", symbolID, timeframe).
		Order("timestamp desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveSnapshot upserts the row for (symbol, timeframe, timestamp) so that a
// backfill re-run refreshes values instead of duplicating rows.
func (r *indicatorRepository) SaveSnapshot(ctx context.Context, snapshot *entity.IndicatorSnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol_id"}, {Name: "timeframe"}, {Name: "timestamp"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"data_points", "close",
			"macd_line", "macd_signal", "macd_hist",
			"sma_10", "sma_20", "sma_50", "sma_200", "sma_avg",
			"rsi", "boll_upper", "boll_middle", "boll_lower",
			"stoch_k", "stoch_d", "williams_r", "updated_at",
		}),
	}).Create(snapshot).Error
}
