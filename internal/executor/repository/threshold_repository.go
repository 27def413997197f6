package repository

import (
	"context"

	"golang-signal-engine/internal/entity"

	"gorm.io/gorm"
)

// ThresholdRepository provides access to threshold rules. It satisfies the
// engine's ThresholdSource; the resolver layers caching and built-in
// defaults on top.
type ThresholdRepository interface {
	GetSymbolRules(ctx context.Context, symbolID uint, timeframe, indicator string) ([]entity.ThresholdRule, error)
	GetTemplateRules(ctx context.Context, market entity.MarketType, timeframe, indicator string) ([]entity.ThresholdRule, error)
	ListRules(ctx context.Context, market entity.MarketType) ([]entity.ThresholdRule, error)
	SaveRule(ctx context.Context, rule *entity.ThresholdRule) error
	DeactivateRule(ctx context.Context, id uint) error
}

type thresholdRepository struct {
	db *gorm.DB
}

func NewThresholdRepository(db *gorm.DB) ThresholdRepository {
	return &thresholdRepository{db: db}
}

func (r *thresholdRepository) GetSymbolRules(ctx context.Context, symbolID uint, timeframe, indicator string) ([]entity.ThresholdRule, error) {
	var rules []entity.ThresholdRule
	err := r.db.WithContext(ctx).
		Where("symbol_id = ? AND indicator = ? AND is_active = ?", symbolID, indicator, true).
		Where("timeframe = ? OR timeframe = ''", timeframe).
		Order("priority asc").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *thresholdRepository) GetTemplateRules(ctx context.Context, market entity.MarketType, timeframe, indicator string) ([]entity.ThresholdRule, error) {
	var rules []entity.ThresholdRule
	err := r.db.WithContext(ctx).
		Where("symbol_id IS NULL AND market_type = ? AND indicator = ? AND is_active = ?", market, indicator, true).
		Where("timeframe = ? OR timeframe = ''", timeframe).
		Order("priority asc").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *thresholdRepository) ListRules(ctx context.Context, market entity.MarketType) ([]entity.ThresholdRule, error) {
	var rules []entity.ThresholdRule
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if market != "" {
		query = query.Where("market_type = ?", market)
	}
	if err := query.Order("indicator asc, priority asc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *thresholdRepository) SaveRule(ctx context.Context, rule *entity.ThresholdRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *thresholdRepository) DeactivateRule(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&entity.ThresholdRule{}).Where("id = ?", id).
		Update("is_active", false).Error
}
