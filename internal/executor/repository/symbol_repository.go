package repository

import (
	"context"

	"golang-signal-engine/internal/entity"

	"gorm.io/gorm"
)

// SymbolRepository provides access to the symbols table. It satisfies the
// engine's SymbolSource.
type SymbolRepository interface {
	GetSymbol(ctx context.Context, id uint) (*entity.Symbol, error)
	GetByTicker(ctx context.Context, ticker string) (*entity.Symbol, error)
	ListActiveSymbols(ctx context.Context, market entity.MarketType) ([]entity.Symbol, error)
	Create(ctx context.Context, symbol *entity.Symbol) error
	SetActive(ctx context.Context, id uint, active bool) error
}

type symbolRepository struct {
	db *gorm.DB
}

func NewSymbolRepository(db *gorm.DB) SymbolRepository {
	return &symbolRepository{db: db}
}

func (r *symbolRepository) GetSymbol(ctx context.Context, id uint) (*entity.Symbol, error) {
	var symbol entity.Symbol
	if err := r.db.WithContext(ctx).First(&symbol, id).Error; err != nil {
		return nil, err
	}
	return &symbol, nil
}

func (r *symbolRepository) GetByTicker(ctx context.Context, ticker string) (*entity.Symbol, error) {
	var symbol entity.Symbol
	if err := r.db.WithContext(ctx).Where("ticker = ?", ticker).First(&symbol).Error; err != nil {
		return nil, err
	}
	return &symbol, nil
}

func (r *symbolRepository) ListActiveSymbols(ctx context.Context, market entity.MarketType) ([]entity.Symbol, error) {
	var symbols []entity.Symbol
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if market != "" {
		query = query.Where("market_type = ?", market)
	}
	if err := query.Order("ticker asc").Find(&symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

func (r *symbolRepository) Create(ctx context.Context, symbol *entity.Symbol) error {
	return r.db.WithContext(ctx).Create(symbol).Error
}

func (r *symbolRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.db.WithContext(ctx).Model(&entity.Symbol{}).Where("id = ?", id).
		Update("is_active", active).Error
}
