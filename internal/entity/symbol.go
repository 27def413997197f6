package entity

import (
	"time"

	"gorm.io/gorm"
)

// MarketType identifies which trading calendar and threshold template a
// symbol belongs to.
type MarketType string

const (
	MarketUS     MarketType = "us"
	MarketVN     MarketType = "vn"
	MarketGlobal MarketType = "global"
)

type Symbol struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Ticker     string         `gorm:"not null;uniqueIndex:idx_symbols_ticker_exchange" json:"ticker"`
	Exchange   string         `gorm:"not null;uniqueIndex:idx_symbols_ticker_exchange" json:"exchange"`
	MarketType MarketType     `gorm:"not null" json:"market_type"`
	IsActive   bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

func (Symbol) TableName() string {
	return "symbols"
}
