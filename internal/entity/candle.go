package entity

import "time"

// Candle is one OHLCV row. Rows are append-only and unique per
// (symbol, timeframe, timestamp).
type Candle struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	SymbolID  uint      `gorm:"not null;uniqueIndex:idx_candles_key" json:"symbol_id"`
	Timeframe string    `gorm:"not null;uniqueIndex:idx_candles_key" json:"timeframe"`
	Timestamp time.Time `gorm:"not null;uniqueIndex:idx_candles_key" json:"timestamp"`
	Open      float64   `gorm:"not null" json:"open"`
	High      float64   `gorm:"not null" json:"high"`
	Low       float64   `gorm:"not null" json:"low"`
	Close     float64   `gorm:"not null" json:"close"`
	Volume    float64   `gorm:"not null" json:"volume"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Candle) TableName() string {
	return "candles"
}
