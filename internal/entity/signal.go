package entity

import (
	"time"

	"gorm.io/datatypes"
)

// SignalStatus is the lifecycle state of a persisted signal.
type SignalStatus string

const (
	SignalStatusActive    SignalStatus = "active"
	SignalStatusExpired   SignalStatus = "expired"
	SignalStatusCancelled SignalStatus = "cancelled"
)

// Signal is a persisted trading signal. Uniqueness key:
// (symbol_id, timeframe, timestamp, strategy_id, signal_type). Direction and
// strength are never mutated once active; new versions are appended.
type Signal struct {
	ID         int64          `gorm:"primaryKey" json:"id"`
	SymbolID   uint           `gorm:"not null;uniqueIndex:idx_signals_key" json:"symbol_id"`
	Timeframe  string         `gorm:"not null;uniqueIndex:idx_signals_key" json:"timeframe"`
	Timestamp  time.Time      `gorm:"not null;uniqueIndex:idx_signals_key" json:"timestamp"`
	StrategyID string         `gorm:"not null;uniqueIndex:idx_signals_key" json:"strategy_id"`
	SignalType string         `gorm:"not null;uniqueIndex:idx_signals_key" json:"signal_type"`
	Strength   float64        `gorm:"not null" json:"strength"`
	Confidence float64        `gorm:"not null" json:"confidence"`
	Status     SignalStatus   `gorm:"not null;default:active" json:"status"`
	Priority   int            `gorm:"not null;default:0" json:"priority"`
	ExpiresAt  *time.Time     `json:"expires_at"`
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Signal) TableName() string {
	return "signals"
}
