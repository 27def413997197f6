package entity

import "time"

// ComparisonOperator is the comparison a threshold rule applies to an
// indicator value.
type ComparisonOperator string

const (
	OpGreaterThan    ComparisonOperator = "gt"
	OpGreaterOrEqual ComparisonOperator = "gte"
	OpLessThan       ComparisonOperator = "lt"
	OpLessOrEqual    ComparisonOperator = "lte"
	OpBetween        ComparisonOperator = "between"
)

// ThresholdRule classifies an indicator value into a named zone. A rule with
// a nil SymbolID is a market-type template; rules with a SymbolID override the
// template for that symbol. Rules are evaluated in ascending Priority order
// and the first match wins.
type ThresholdRule struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	SymbolID   *uint              `gorm:"index" json:"symbol_id"`
	MarketType MarketType         `gorm:"not null;index" json:"market_type"`
	Timeframe  string             `gorm:"not null" json:"timeframe"`
	Indicator  string             `gorm:"not null" json:"indicator"`
	Zone       string             `gorm:"not null" json:"zone"`
	Operator   ComparisonOperator `gorm:"not null" json:"operator"`
	MinValue   float64            `json:"min_value"`
	MaxValue   float64            `json:"max_value"`
	Priority   int                `gorm:"not null;default:0" json:"priority"`
	IsActive   bool               `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ThresholdRule) TableName() string {
	return "threshold_rules"
}

// Matches reports whether value satisfies the rule's comparison. For between,
// both bounds are inclusive.
func (r ThresholdRule) Matches(value float64) bool {
	switch r.Operator {
	case OpGreaterThan:
		return value > r.MinValue
	case OpGreaterOrEqual:
		return value >= r.MinValue
	case OpLessThan:
		return value < r.MaxValue
	case OpLessOrEqual:
		return value <= r.MaxValue
	case OpBetween:
		return value >= r.MinValue && value <= r.MaxValue
	default:
		return false
	}
}
