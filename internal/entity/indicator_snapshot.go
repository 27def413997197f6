package entity

import "time"

// IndicatorSnapshot is the latest computed indicator row for a symbol and
// timeframe, written by the candle pipeline and read by the evaluators.
type IndicatorSnapshot struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	SymbolID   uint      `gorm:"not null;uniqueIndex:idx_indicator_rows_key" json:"symbol_id"`
	Timeframe  string    `gorm:"not null;uniqueIndex:idx_indicator_rows_key" json:"timeframe"`
	Timestamp  time.Time `gorm:"not null;uniqueIndex:idx_indicator_rows_key" json:"timestamp"`
	DataPoints int       `gorm:"not null;default:0" json:"data_points"`

	Close float64 `gorm:"not null" json:"close"`

	MACDLine   float64 `json:"macd_line"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	SMA10  float64 `json:"sma_10"`
	SMA20  float64 `json:"sma_20"`
	SMA50  float64 `json:"sma_50"`
	SMA200 float64 `json:"sma_200"`
	SMAAvg float64 `json:"sma_avg"`

	RSI        float64 `json:"rsi"`
	BollUpper  float64 `json:"boll_upper"`
	BollMiddle float64 `json:"boll_middle"`
	BollLower  float64 `json:"boll_lower"`
	StochK     float64 `json:"stoch_k"`
	StochD     float64 `json:"stoch_d"`
	WilliamsR  float64 `json:"williams_r"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (IndicatorSnapshot) TableName() string {
	return "indicator_snapshots"
}
