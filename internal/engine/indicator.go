package engine

import (
	"fmt"
	"math"

	"golang-signal-engine/internal/entity"
)

// MACDConfig holds the MACD evaluator parameters. StrengthNormalization is
// the threshold excess that maps to full strength.
type MACDConfig struct {
	FastPeriod            int     `mapstructure:"fast_period" json:"fast_period"`
	SlowPeriod            int     `mapstructure:"slow_period" json:"slow_period"`
	SignalPeriod          int     `mapstructure:"signal_period" json:"signal_period"`
	StrengthNormalization float64 `mapstructure:"strength_normalization" json:"strength_normalization"`
}

// DefaultMACDConfig returns the standard 12/26/9 parameters.
func DefaultMACDConfig() MACDConfig {
	return MACDConfig{
		FastPeriod:            12,
		SlowPeriod:            26,
		SignalPeriod:          9,
		StrengthNormalization: 2.0,
	}
}

// MinDataPoints is the least number of candles the MACD needs before its
// values are meaningful.
func (c MACDConfig) MinDataPoints() int {
	return c.SlowPeriod + c.SignalPeriod
}

// MACDZoneReading is the classified MACD state at one timeframe.
type MACDZoneReading struct {
	LineZone   string
	SignalZone string
	HistZone   string
	Direction  Direction
	Strength   float64
}

// EvaluateMACDZones classifies the three MACD series independently into
// zones and maps the zone triple to a directional signal. Both lines in the
// bull zone produce a BUY, both in the bear zone a SELL, anything else is
// NEUTRAL. Strength is the average distance past the matched thresholds,
// normalized by cfg.StrengthNormalization.
func EvaluateMACDZones(lineRules, signalRules, histRules []entity.ThresholdRule, row *entity.IndicatorSnapshot, cfg MACDConfig) (*MACDZoneReading, error) {
	if row == nil || row.DataPoints < cfg.MinDataPoints() {
		return nil, fmt.Errorf("macd needs %d points: %w", cfg.MinDataPoints(), ErrInsufficientData)
	}

	reading := &MACDZoneReading{}
	reading.LineZone, _ = Classify(lineRules, row.MACDLine)
	reading.SignalZone, _ = Classify(signalRules, row.MACDSignal)
	reading.HistZone, _ = Classify(histRules, row.MACDHist)

	var agreeZone string
	switch {
	case reading.LineZone == ZoneBull && reading.SignalZone == ZoneBull:
		reading.Direction = DirectionBuy
		agreeZone = ZoneBull
	case reading.LineZone == ZoneBear && reading.SignalZone == ZoneBear:
		reading.Direction = DirectionSell
		agreeZone = ZoneBear
	default:
		reading.Direction = DirectionNeutral
		return reading, nil
	}

	excess := zoneExcess(lineRules, row.MACDLine) + zoneExcess(signalRules, row.MACDSignal)
	count := 2.0
	if reading.HistZone == agreeZone {
		excess += zoneExcess(histRules, row.MACDHist)
		count++
	}
	reading.Strength = clamp01(excess / count / cfg.StrengthNormalization)

	return reading, nil
}

// zoneExcess is how far value sits past the boundary of its first matching
// rule. Values inside a between band have no excess.
func zoneExcess(rules []entity.ThresholdRule, value float64) float64 {
	for _, rule := range rules {
		if !rule.Matches(value) {
			continue
		}
		switch rule.Operator {
		case entity.OpGreaterThan, entity.OpGreaterOrEqual:
			return value - rule.MinValue
		case entity.OpLessThan, entity.OpLessOrEqual:
			return rule.MaxValue - value
		default:
			return 0
		}
	}
	return 0
}

// SMAConfig holds the moving-average structure evaluator parameters.
// StrengthNormalization is the price separation fraction that maps to full
// strength.
type SMAConfig struct {
	StrengthNormalization float64 `mapstructure:"strength_normalization" json:"strength_normalization"`
	MinDataPoints         int     `mapstructure:"min_data_points" json:"min_data_points"`
}

// DefaultSMAConfig requires the long average's window before evaluating.
func DefaultSMAConfig() SMAConfig {
	return SMAConfig{StrengthNormalization: 0.05, MinDataPoints: 200}
}

// SMAStructureReading is the classified moving-average structure.
type SMAStructureReading struct {
	Direction Direction
	Strength  float64
}

// EvaluateSMAStructure classifies trend from the price's position relative
// to the moving-average stack and the stack's internal ordering. All short
// averages above the long one with price above the stack average is bullish
// structure; the mirror image is bearish. Strength scales with the
// separation between price and the stack average.
func EvaluateSMAStructure(row *entity.IndicatorSnapshot, cfg SMAConfig) (*SMAStructureReading, error) {
	if row == nil || row.DataPoints < cfg.MinDataPoints {
		return nil, fmt.Errorf("sma structure needs %d points: %w", cfg.MinDataPoints, ErrInsufficientData)
	}
	if row.SMAAvg <= 0 {
		return nil, fmt.Errorf("sma average not computed: %w", ErrInsufficientData)
	}

	shortAboveLong := row.SMA10 > row.SMA200 && row.SMA20 > row.SMA200 && row.SMA50 > row.SMA200
	shortBelowLong := row.SMA10 < row.SMA200 && row.SMA20 < row.SMA200 && row.SMA50 < row.SMA200

	reading := &SMAStructureReading{Direction: DirectionNeutral}
	switch {
	case row.Close > row.SMAAvg && shortAboveLong:
		reading.Direction = DirectionBuy
	case row.Close < row.SMAAvg && shortBelowLong:
		reading.Direction = DirectionSell
	default:
		return reading, nil
	}

	separation := math.Abs(row.Close-row.SMAAvg) / row.SMAAvg
	reading.Strength = clamp01(separation / cfg.StrengthNormalization)
	return reading, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
