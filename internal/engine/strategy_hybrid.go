package engine

import (
	"context"
	"time"

	"golang-signal-engine/internal/entity"
)

// StrategyHybrid is the registry name of the trend+momentum hybrid strategy.
const StrategyHybrid = "hybrid"

// HybridStrategy runs the SMA structure evaluator for trend confirmation and
// the MACD zone evaluator for momentum, then fuses the two through the fixed
// hybrid decision matrix.
type HybridStrategy struct {
	trend    *SMAStructureStrategy
	momentum *MACDZoneStrategy
}

// NewHybridStrategy creates the hybrid strategy from its two legs.
func NewHybridStrategy(trend *SMAStructureStrategy, momentum *MACDZoneStrategy) *HybridStrategy {
	return &HybridStrategy{trend: trend, momentum: momentum}
}

func (s *HybridStrategy) Name() string { return StrategyHybrid }

func (s *HybridStrategy) DefaultWeight() float64 { return 1.5 }

func (s *HybridStrategy) RequiredIndicators() []string {
	return append(s.trend.RequiredIndicators(), s.momentum.RequiredIndicators()...)
}

func (s *HybridStrategy) SupportedTimeframes() []string { return s.momentum.SupportedTimeframes() }

func (s *HybridStrategy) Evaluate(ctx context.Context, symbol *entity.Symbol, timeframe string) (*SignalResult, error) {
	trendResult, err := s.trend.Evaluate(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	momentumResult, err := s.momentum.Evaluate(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}

	combined := CombineHybrid(trendResult.Direction, trendResult.Strength,
		momentumResult.Direction, momentumResult.Strength)

	return &SignalResult{
		Strategy:    s.Name(),
		SymbolID:    symbol.ID,
		Timeframe:   timeframe,
		Timestamp:   momentumResult.Timestamp,
		Direction:   combined.Level.Direction(),
		Strength:    combined.Strength,
		Confidence:  combined.Confidence,
		GeneratedAt: time.Now().UTC(),
		Details: map[string]interface{}{
			"level":             string(combined.Level),
			"trend_direction":   string(trendResult.Direction),
			"trend_strength":    trendResult.Strength,
			"momentum_direction": string(momentumResult.Direction),
			"momentum_strength": momentumResult.Strength,
		},
	}, nil
}

// Direction collapses a combined level to its directional bucket.
func (l CombinedLevel) Direction() Direction {
	switch l {
	case LevelStrongBuy, LevelBuy, LevelWeakBuy:
		return DirectionBuy
	case LevelStrongSell, LevelSell, LevelWeakSell:
		return DirectionSell
	default:
		return DirectionNeutral
	}
}
