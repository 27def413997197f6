package engine

import (
	"context"
	"fmt"
	"time"

	"golang-signal-engine/internal/entity"
)

// Oscillator strategy names.
const (
	StrategyRSI        = "rsi"
	StrategyBollinger  = "bollinger"
	StrategyStochastic = "stochastic"
	StrategyWilliamsR  = "williams_r"
)

const oscillatorMinDataPoints = 20

// RSIStrategy signals on oversold/overbought RSI zones resolved through the
// threshold resolver.
type RSIStrategy struct {
	resolver   *ThresholdResolver
	rows       IndicatorSource
	timeframes []string
}

func NewRSIStrategy(resolver *ThresholdResolver, rows IndicatorSource, timeframes []string) *RSIStrategy {
	return &RSIStrategy{resolver: resolver, rows: rows, timeframes: timeframes}
}

func (s *RSIStrategy) Name() string                  { return StrategyRSI }
func (s *RSIStrategy) DefaultWeight() float64        { return 0.8 }
func (s *RSIStrategy) RequiredIndicators() []string  { return []string{IndicatorRSI} }
func (s *RSIStrategy) SupportedTimeframes() []string { return s.timeframes }

func (s *RSIStrategy) Evaluate(ctx context.Context, symbol *entity.Symbol, timeframe string) (*SignalResult, error) {
	row, err := latestRow(ctx, s.rows, symbol.ID, timeframe, oscillatorMinDataPoints)
	if err != nil {
		return nil, err
	}

	rules, err := s.resolver.Resolve(ctx, symbol, timeframe, IndicatorRSI)
	if err != nil {
		return nil, err
	}

	zone, _ := Classify(rules, row.RSI)
	direction := DirectionNeutral
	var strength float64
	switch zone {
	case ZoneOversold:
		direction = DirectionBuy
		strength = clamp01(zoneExcess(rules, row.RSI) / 30)
	case ZoneOverbought:
		direction = DirectionSell
		strength = clamp01(zoneExcess(rules, row.RSI) / 30)
	}

	return oscillatorResult(s.Name(), symbol.ID, timeframe, row.Timestamp, direction, strength, map[string]interface{}{
		"rsi":  row.RSI,
		"zone": zone,
	}), nil
}

// BollingerStrategy signals on price position relative to the Bollinger
// bands.
type BollingerStrategy struct {
	rows       IndicatorSource
	timeframes []string
}

func NewBollingerStrategy(rows IndicatorSource, timeframes []string) *BollingerStrategy {
	return &BollingerStrategy{rows: rows, timeframes: timeframes}
}

func (s *BollingerStrategy) Name() string                  { return StrategyBollinger }
func (s *BollingerStrategy) DefaultWeight() float64        { return 0.8 }
func (s *BollingerStrategy) RequiredIndicators() []string  { return []string{"boll_upper", "boll_middle", "boll_lower"} }
func (s *BollingerStrategy) SupportedTimeframes() []string { return s.timeframes }

func (s *BollingerStrategy) Evaluate(ctx context.Context, symbol *entity.Symbol, timeframe string) (*SignalResult, error) {
	row, err := latestRow(ctx, s.rows, symbol.ID, timeframe, oscillatorMinDataPoints)
	if err != nil {
		return nil, err
	}

	width := row.BollUpper - row.BollLower
	if width <= 0 {
		return nil, fmt.Errorf("bollinger bands not computed: %w", ErrInsufficientData)
	}

	direction := DirectionNeutral
	var strength float64
	switch {
	case row.Close <= row.BollLower:
		direction = DirectionBuy
		strength = clamp01((row.BollLower - row.Close) / width * 4)
	case row.Close >= row.BollUpper:
		direction = DirectionSell
		strength = clamp01((row.Close - row.BollUpper) / width * 4)
	}

	return oscillatorResult(s.Name(), symbol.ID, timeframe, row.Timestamp, direction, strength, map[string]interface{}{
		"close":       row.Close,
		"boll_upper":  row.BollUpper,
		"boll_middle": row.BollMiddle,
		"boll_lower":  row.BollLower,
	}), nil
}

// StochasticStrategy signals on %K/%D positioning in oversold/overbought
// zones.
type StochasticStrategy struct {
	resolver   *ThresholdResolver
	rows       IndicatorSource
	timeframes []string
}

func NewStochasticStrategy(resolver *ThresholdResolver, rows IndicatorSource, timeframes []string) *StochasticStrategy {
	return &StochasticStrategy{resolver: resolver, rows: rows, timeframes: timeframes}
}

func (s *StochasticStrategy) Name() string                  { return StrategyStochastic }
func (s *StochasticStrategy) DefaultWeight() float64        { return 0.7 }
func (s *StochasticStrategy) RequiredIndicators() []string  { return []string{IndicatorStochastic} }
func (s *StochasticStrategy) SupportedTimeframes() []string { return s.timeframes }

func (s *StochasticStrategy) Evaluate(ctx context.Context, symbol *entity.Symbol, timeframe string) (*SignalResult, error) {
	row, err := latestRow(ctx, s.rows, symbol.ID, timeframe, oscillatorMinDataPoints)
	if err != nil {
		return nil, err
	}

	rules, err := s.resolver.Resolve(ctx, symbol, timeframe, IndicatorStochastic)
	if err != nil {
		return nil, err
	}

	zone, _ := Classify(rules, row.StochK)
	direction := DirectionNeutral
	var strength float64
	switch {
	case zone == ZoneOversold && row.StochK > row.StochD:
		direction = DirectionBuy
		strength = clamp01(zoneExcess(rules, row.StochK) / 20)
	case zone == ZoneOverbought && row.StochK < row.StochD:
		direction = DirectionSell
		strength = clamp01(zoneExcess(rules, row.StochK) / 20)
	}

	return oscillatorResult(s.Name(), symbol.ID, timeframe, row.Timestamp, direction, strength, map[string]interface{}{
		"stoch_k": row.StochK,
		"stoch_d": row.StochD,
		"zone":    zone,
	}), nil
}

// WilliamsRStrategy signals on Williams %R extremes.
type WilliamsRStrategy struct {
	resolver   *ThresholdResolver
	rows       IndicatorSource
	timeframes []string
}

func NewWilliamsRStrategy(resolver *ThresholdResolver, rows IndicatorSource, timeframes []string) *WilliamsRStrategy {
	return &WilliamsRStrategy{resolver: resolver, rows: rows, timeframes: timeframes}
}

func (s *WilliamsRStrategy) Name() string                  { return StrategyWilliamsR }
func (s *WilliamsRStrategy) DefaultWeight() float64        { return 0.7 }
func (s *WilliamsRStrategy) RequiredIndicators() []string  { return []string{IndicatorWilliamsR} }
func (s *WilliamsRStrategy) SupportedTimeframes() []string { return s.timeframes }

func (s *WilliamsRStrategy) Evaluate(ctx context.Context, symbol *entity.Symbol, timeframe string) (*SignalResult, error) {
	row, err := latestRow(ctx, s.rows, symbol.ID, timeframe, oscillatorMinDataPoints)
	if err != nil {
		return nil, err
	}

	rules, err := s.resolver.Resolve(ctx, symbol, timeframe, IndicatorWilliamsR)
	if err != nil {
		return nil, err
	}

	zone, _ := Classify(rules, row.WilliamsR)
	direction := DirectionNeutral
	var strength float64
	switch zone {
	case ZoneOversold:
		direction = DirectionBuy
		strength = clamp01(zoneExcess(rules, row.WilliamsR) / 20)
	case ZoneOverbought:
		direction = DirectionSell
		strength = clamp01(zoneExcess(rules, row.WilliamsR) / 20)
	}

	return oscillatorResult(s.Name(), symbol.ID, timeframe, row.Timestamp, direction, strength, map[string]interface{}{
		"williams_r": row.WilliamsR,
		"zone":       zone,
	}), nil
}

func latestRow(ctx context.Context, rows IndicatorSource, symbolID uint, timeframe string, minPoints int) (*entity.IndicatorSnapshot, error) {
	row, err := rows.GetLatestRow(ctx, symbolID, timeframe)
	if err != nil {
		return nil, err
	}
	if row.DataPoints < minPoints {
		return nil, fmt.Errorf("oscillator needs %d points: %w", minPoints, ErrInsufficientData)
	}
	return row, nil
}

func oscillatorResult(name string, symbolID uint, timeframe string, ts time.Time, direction Direction, strength float64, details map[string]interface{}) *SignalResult {
	return &SignalResult{
		Strategy:    name,
		SymbolID:    symbolID,
		Timeframe:   timeframe,
		Timestamp:   ts,
		Direction:   direction,
		Strength:    strength,
		Confidence:  strength,
		Details:     details,
		GeneratedAt: time.Now().UTC(),
	}
}
