package engine

import (
	"context"
	"time"

	"golang-signal-engine/internal/entity"
)

// StrategyMACDZone is the registry name of the MACD zone strategy.
const StrategyMACDZone = "macd_zone"

// MACDZoneStrategy classifies the latest MACD triple into zones via the
// threshold resolver and maps the zone combination to a directional call.
type MACDZoneStrategy struct {
	resolver   *ThresholdResolver
	rows       IndicatorSource
	cfg        MACDConfig
	timeframes []string
}

// NewMACDZoneStrategy creates the MACD zone strategy.
func NewMACDZoneStrategy(resolver *ThresholdResolver, rows IndicatorSource, cfg MACDConfig, timeframes []string) *MACDZoneStrategy {
	return &MACDZoneStrategy{resolver: resolver, rows: rows, cfg: cfg, timeframes: timeframes}
}

func (s *MACDZoneStrategy) Name() string { return StrategyMACDZone }

func (s *MACDZoneStrategy) DefaultWeight() float64 { return 1.0 }

func (s *MACDZoneStrategy) RequiredIndicators() []string {
	return []string{IndicatorMACDLine, IndicatorMACDSignal, IndicatorMACDHist}
}

func (s *MACDZoneStrategy) SupportedTimeframes() []string { return s.timeframes }

func (s *MACDZoneStrategy) Evaluate(ctx context.Context, symbol *entity.Symbol, timeframe string) (*SignalResult, error) {
	row, err := s.rows.GetLatestRow(ctx, symbol.ID, timeframe)
	if err != nil {
		return nil, err
	}

	lineRules, err := s.resolver.Resolve(ctx, symbol, timeframe, IndicatorMACDLine)
	if err != nil {
		return nil, err
	}
	signalRules, err := s.resolver.Resolve(ctx, symbol, timeframe, IndicatorMACDSignal)
	if err != nil {
		return nil, err
	}
	histRules, err := s.resolver.Resolve(ctx, symbol, timeframe, IndicatorMACDHist)
	if err != nil {
		return nil, err
	}

	reading, err := EvaluateMACDZones(lineRules, signalRules, histRules, row, s.cfg)
	if err != nil {
		return nil, err
	}

	return &SignalResult{
		Strategy:    s.Name(),
		SymbolID:    symbol.ID,
		Timeframe:   timeframe,
		Timestamp:   row.Timestamp,
		Direction:   reading.Direction,
		Strength:    reading.Strength,
		Confidence:  reading.Strength,
		GeneratedAt: time.Now().UTC(),
		Details: map[string]interface{}{
			"macd_line":   row.MACDLine,
			"macd_signal": row.MACDSignal,
			"macd_hist":   row.MACDHist,
			"line_zone":   reading.LineZone,
			"signal_zone": reading.SignalZone,
			"hist_zone":   reading.HistZone,
		},
	}, nil
}
