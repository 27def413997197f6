package engine

import (
	"context"
	"time"

	"golang-signal-engine/internal/entity"
)

// StrategySMAStructure is the registry name of the SMA structure strategy.
const StrategySMAStructure = "sma_structure"

// SMAStructureStrategy classifies trend from the moving-average stack.
type SMAStructureStrategy struct {
	rows       IndicatorSource
	cfg        SMAConfig
	timeframes []string
}

// NewSMAStructureStrategy creates the SMA structure strategy.
func NewSMAStructureStrategy(rows IndicatorSource, cfg SMAConfig, timeframes []string) *SMAStructureStrategy {
	return &SMAStructureStrategy{rows: rows, cfg: cfg, timeframes: timeframes}
}

func (s *SMAStructureStrategy) Name() string { return StrategySMAStructure }

func (s *SMAStructureStrategy) DefaultWeight() float64 { return 1.0 }

func (s *SMAStructureStrategy) RequiredIndicators() []string {
	return []string{"sma_10", "sma_20", "sma_50", "sma_200"}
}

func (s *SMAStructureStrategy) SupportedTimeframes() []string { return s.timeframes }

func (s *SMAStructureStrategy) Evaluate(ctx context.Context, symbol *entity.Symbol, timeframe string) (*SignalResult, error) {
	row, err := s.rows.GetLatestRow(ctx, symbol.ID, timeframe)
	if err != nil {
		return nil, err
	}

	reading, err := EvaluateSMAStructure(row, s.cfg)
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
			"close":   row.Close,
			"sma_10":  row.SMA10,
			"sma_20":  row.SMA20,
			"sma_50":  row.SMA50,
			"sma_200": row.SMA200,
			"sma_avg": row.SMAAvg,
		},
	}, nil
}
