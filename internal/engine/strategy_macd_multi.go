package engine

import (
	"context"
	"errors"
	"time"

	"golang-signal-engine/internal/entity"

	"gorm.io/gorm"
)

// StrategyMACDMulti is the registry name of the multi-timeframe MACD strategy.
const StrategyMACDMulti = "macd_multi_timeframe"

// MACDMultiStrategy runs the MACD readings across every configured timeframe
// and votes them into one BULL/BEAR/NEUTRAL call. The timeframe argument of
// Evaluate is ignored; the result always spans the configured set.
type MACDMultiStrategy struct {
	rows IndicatorSource
	cfg  ConsensusConfig
}

// NewMACDMultiStrategy creates the multi-timeframe MACD strategy.
func NewMACDMultiStrategy(rows IndicatorSource, cfg ConsensusConfig) *MACDMultiStrategy {
	return &MACDMultiStrategy{rows: rows, cfg: cfg}
}

func (s *MACDMultiStrategy) Name() string { return StrategyMACDMulti }

func (s *MACDMultiStrategy) DefaultWeight() float64 { return 2.0 }

func (s *MACDMultiStrategy) RequiredIndicators() []string {
	return []string{IndicatorMACDLine, IndicatorMACDSignal, IndicatorMACDHist}
}

func (s *MACDMultiStrategy) SupportedTimeframes() []string { return s.cfg.Timeframes }

// Consensus computes the full multi-timeframe result for a symbol.
func (s *MACDMultiStrategy) Consensus(ctx context.Context, symbol *entity.Symbol) (*ConsensusResult, error) {
	minPoints := s.cfg.SlowPeriod + s.cfg.SignalPeriod

	readings := make([]MACDReading, 0, len(s.cfg.Timeframes))
	for _, tf := range s.cfg.Timeframes {
		reading := MACDReading{Timeframe: tf}

		row, err := s.rows.GetLatestRow(ctx, symbol.ID, tf)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no data for this timeframe, excluded from the vote
		case err != nil:
			return nil, err
		case row.DataPoints >= minPoints:
			reading.MACDLine = row.MACDLine
			reading.SignalLine = row.MACDSignal
			reading.Histogram = row.MACDHist
			reading.HasData = true
		}
		readings = append(readings, reading)
	}

	return EvaluateConsensus(readings, s.cfg), nil
}

func (s *MACDMultiStrategy) Evaluate(ctx context.Context, symbol *entity.Symbol, _ string) (*SignalResult, error) {
	consensus, err := s.Consensus(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if consensus.DataInsufficient {
		return nil, ErrInsufficientData
	}

	direction := DirectionNeutral
	switch consensus.SignalType {
	case StanceBull:
		direction = DirectionBuy
	case StanceBear:
		direction = DirectionSell
	}

	// Strength of the overall call is the average strength of the agreeing
	// timeframes, already folded into the confidence formula.
	return &SignalResult{
		Strategy:    s.Name(),
		SymbolID:    symbol.ID,
		Timeframe:   "multi",
		Timestamp:   time.Now().UTC().Truncate(time.Minute),
		Direction:   direction,
		Strength:    consensus.Confidence,
		Confidence:  consensus.Confidence,
		GeneratedAt: time.Now().UTC(),
		Details: map[string]interface{}{
			"signal_type": string(consensus.SignalType),
			"bull_count":  consensus.BullCount,
			"bear_count":  consensus.BearCount,
			"unanimous":   consensus.Unanimous,
		},
	}, nil
}

// DetailBlob builds the stable persisted detail payload for downstream
// consumers.
func (s *MACDMultiStrategy) DetailBlob(consensus *ConsensusResult) MACDMultiDetails {
	return MACDMultiDetails{
		Strategy:     s.Name(),
		FastPeriod:   s.cfg.FastPeriod,
		SlowPeriod:   s.cfg.SlowPeriod,
		SignalPeriod: s.cfg.SignalPeriod,
		OverallSignal: MACDMultiOverall{
			SignalType: consensus.SignalType,
			Confidence: consensus.Confidence,
			BullCount:  consensus.BullCount,
			BearCount:  consensus.BearCount,
		},
		TimeframeResults: consensus.Timeframes,
	}
}
