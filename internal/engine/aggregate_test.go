package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(strategy string, dir Direction, strength, confidence float64) SignalResult {
	return SignalResult{
		Strategy:   strategy,
		SymbolID:   1,
		Timeframe:  "1h",
		Direction:  dir,
		Strength:   strength,
		Confidence: confidence,
	}
}

func TestAggregateMinStrategiesGuard(t *testing.T) {
	cfg := DefaultAggregationConfig()
	cfg.MinStrategies = 2

	_, err := Aggregate([]SignalResult{result("macd_zone", DirectionBuy, 0.8, 0.8)}, nil, cfg)
	assert.True(t, errors.Is(err, ErrInsufficientStrategies))
}

func TestAggregateUnknownMethod(t *testing.T) {
	cfg := DefaultAggregationConfig()
	cfg.MinStrategies = 1
	cfg.Method = "median"

	_, err := Aggregate([]SignalResult{result("macd_zone", DirectionBuy, 0.8, 0.8)}, nil, cfg)
	assert.True(t, errors.Is(err, ErrUnknownMethod))
}

func TestAggregateWeightedAverage(t *testing.T) {
	cfg := DefaultAggregationConfig()
	cfg.MinStrategies = 2
	cfg.ConfidenceThreshold = 0
	cfg.ConflictPenalty = 0

	defaults := map[string]float64{"macd_zone": 1.0, "sma_structure": 3.0}
	results := []SignalResult{
		result("macd_zone", DirectionBuy, 0.8, 0.8),
		result("sma_structure", DirectionSell, 0.4, 0.4),
	}

	agg, err := Aggregate(results, defaults, cfg)
	require.NoError(t, err)

	// (0.8*1 - 0.4*3) / 4 = -0.1: heavier sell weight flips the call.
	assert.Equal(t, DirectionSell, agg.Direction)
	assert.InDelta(t, 0.1, agg.Strength, 1e-9)
	assert.ElementsMatch(t, []string{"macd_zone", "sma_structure"}, agg.Contributing)
	assert.Equal(t, DirectionBuy, agg.Votes["macd_zone"])
}

func TestAggregateWeightedConflictPenalty(t *testing.T) {
	cfg := DefaultAggregationConfig()
	cfg.MinStrategies = 2
	cfg.ConfidenceThreshold = 0
	cfg.ConflictPenalty = 0.3

	results := []SignalResult{
		result("a", DirectionBuy, 0.9, 0.9),
		result("b", DirectionSell, 0.1, 0.1),
	}
	agg, err := Aggregate(results, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionBuy, agg.Direction)
	// Strength 0.4 before the penalty, then scaled by (1 - 0.3).
	assert.InDelta(t, 0.28, agg.Strength, 1e-9)
}

func TestAggregateCustomWeightsOverrideDefaults(t *testing.T) {
	cfg := DefaultAggregationConfig()
	cfg.MinStrategies = 2
	cfg.ConfidenceThreshold = 0
	cfg.CustomWeights = map[string]float64{"macd_zone": 5.0}

	defaults := map[string]float64{"macd_zone": 1.0, "sma_structure": 1.0}
	results := []SignalResult{
		result("macd_zone", DirectionBuy, 0.5, 0.9),
		result("sma_structure", DirectionSell, 0.9, 0.9),
	}

	agg, err := Aggregate(results, defaults, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionBuy, agg.Direction)
}

func TestAggregateMajorityVote(t *testing.T) {
	cfg := DefaultAggregationConfig()
	cfg.Method = MethodMajorityVote
	cfg.MinStrategies = 3
	cfg.ConfidenceThreshold = 0

	results := []SignalResult{
		result("a", DirectionBuy, 0.6, 0.6),
		result("b", DirectionBuy, 0.4, 0.4),
		result("c", DirectionSell, 0.9, 0.9),
	}
	agg, err := Aggregate(results, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionBuy, agg.Direction)
	assert.InDelta(t, 0.5, agg.Strength, 1e-9)
}

func TestAggregateMajorityVoteTieBreaks(t *testing.T) {
	cfg := DefaultAggregationConfig()
	cfg.Method = MethodMajorityVote
	cfg.MinStrategies = 2
	cfg.ConfidenceThreshold = 0

	// Tied 1-1; the sell side carries more summed strength.
	agg, err := Aggregate([]SignalResult{
		result("a", DirectionBuy, 0.3, 0.3),
		result("b", DirectionSell, 0.7, 0.7),
	}, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionSell, agg.Direction)

	// Tied on count and strength; alphabetically first strategy name wins.
	agg, err = Aggregate([]SignalResult{
		result("zeta", DirectionSell, 0.5, 0.5),
		result("alpha", DirectionBuy, 0.5, 0.5),
	}, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionBuy, agg.Direction)
}

func TestAggregateConsensusMethod(t *testing.T) {
	cfg := DefaultAggregationConfig()
	cfg.Method = MethodConsensus
	cfg.MinStrategies = 4
	cfg.ConsensusThreshold = 0.7
	cfg.ConfidenceThreshold = 0

	threeOfFour := []SignalResult{
		result("a", DirectionBuy, 0.6, 0.8),
		result("b", DirectionBuy, 0.6, 0.8),
		result("c", DirectionBuy, 0.6, 0.8),
		result("d", DirectionSell, 0.9, 0.9),
	}
	agg, err := Aggregate(threeOfFour, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionBuy, agg.Direction, "3/4 > 0.7 reaches consensus")
	assert.InDelta(t, 0.8, agg.Confidence, 1e-9)

	twoOfFour := []SignalResult{
		result("a", DirectionBuy, 0.6, 0.8),
		result("b", DirectionBuy, 0.6, 0.8),
		result("c", DirectionSell, 0.9, 0.9),
		result("d", DirectionNeutral, 0, 0.1),
	}
	agg, err = Aggregate(twoOfFour, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionNeutral, agg.Direction, "2/4 fails the 0.7 bar")
	assert.InDelta(t, 0.5, agg.Confidence, 1e-9, "confidence reports the leading fraction")
}

func TestAggregateConfidenceGate(t *testing.T) {
	cfg := DefaultAggregationConfig()
	cfg.MinStrategies = 2
	cfg.ConfidenceThreshold = 0.5
	cfg.ConflictPenalty = 0

	results := []SignalResult{
		result("a", DirectionBuy, 0.9, 0.3),
		result("b", DirectionBuy, 0.8, 0.3),
	}
	agg, err := Aggregate(results, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionNeutral, agg.Direction, "low aggregate confidence forces neutral")
}

func TestAggregateConfidenceWeighted(t *testing.T) {
	cfg := DefaultAggregationConfig()
	cfg.Method = MethodConfidenceWeighted
	cfg.MinStrategies = 2
	cfg.ConfidenceThreshold = 0
	cfg.ConflictPenalty = 0

	results := []SignalResult{
		result("a", DirectionBuy, 0.5, 0.9),
		result("b", DirectionSell, 0.5, 0.1),
	}
	agg, err := Aggregate(results, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionBuy, agg.Direction, "high-confidence leg dominates")
	// (0.5*0.9 - 0.5*0.1) / 1.0 = 0.4
	assert.InDelta(t, 0.4, agg.Strength, 1e-9)
}
