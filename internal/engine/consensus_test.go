package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateConsensusMajorityBull(t *testing.T) {
	cfg := DefaultConsensusConfig()
	cfg.StrengthScale = 2.5

	// Three bull timeframes land exactly on their thresholds, so each
	// contributes strength 0.47/(0.47*2.5) = 0.4.
	readings := []MACDReading{
		{Timeframe: "2m", MACDLine: 0.47, SignalLine: 0.10, HasData: true},
		{Timeframe: "5m", MACDLine: 0.47, SignalLine: 0.10, HasData: true},
		{Timeframe: "15m", MACDLine: -0.22, SignalLine: -0.01, HasData: true},
		{Timeframe: "30m", MACDLine: 0.47, SignalLine: 0.10, HasData: true},
		{Timeframe: "1h", MACDLine: -0.07, SignalLine: -0.01, HasData: true},
	}

	res := EvaluateConsensus(readings, cfg)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.BullCount)
	assert.Equal(t, 2, res.BearCount)
	assert.Equal(t, 5, res.TotalTimeframes)
	assert.False(t, res.Unanimous)
	assert.False(t, res.DataInsufficient)

	// 0.7 * (3/5) + 0.3 * 0.4 = 0.54, clearing the 0.5 activation.
	assert.InDelta(t, 0.54, res.Confidence, 1e-9)
	assert.Equal(t, StanceBull, res.SignalType)
}

func TestEvaluateConsensusBelowActivation(t *testing.T) {
	cfg := DefaultConsensusConfig()
	cfg.ActivationThreshold = 0.9

	readings := []MACDReading{
		{Timeframe: "2m", MACDLine: 0.5, SignalLine: 0.3, HasData: true},
		{Timeframe: "5m", MACDLine: 0.5, SignalLine: 0.3, HasData: true},
		{Timeframe: "15m", MACDLine: -0.3, SignalLine: -0.1, HasData: true},
	}

	res := EvaluateConsensus(readings, cfg)
	assert.Equal(t, StanceNeutral, res.SignalType, "majority exists but confidence stays under activation")
	assert.Equal(t, 2, res.BullCount)
}

func TestEvaluateConsensusUnanimousMode(t *testing.T) {
	cfg := DefaultConsensusConfig()
	cfg.Unanimous = true

	readings := []MACDReading{
		{Timeframe: "2m", MACDLine: 1.0, SignalLine: 0.9, HasData: true},
		{Timeframe: "5m", MACDLine: 1.0, SignalLine: 0.9, HasData: true},
		{Timeframe: "15m", MACDLine: -0.5, SignalLine: -0.4, HasData: true},
	}
	res := EvaluateConsensus(readings, cfg)
	assert.False(t, res.Unanimous)
	assert.Equal(t, StanceNeutral, res.SignalType)

	// With the dissenter removed every voting timeframe agrees.
	res = EvaluateConsensus(readings[:2], cfg)
	assert.True(t, res.Unanimous)
	assert.Equal(t, StanceBull, res.SignalType)
}

func TestEvaluateConsensusDataInsufficient(t *testing.T) {
	cfg := DefaultConsensusConfig()
	readings := []MACDReading{
		{Timeframe: "2m", MACDLine: 1.0, SignalLine: 0.9, HasData: true},
		{Timeframe: "5m", HasData: false},
		{Timeframe: "15m", HasData: false},
	}

	res := EvaluateConsensus(readings, cfg)
	assert.True(t, res.DataInsufficient)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, StanceNeutral, res.SignalType)
	assert.Equal(t, 1, res.TotalTimeframes, "timeframes without data stay out of the denominator")
}

func TestEvaluateConsensusBearSide(t *testing.T) {
	cfg := DefaultConsensusConfig()
	readings := []MACDReading{
		{Timeframe: "15m", MACDLine: -1.0, SignalLine: -0.8, HasData: true},
		{Timeframe: "30m", MACDLine: -1.5, SignalLine: -1.2, HasData: true},
		{Timeframe: "1h", MACDLine: -0.3, SignalLine: -0.2, HasData: true},
	}

	res := EvaluateConsensus(readings, cfg)
	assert.Equal(t, StanceBear, res.SignalType)
	assert.True(t, res.Unanimous)
	assert.Equal(t, 3, res.BearCount)
	assert.Greater(t, res.Confidence, 0.5)
}

func TestClassifyTimeframeMixedSigns(t *testing.T) {
	// Fast clears the threshold but signal is still negative: no vote.
	assert.Equal(t, StanceNeutral, classifyTimeframe(0.5, -0.1, 0.2))
	assert.Equal(t, StanceBull, classifyTimeframe(0.5, 0.1, 0.2))
	assert.Equal(t, StanceBear, classifyTimeframe(-0.5, -0.1, 0.2))
}
