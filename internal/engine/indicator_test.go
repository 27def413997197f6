package engine

import (
	"errors"
	"testing"

	"golang-signal-engine/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usRules(t *testing.T, indicator string) []entity.ThresholdRule {
	t.Helper()
	rules, ok := builtinThresholds(entity.MarketUS, indicator)
	require.True(t, ok)
	return rules
}

func TestEvaluateMACDZonesBuy(t *testing.T) {
	cfg := DefaultMACDConfig()
	row := &entity.IndicatorSnapshot{
		DataPoints: 100,
		MACDLine:   0.6,
		MACDSignal: 0.4,
		MACDHist:   0.3,
	}

	reading, err := EvaluateMACDZones(
		usRules(t, IndicatorMACDLine), usRules(t, IndicatorMACDSignal), usRules(t, IndicatorMACDHist),
		row, cfg)
	require.NoError(t, err)

	assert.Equal(t, DirectionBuy, reading.Direction)
	assert.Equal(t, ZoneBull, reading.LineZone)
	assert.Equal(t, ZoneBull, reading.SignalZone)
	assert.Equal(t, ZoneBull, reading.HistZone)
	// Excesses past the US thresholds: 0.4 + 0.2 + 0.2, averaged over three
	// agreeing series and normalized by 2.0.
	assert.InDelta(t, (0.4+0.2+0.2)/3/2.0, reading.Strength, 1e-9)
}

func TestEvaluateMACDZonesHistDisagrees(t *testing.T) {
	cfg := DefaultMACDConfig()
	row := &entity.IndicatorSnapshot{
		DataPoints: 100,
		MACDLine:   0.6,
		MACDSignal: 0.4,
		MACDHist:   -0.3,
	}

	reading, err := EvaluateMACDZones(
		usRules(t, IndicatorMACDLine), usRules(t, IndicatorMACDSignal), usRules(t, IndicatorMACDHist),
		row, cfg)
	require.NoError(t, err)

	assert.Equal(t, DirectionBuy, reading.Direction)
	assert.Equal(t, ZoneBear, reading.HistZone)
	// The dissenting histogram stays out of the strength average.
	assert.InDelta(t, (0.4+0.2)/2/2.0, reading.Strength, 1e-9)
}

func TestEvaluateMACDZonesNeutralSplit(t *testing.T) {
	cfg := DefaultMACDConfig()
	row := &entity.IndicatorSnapshot{
		DataPoints: 100,
		MACDLine:   0.6,
		MACDSignal: -0.4,
		MACDHist:   0.1,
	}

	reading, err := EvaluateMACDZones(
		usRules(t, IndicatorMACDLine), usRules(t, IndicatorMACDSignal), usRules(t, IndicatorMACDHist),
		row, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionNeutral, reading.Direction)
	assert.Zero(t, reading.Strength)
}

func TestEvaluateMACDZonesInsufficientData(t *testing.T) {
	cfg := DefaultMACDConfig()
	row := &entity.IndicatorSnapshot{DataPoints: cfg.MinDataPoints() - 1}

	_, err := EvaluateMACDZones(nil, nil, nil, row, cfg)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	_, err = EvaluateMACDZones(nil, nil, nil, nil, cfg)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestEvaluateSMAStructure(t *testing.T) {
	cfg := DefaultSMAConfig()

	bullish := &entity.IndicatorSnapshot{
		DataPoints: 250,
		Close:      105,
		SMA10:      103, SMA20: 102, SMA50: 101, SMA200: 95,
		SMAAvg: 100,
	}
	reading, err := EvaluateSMAStructure(bullish, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionBuy, reading.Direction)
	// Separation 5/100 = 0.05 hits the full-strength normalization exactly.
	assert.InDelta(t, 1.0, reading.Strength, 1e-9)

	bearish := &entity.IndicatorSnapshot{
		DataPoints: 250,
		Close:      97.5,
		SMA10:      98, SMA20: 99, SMA50: 99.5, SMA200: 103,
		SMAAvg: 100,
	}
	reading, err = EvaluateSMAStructure(bearish, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionSell, reading.Direction)
	assert.InDelta(t, 0.5, reading.Strength, 1e-9)
}

func TestEvaluateSMAStructureMixedStack(t *testing.T) {
	cfg := DefaultSMAConfig()

	// Price above the average but SMA50 under SMA200: no clean structure.
	mixed := &entity.IndicatorSnapshot{
		DataPoints: 250,
		Close:      105,
		SMA10:      103, SMA20: 102, SMA50: 94, SMA200: 95,
		SMAAvg: 100,
	}
	reading, err := EvaluateSMAStructure(mixed, cfg)
	require.NoError(t, err)
	assert.Equal(t, DirectionNeutral, reading.Direction)
	assert.Zero(t, reading.Strength)
}

func TestEvaluateSMAStructureInsufficientData(t *testing.T) {
	cfg := DefaultSMAConfig()

	_, err := EvaluateSMAStructure(&entity.IndicatorSnapshot{DataPoints: 50}, cfg)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	_, err = EvaluateSMAStructure(&entity.IndicatorSnapshot{DataPoints: 250}, cfg)
	assert.True(t, errors.Is(err, ErrInsufficientData), "missing stack average")
}
