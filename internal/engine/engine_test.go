package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-signal-engine/internal/entity"
	"golang-signal-engine/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSignalStore struct {
	signals      []*entity.Signal
	multiSignals []*entity.Signal
	written      bool
}

func (f *fakeSignalStore) UpsertSignal(_ context.Context, s *entity.Signal) (bool, error) {
	f.signals = append(f.signals, s)
	return f.written, nil
}

func (f *fakeSignalStore) UpsertMACDMultiSignal(_ context.Context, s *entity.Signal) (bool, error) {
	f.multiSignals = append(f.multiSignals, s)
	return f.written, nil
}

type fakeSymbolSource struct {
	symbols map[uint]*entity.Symbol
}

func (f *fakeSymbolSource) GetSymbol(_ context.Context, id uint) (*entity.Symbol, error) {
	s, ok := f.symbols[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeSymbolSource) ListActiveSymbols(_ context.Context, market entity.MarketType) ([]entity.Symbol, error) {
	var out []entity.Symbol
	for _, s := range f.symbols {
		if s.MarketType == market {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeIndicatorSource struct {
	rows map[string]*entity.IndicatorSnapshot // key: timeframe
}

func (f *fakeIndicatorSource) GetLatestRow(_ context.Context, _ uint, timeframe string) (*entity.IndicatorSnapshot, error) {
	row, ok := f.rows[timeframe]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func newTestEngine(t *testing.T, registry *Registry, store *fakeSignalStore, rows *fakeIndicatorSource) (*SignalEngine, *fakeSymbolSource) {
	t.Helper()
	symbols := &fakeSymbolSource{symbols: map[uint]*entity.Symbol{
		1: {ID: 1, Ticker: "AAPL", MarketType: entity.MarketUS, IsActive: true},
	}}
	cfg := DefaultConfig()
	cfg.Timeframes = []string{"1h"}
	cfg.Consensus.Timeframes = []string{"1h", "30m"}
	return New(cfg, registry, store, symbols, rows, testLogger(t)), symbols
}

func buyResult(strength float64) *SignalResult {
	return &SignalResult{
		Direction:  DirectionBuy,
		Strength:   strength,
		Confidence: strength,
		Timestamp:  time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC),
	}
}

func TestEngineEvaluatePersistsAggregate(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubStrategy{name: "a", weight: 1.0, result: buyResult(0.9)}))
	require.NoError(t, registry.Register(&stubStrategy{name: "b", weight: 1.0, result: buyResult(0.7)}))

	store := &fakeSignalStore{written: true}
	engine, _ := newTestEngine(t, registry, store, &fakeIndicatorSource{})

	agg, err := engine.Evaluate(context.Background(), 1, "1h")
	require.NoError(t, err)
	assert.Equal(t, DirectionBuy, agg.Direction)
	assert.InDelta(t, 0.8, agg.Strength, 1e-9)

	require.Len(t, store.signals, 1)
	saved := store.signals[0]
	assert.Equal(t, StrategyAggregateID, saved.StrategyID)
	assert.Equal(t, uint(1), saved.SymbolID)
	assert.Equal(t, "1h", saved.Timeframe)
	assert.Equal(t, string(DirectionBuy), saved.SignalType)
	assert.Equal(t, 1, saved.Priority, "strength 0.8 marks the signal high priority")
	require.NotNil(t, saved.ExpiresAt)
	assert.Equal(t, saved.Timestamp.Add(4*time.Hour), *saved.ExpiresAt)
}

func TestEngineEvaluateNeutralNotPersisted(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubStrategy{name: "a", weight: 1.0, result: buyResult(0.5)}))
	require.NoError(t, registry.Register(&stubStrategy{name: "b", weight: 1.0, result: &SignalResult{
		Direction: DirectionSell, Strength: 0.5, Confidence: 0.5,
	}}))

	store := &fakeSignalStore{written: true}
	engine, _ := newTestEngine(t, registry, store, &fakeIndicatorSource{})

	agg, err := engine.Evaluate(context.Background(), 1, "1h")
	require.NoError(t, err)
	assert.Equal(t, DirectionNeutral, agg.Direction)
	assert.Empty(t, store.signals)
}

func TestEngineEvaluateSkipsInsufficientData(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubStrategy{name: "a", weight: 1.0, err: ErrInsufficientData}))
	require.NoError(t, registry.Register(&stubStrategy{name: "b", weight: 1.0, result: buyResult(0.9)}))

	engine, _ := newTestEngine(t, registry, &fakeSignalStore{}, &fakeIndicatorSource{})

	_, err := engine.Evaluate(context.Background(), 1, "1h")
	assert.True(t, errors.Is(err, ErrInsufficientStrategies),
		"one skipped strategy leaves too few results for the default minimum")
}

func TestEngineEvaluateConfigurationMissingHalts(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubStrategy{name: "a", weight: 1.0, err: ErrConfigurationMissing}))
	require.NoError(t, registry.Register(&stubStrategy{name: "b", weight: 1.0, result: buyResult(0.9)}))

	engine, _ := newTestEngine(t, registry, &fakeSignalStore{}, &fakeIndicatorSource{})

	_, err := engine.Evaluate(context.Background(), 1, "1h")
	assert.True(t, errors.Is(err, ErrConfigurationMissing))
}

func TestEngineEvaluateUnknownStrategy(t *testing.T) {
	engine, _ := newTestEngine(t, NewRegistry(), &fakeSignalStore{}, &fakeIndicatorSource{})

	_, err := engine.Evaluate(context.Background(), 1, "1h", "nope")
	assert.True(t, errors.Is(err, ErrStrategyNotFound))
}

func TestEngineEvaluateMultiTimeframe(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubStrategy{name: "a", weight: 1.0, result: buyResult(0.9)}))
	require.NoError(t, registry.Register(&stubStrategy{name: "b", weight: 1.0, result: buyResult(0.7)}))

	rows := &fakeIndicatorSource{rows: map[string]*entity.IndicatorSnapshot{
		"1h":  {DataPoints: 100, MACDLine: 0.6, MACDSignal: 0.4, MACDHist: 0.2},
		"30m": {DataPoints: 100, MACDLine: 0.9, MACDSignal: 0.6, MACDHist: 0.3},
	}}
	store := &fakeSignalStore{written: true}
	engine, _ := newTestEngine(t, registry, store, rows)

	result, err := engine.EvaluateMultiTimeframe(context.Background(), 1)
	require.NoError(t, err)

	require.Contains(t, result.Timeframes, "1h")
	assert.Equal(t, DirectionBuy, result.Timeframes["1h"].Direction)

	require.NotNil(t, result.Overall)
	assert.Equal(t, StanceBull, result.Overall.SignalType)
	assert.True(t, result.Overall.Unanimous)

	require.Len(t, store.multiSignals, 1)
	saved := store.multiSignals[0]
	assert.Equal(t, StrategyMACDMulti, saved.StrategyID)
	assert.Equal(t, "multi", saved.Timeframe)
	assert.Equal(t, string(StanceBull), saved.SignalType)
}

func TestEngineRunPipeline(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubStrategy{name: "a", weight: 1.0, result: buyResult(0.9)}))
	require.NoError(t, registry.Register(&stubStrategy{name: "b", weight: 1.0, result: buyResult(0.7)}))

	rows := &fakeIndicatorSource{rows: map[string]*entity.IndicatorSnapshot{
		"1h":  {DataPoints: 100, MACDLine: 0.6, MACDSignal: 0.4},
		"30m": {DataPoints: 100, MACDLine: 0.9, MACDSignal: 0.6},
	}}
	store := &fakeSignalStore{written: true}
	engine, symbols := newTestEngine(t, registry, store, rows)
	symbols.symbols[2] = &entity.Symbol{ID: 2, Ticker: "MSFT", MarketType: entity.MarketUS, IsActive: true}
	symbols.symbols[3] = &entity.Symbol{ID: 3, Ticker: "VNM", MarketType: entity.MarketVN, IsActive: true}

	result, err := engine.RunPipeline(context.Background(), PipelineConfig{Market: entity.MarketUS}, entity.JobModeRealtime)
	require.NoError(t, err)
	assert.Equal(t, PipelineCompleted, result.Status)
	assert.Equal(t, 2, result.SymbolsProcessed, "only US symbols are in scope")
	// Each symbol yields a 1h aggregate plus the multi-timeframe consensus.
	assert.Equal(t, 4, result.SignalsGenerated)
}

func TestEngineEvaluateWithRegisteredMACDMulti(t *testing.T) {
	rows := &fakeIndicatorSource{rows: map[string]*entity.IndicatorSnapshot{
		"1h":  {DataPoints: 100, MACDLine: 0.6, MACDSignal: 0.4, MACDHist: 0.2},
		"30m": {DataPoints: 100, MACDLine: 0.9, MACDSignal: 0.6, MACDHist: 0.3},
	}}

	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubStrategy{name: "a", weight: 1.0, result: buyResult(0.7)}))
	multi := NewMACDMultiStrategy(rows, ConsensusConfig{
		FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9,
		Timeframes:          []string{"1h", "30m"},
		ActivationThreshold: 0.5,
	})
	require.NoError(t, registry.Register(multi))

	store := &fakeSignalStore{written: true}
	engine, _ := newTestEngine(t, registry, store, rows)

	agg, err := engine.Evaluate(context.Background(), 1, "1h")
	require.NoError(t, err)
	assert.Equal(t, DirectionBuy, agg.Direction)
	assert.Contains(t, agg.Contributing, StrategyMACDMulti)
	assert.Contains(t, agg.Contributing, "a")
}

func TestEngineRunPipelineConsensusOnly(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubStrategy{name: "a", weight: 1.0, result: buyResult(0.9)}))

	rows := &fakeIndicatorSource{rows: map[string]*entity.IndicatorSnapshot{
		"1h":  {DataPoints: 100, MACDLine: 0.6, MACDSignal: 0.4},
		"30m": {DataPoints: 100, MACDLine: 0.9, MACDSignal: 0.6},
	}}
	store := &fakeSignalStore{written: true}
	engine, _ := newTestEngine(t, registry, store, rows)

	result, err := engine.RunPipeline(context.Background(), PipelineConfig{
		Market: entity.MarketUS,
		Kind:   common.PipelineKindMACDMulti,
	}, entity.JobModeRealtime)
	require.NoError(t, err)
	assert.Equal(t, PipelineCompleted, result.Status)
	assert.Equal(t, 1, result.SymbolsProcessed)
	assert.Equal(t, 1, result.SignalsGenerated)

	// Only the consensus row is written; the per-timeframe strategy path
	// stays suspended for this pipeline kind.
	assert.Empty(t, store.signals)
	require.Len(t, store.multiSignals, 1)
	assert.Equal(t, StrategyMACDMulti, store.multiSignals[0].StrategyID)
}

func TestEngineRunPipelineSymbolFilter(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubStrategy{name: "a", weight: 1.0, result: buyResult(0.9)}))
	require.NoError(t, registry.Register(&stubStrategy{name: "b", weight: 1.0, result: buyResult(0.7)}))

	rows := &fakeIndicatorSource{rows: map[string]*entity.IndicatorSnapshot{
		"1h":  {DataPoints: 100, MACDLine: 0.6, MACDSignal: 0.4},
		"30m": {DataPoints: 100, MACDLine: 0.9, MACDSignal: 0.6},
	}}
	engine, symbols := newTestEngine(t, registry, &fakeSignalStore{written: true}, rows)
	symbols.symbols[2] = &entity.Symbol{ID: 2, Ticker: "MSFT", MarketType: entity.MarketUS, IsActive: true}

	result, err := engine.RunPipeline(context.Background(), PipelineConfig{
		Market:  entity.MarketUS,
		Symbols: []string{"MSFT"},
	}, entity.JobModeBackfill)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SymbolsProcessed)
}
