package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang-signal-engine/internal/entity"
	"golang-signal-engine/pkg/common"
	"golang-signal-engine/pkg/logger"
)

// SignalStore persists generated signals. Implementations must be monotonic
// per (symbol, timeframe, strategy, signal_type): a write carrying an older
// timestamp than the stored one is skipped, and re-writing an identical key
// is a no-op. The boolean reports whether a row was actually written.
type SignalStore interface {
	UpsertSignal(ctx context.Context, signal *entity.Signal) (bool, error)
	UpsertMACDMultiSignal(ctx context.Context, signal *entity.Signal) (bool, error)
}

// SymbolSource loads symbols.
type SymbolSource interface {
	GetSymbol(ctx context.Context, id uint) (*entity.Symbol, error)
	ListActiveSymbols(ctx context.Context, market entity.MarketType) ([]entity.Symbol, error)
}

// Config holds the engine-wide evaluation parameters.
type Config struct {
	Timeframes  []string          `mapstructure:"timeframes"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	MACD        MACDConfig        `mapstructure:"macd"`
	SMA         SMAConfig         `mapstructure:"sma"`
	Consensus   ConsensusConfig   `mapstructure:"consensus"`
	SignalTTL   time.Duration     `mapstructure:"signal_ttl"`
}

// DefaultConfig returns the production engine defaults.
func DefaultConfig() Config {
	return Config{
		Timeframes:  DefaultConsensusConfig().Timeframes,
		Aggregation: DefaultAggregationConfig(),
		MACD:        DefaultMACDConfig(),
		SMA:         DefaultSMAConfig(),
		Consensus:   DefaultConsensusConfig(),
		SignalTTL:   4 * time.Hour,
	}
}

// PipelineConfig selects what a pipeline run processes. A nil Consensus or
// Aggregation falls back to the engine configuration; non-nil values are
// merged over the defaults. Kind picks the pipeline variant: the macd-multi
// kind runs only the multi-timeframe consensus, everything else runs the
// full per-timeframe strategy evaluation.
type PipelineConfig struct {
	Market      entity.MarketType  `json:"market"`
	Symbols     []string           `json:"symbols,omitempty"`
	Kind        string             `json:"kind,omitempty"`
	Consensus   *ConsensusConfig   `json:"consensus,omitempty"`
	Aggregation *AggregationConfig `json:"aggregation,omitempty"`
}

// StrategyAggregateID is the strategy_id under which fused cross-strategy
// signals are persisted.
const StrategyAggregateID = "aggregated"

// SignalEngine is the public evaluation entry point. One engine is
// constructed per process and shared by the scheduler, workers and the API
// layer; it holds no mutable state beyond the registry it is given.
type SignalEngine struct {
	cfg       Config
	registry  *Registry
	signals   SignalStore
	symbols   SymbolSource
	rows      IndicatorSource
	macdMulti *MACDMultiStrategy
	log       *logger.Logger
}

// New creates a SignalEngine.
func New(cfg Config, registry *Registry, signals SignalStore, symbols SymbolSource, rows IndicatorSource, log *logger.Logger) *SignalEngine {
	return &SignalEngine{
		cfg:       cfg,
		registry:  registry,
		signals:   signals,
		symbols:   symbols,
		rows:      rows,
		macdMulti: NewMACDMultiStrategy(rows, cfg.Consensus),
		log:       log,
	}
}

// Registry exposes the engine's strategy registry.
func (e *SignalEngine) Registry() *Registry { return e.registry }

// Evaluate runs the selected strategies (all active ones when none are
// named) for one symbol/timeframe, aggregates their results and persists a
// non-neutral outcome. Strategy-level InsufficientData is recovered by
// skipping that strategy; ConfigurationMissing halts the evaluation.
func (e *SignalEngine) Evaluate(ctx context.Context, symbolID uint, timeframe string, strategyNames ...string) (*AggregatedSignal, error) {
	symbol, err := e.symbols.GetSymbol(ctx, symbolID)
	if err != nil {
		return nil, fmt.Errorf("load symbol %d: %w", symbolID, err)
	}
	return e.evaluateSymbol(ctx, symbol, timeframe, nil, strategyNames...)
}

func (e *SignalEngine) evaluateSymbol(ctx context.Context, symbol *entity.Symbol, timeframe string, aggOverride *AggregationConfig, strategyNames ...string) (*AggregatedSignal, error) {
	strategies, err := e.selectStrategies(strategyNames)
	if err != nil {
		return nil, err
	}

	var results []SignalResult
	for _, s := range strategies {
		if !supportsTimeframe(s, timeframe) {
			continue
		}
		result, err := s.Evaluate(ctx, symbol, timeframe)
		switch {
		case errors.Is(err, ErrConfigurationMissing):
			e.log.Error("Threshold configuration missing, halting evaluation",
				logger.StringField("ticker", symbol.Ticker),
				logger.StringField("timeframe", timeframe),
				logger.ErrorField(err))
			return nil, err
		case errors.Is(err, ErrInsufficientData):
			e.log.Debug("Strategy skipped on insufficient data",
				logger.StringField("strategy", s.Name()),
				logger.StringField("ticker", symbol.Ticker),
				logger.StringField("timeframe", timeframe))
			continue
		case err != nil:
			e.log.Error("Strategy evaluation failed",
				logger.StringField("strategy", s.Name()),
				logger.StringField("ticker", symbol.Ticker),
				logger.ErrorField(err))
			continue
		}
		results = append(results, *result)
	}

	aggCfg := e.cfg.Aggregation
	if aggOverride != nil {
		aggCfg = MergeAggregationConfig(aggCfg, *aggOverride)
	}

	agg, err := Aggregate(results, e.registry.DefaultWeights(), aggCfg)
	if err != nil {
		return nil, err
	}
	agg.SymbolID = symbol.ID
	agg.Timeframe = timeframe

	if agg.Direction != DirectionNeutral {
		if err := e.persistAggregated(ctx, symbol, agg); err != nil {
			return nil, err
		}
	}
	return agg, nil
}

func (e *SignalEngine) selectStrategies(names []string) ([]Strategy, error) {
	if len(names) == 0 {
		return e.registry.ListActive(), nil
	}
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, err := e.registry.Get(name)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}

func supportsTimeframe(s Strategy, timeframe string) bool {
	supported := s.SupportedTimeframes()
	if len(supported) == 0 {
		return true
	}
	for _, tf := range supported {
		if tf == timeframe {
			return true
		}
	}
	return false
}

func (e *SignalEngine) persistAggregated(ctx context.Context, symbol *entity.Symbol, agg *AggregatedSignal) error {
	details, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("marshal aggregated signal: %w", err)
	}

	expiresAt := agg.Timestamp.Add(e.cfg.SignalTTL)
	priority := 0
	if agg.Strength >= 0.8 {
		priority = 1
	}

	written, err := e.signals.UpsertSignal(ctx, &entity.Signal{
		SymbolID:   symbol.ID,
		Timeframe:  agg.Timeframe,
		Timestamp:  agg.Timestamp,
		StrategyID: StrategyAggregateID,
		SignalType: string(agg.Direction),
		Strength:   agg.Strength,
		Confidence: agg.Confidence,
		Status:     entity.SignalStatusActive,
		Priority:   priority,
		ExpiresAt:  &expiresAt,
		Details:    details,
	})
	if err != nil {
		return fmt.Errorf("persist aggregated signal: %w", err)
	}
	if !written {
		e.log.Debug("Aggregated signal skipped by monotonic write guard",
			logger.StringField("ticker", symbol.Ticker),
			logger.StringField("timeframe", agg.Timeframe))
	}
	return nil
}

// EvaluateMultiTimeframe evaluates one symbol across every configured
// timeframe and computes the multi-timeframe MACD consensus. The consensus
// signal is persisted only when it is non-neutral; with unanimous mode
// enabled the unanimous gate is applied by EvaluateConsensus itself.
func (e *SignalEngine) EvaluateMultiTimeframe(ctx context.Context, symbolID uint, strategyNames ...string) (*MultiTimeframeResult, error) {
	symbol, err := e.symbols.GetSymbol(ctx, symbolID)
	if err != nil {
		return nil, fmt.Errorf("load symbol %d: %w", symbolID, err)
	}
	return e.evaluateMulti(ctx, symbol, e.macdMulti, nil, strategyNames...)
}

func (e *SignalEngine) evaluateMulti(ctx context.Context, symbol *entity.Symbol, multi *MACDMultiStrategy, aggOverride *AggregationConfig, strategyNames ...string) (*MultiTimeframeResult, error) {
	result := &MultiTimeframeResult{
		SymbolID:   symbol.ID,
		Timeframes: make(map[string]*AggregatedSignal, len(e.cfg.Timeframes)),
	}

	for _, tf := range e.cfg.Timeframes {
		agg, err := e.evaluateSymbol(ctx, symbol, tf, aggOverride, strategyNames...)
		switch {
		case errors.Is(err, ErrInsufficientStrategies):
			continue
		case err != nil:
			return nil, err
		}
		result.Timeframes[tf] = agg
	}

	consensus, err := multi.Consensus(ctx, symbol)
	if err != nil {
		return nil, err
	}
	result.Overall = consensus

	if consensus.SignalType != StanceNeutral {
		if err := e.persistConsensus(ctx, symbol, multi, consensus); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (e *SignalEngine) persistConsensus(ctx context.Context, symbol *entity.Symbol, multi *MACDMultiStrategy, consensus *ConsensusResult) error {
	details, err := json.Marshal(multi.DetailBlob(consensus))
	if err != nil {
		return fmt.Errorf("marshal consensus details: %w", err)
	}

	timestamp := time.Now().UTC().Truncate(time.Minute)
	expiresAt := timestamp.Add(e.cfg.SignalTTL)

	written, err := e.signals.UpsertMACDMultiSignal(ctx, &entity.Signal{
		SymbolID:   symbol.ID,
		Timeframe:  "multi",
		Timestamp:  timestamp,
		StrategyID: StrategyMACDMulti,
		SignalType: string(consensus.SignalType),
		Strength:   consensus.Confidence,
		Confidence: consensus.Confidence,
		Status:     entity.SignalStatusActive,
		ExpiresAt:  &expiresAt,
		Details:    details,
	})
	if err != nil {
		return fmt.Errorf("persist consensus signal: %w", err)
	}
	if !written {
		e.log.Debug("Consensus signal skipped by monotonic write guard",
			logger.StringField("ticker", symbol.Ticker))
	}
	return nil
}

// RunPipeline evaluates every requested symbol of a market. Per-symbol
// failures are logged and counted, never abort the run.
func (e *SignalEngine) RunPipeline(ctx context.Context, cfg PipelineConfig, mode entity.JobMode) (*PipelineResult, error) {
	symbols, err := e.symbols.ListActiveSymbols(ctx, cfg.Market)
	if err != nil {
		return &PipelineResult{Status: PipelineFailed}, fmt.Errorf("list symbols for %s: %w", cfg.Market, err)
	}
	if len(cfg.Symbols) > 0 {
		symbols = filterSymbols(symbols, cfg.Symbols)
	}

	multi := e.macdMulti
	if cfg.Consensus != nil {
		multi = NewMACDMultiStrategy(e.rows, MergeConsensusConfig(e.cfg.Consensus, *cfg.Consensus))
	}

	consensusOnly := cfg.Kind == common.PipelineKindMACDMulti

	result := &PipelineResult{Status: PipelineCompleted}
	failures := 0
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			result.Status = PipelinePartial
			return result, ctx.Err()
		}

		if consensusOnly {
			consensus, err := multi.Consensus(ctx, &symbol)
			if err == nil && consensus.SignalType != StanceNeutral {
				err = e.persistConsensus(ctx, &symbol, multi, consensus)
			}
			if err != nil {
				failures++
				e.log.Error("Pipeline symbol failed",
					logger.StringField("ticker", symbol.Ticker),
					logger.StringField("mode", string(mode)),
					logger.ErrorField(err))
				continue
			}
			result.SymbolsProcessed++
			if consensus.SignalType != StanceNeutral {
				result.SignalsGenerated++
			}
			continue
		}

		multiResult, err := e.evaluateMulti(ctx, &symbol, multi, cfg.Aggregation)
		if err != nil {
			failures++
			e.log.Error("Pipeline symbol failed",
				logger.StringField("ticker", symbol.Ticker),
				logger.StringField("mode", string(mode)),
				logger.ErrorField(err))
			continue
		}

		result.SymbolsProcessed++
		for _, agg := range multiResult.Timeframes {
			if agg.Direction != DirectionNeutral {
				result.SignalsGenerated++
			}
		}
		if multiResult.Overall != nil && multiResult.Overall.SignalType != StanceNeutral {
			result.SignalsGenerated++
		}
	}

	if failures > 0 {
		result.Status = PipelinePartial
	}
	return result, nil
}

func filterSymbols(symbols []entity.Symbol, tickers []string) []entity.Symbol {
	wanted := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		wanted[t] = struct{}{}
	}
	out := symbols[:0]
	for _, s := range symbols {
		if _, ok := wanted[s.Ticker]; ok {
			out = append(out, s)
		}
	}
	return out
}
