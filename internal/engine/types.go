package engine

import (
	"time"
)

// Direction is the directional call of a single strategy.
type Direction string

const (
	DirectionBuy     Direction = "BUY"
	DirectionSell    Direction = "SELL"
	DirectionNeutral Direction = "NEUTRAL"
)

// Stance is the per-timeframe call of the multi-timeframe MACD pipeline.
type Stance string

const (
	StanceBull    Stance = "BULL"
	StanceBear    Stance = "BEAR"
	StanceNeutral Stance = "NEUTRAL"
)

// CombinedLevel is the output of the hybrid trend+momentum combiner.
type CombinedLevel string

const (
	LevelStrongBuy  CombinedLevel = "STRONG_BUY"
	LevelBuy        CombinedLevel = "BUY"
	LevelWeakBuy    CombinedLevel = "WEAK_BUY"
	LevelNeutral    CombinedLevel = "NEUTRAL"
	LevelWeakSell   CombinedLevel = "WEAK_SELL"
	LevelSell       CombinedLevel = "SELL"
	LevelStrongSell CombinedLevel = "STRONG_SELL"
)

// SignalResult is the output of one strategy for one (symbol, timeframe,
// timestamp). Immutable once created.
type SignalResult struct {
	Strategy    string                 `json:"strategy"`
	SymbolID    uint                   `json:"symbol_id"`
	Timeframe   string                 `json:"timeframe"`
	Timestamp   time.Time              `json:"timestamp"`
	Direction   Direction              `json:"direction"`
	Strength    float64                `json:"strength"`
	Confidence  float64                `json:"confidence"`
	Details     map[string]interface{} `json:"details,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// AggregationMethod selects how strategy results are fused.
type AggregationMethod string

const (
	MethodWeightedAverage    AggregationMethod = "weighted_average"
	MethodMajorityVote       AggregationMethod = "majority_vote"
	MethodConsensus          AggregationMethod = "consensus"
	MethodConfidenceWeighted AggregationMethod = "confidence_weighted"
)

// AggregationConfig controls the aggregation engine.
type AggregationConfig struct {
	Method              AggregationMethod  `mapstructure:"method" json:"method"`
	MinStrategies       int                `mapstructure:"min_strategies" json:"min_strategies"`
	ConsensusThreshold  float64            `mapstructure:"consensus_threshold" json:"consensus_threshold"`
	ConfidenceThreshold float64            `mapstructure:"confidence_threshold" json:"confidence_threshold"`
	ConflictPenalty     float64            `mapstructure:"conflict_penalty" json:"conflict_penalty"`
	CustomWeights       map[string]float64 `mapstructure:"custom_weights" json:"custom_weights"`
}

// DefaultAggregationConfig returns the recognized aggregation defaults.
func DefaultAggregationConfig() AggregationConfig {
	return AggregationConfig{
		Method:              MethodWeightedAverage,
		MinStrategies:       2,
		ConsensusThreshold:  0.7,
		ConfidenceThreshold: 0.5,
		ConflictPenalty:     0.3,
	}
}

// AggregatedSignal is the fused decision of multiple strategies for one
// symbol/timeframe.
type AggregatedSignal struct {
	SymbolID     uint                 `json:"symbol_id"`
	Timeframe    string               `json:"timeframe"`
	Timestamp    time.Time            `json:"timestamp"`
	Direction    Direction            `json:"direction"`
	Strength     float64              `json:"strength"`
	Confidence   float64              `json:"confidence"`
	Method       AggregationMethod    `json:"method"`
	Contributing []string             `json:"contributing_strategies"`
	Votes        map[string]Direction `json:"votes"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

// TimeframeResult is one timeframe's reading in the multi-timeframe pipeline.
type TimeframeResult struct {
	Timeframe  string  `json:"timeframe"`
	MACDLine   float64 `json:"macd_line"`
	SignalLine float64 `json:"signal_line"`
	Histogram  float64 `json:"histogram"`
	SignalType Stance  `json:"signal_type"`
	Strength   float64 `json:"strength"`
}

// ConsensusResult is the overall multi-timeframe call.
type ConsensusResult struct {
	SignalType       Stance                     `json:"signal_type"`
	Confidence       float64                    `json:"confidence"`
	BullCount        int                        `json:"bull_count"`
	BearCount        int                        `json:"bear_count"`
	TotalTimeframes  int                        `json:"total_timeframes"`
	Unanimous        bool                       `json:"unanimous"`
	DataInsufficient bool                       `json:"data_insufficient"`
	Timeframes       map[string]TimeframeResult `json:"timeframe_results"`
}

// MACDMultiDetails is the stable persisted detail blob for downstream
// consumers of multi-timeframe MACD signals.
type MACDMultiDetails struct {
	Strategy         string                     `json:"strategy"`
	FastPeriod       int                        `json:"fast_period"`
	SlowPeriod       int                        `json:"slow_period"`
	SignalPeriod     int                        `json:"signal_period"`
	OverallSignal    MACDMultiOverall           `json:"overall_signal"`
	TimeframeResults map[string]TimeframeResult `json:"timeframe_results"`
}

// MACDMultiOverall is the overall_signal section of MACDMultiDetails.
type MACDMultiOverall struct {
	SignalType Stance  `json:"signal_type"`
	Confidence float64 `json:"confidence"`
	BullCount  int     `json:"bull_count"`
	BearCount  int     `json:"bear_count"`
}

// MultiTimeframeResult combines per-timeframe aggregated signals with the
// overall consensus for one symbol.
type MultiTimeframeResult struct {
	SymbolID   uint                         `json:"symbol_id"`
	Timeframes map[string]*AggregatedSignal `json:"timeframes"`
	Overall    *ConsensusResult             `json:"overall"`
}

// PipelineStatus reports the outcome of a pipeline run.
type PipelineStatus string

const (
	PipelineCompleted PipelineStatus = "completed"
	PipelineFailed    PipelineStatus = "failed"
	PipelinePartial   PipelineStatus = "partial"
)

// PipelineResult summarizes one RunPipeline invocation.
type PipelineResult struct {
	Status           PipelineStatus `json:"status"`
	SymbolsProcessed int            `json:"symbols_processed"`
	SignalsGenerated int            `json:"signals_generated"`
}
