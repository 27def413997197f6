package dto

import (
	"time"

	"golang-signal-engine/internal/engine"
	"golang-signal-engine/internal/entity"
)

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// EvaluateRequest asks for a single-timeframe evaluation of one symbol.
type EvaluateRequest struct {
	Ticker     string   `json:"ticker"`
	SymbolID   uint     `json:"symbol_id"`
	Timeframe  string   `json:"timeframe"`
	Strategies []string `json:"strategies,omitempty"`
}

// EvaluateMultiRequest asks for the multi-timeframe evaluation of one symbol.
type EvaluateMultiRequest struct {
	Ticker     string   `json:"ticker"`
	SymbolID   uint     `json:"symbol_id"`
	Strategies []string `json:"strategies,omitempty"`
}

// RunPipelineRequest triggers a pipeline run over a market.
type RunPipelineRequest struct {
	Market      entity.MarketType         `json:"market"`
	Mode        entity.JobMode            `json:"mode"`
	Kind        string                    `json:"kind,omitempty"`
	Symbols     []string                  `json:"symbols,omitempty"`
	Consensus   *engine.ConsensusConfig   `json:"consensus,omitempty"`
	Aggregation *engine.AggregationConfig `json:"aggregation,omitempty"`
}

// SignalResponse is the API shape of one persisted signal.
type SignalResponse struct {
	ID         int64      `json:"id"`
	SymbolID   uint       `json:"symbol_id"`
	Timeframe  string     `json:"timeframe"`
	Timestamp  time.Time  `json:"timestamp"`
	StrategyID string     `json:"strategy_id"`
	SignalType string     `json:"signal_type"`
	Strength   float64    `json:"strength"`
	Confidence float64    `json:"confidence"`
	Status     string     `json:"status"`
	Priority   int        `json:"priority"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// NewSignalResponse maps a signal entity to its API shape.
func NewSignalResponse(s *entity.Signal) SignalResponse {
	return SignalResponse{
		ID:         s.ID,
		SymbolID:   s.SymbolID,
		Timeframe:  s.Timeframe,
		Timestamp:  s.Timestamp,
		StrategyID: s.StrategyID,
		SignalType: s.SignalType,
		Strength:   s.Strength,
		Confidence: s.Confidence,
		Status:     string(s.Status),
		Priority:   s.Priority,
		ExpiresAt:  s.ExpiresAt,
	}
}

// StrategyStatus is the API shape of one registered strategy.
type StrategyStatus struct {
	Name          string  `json:"name"`
	Enabled       bool    `json:"enabled"`
	DefaultWeight float64 `json:"default_weight"`
}

// SetStrategyEnabledRequest toggles a strategy.
type SetStrategyEnabledRequest struct {
	Enabled bool `json:"enabled"`
}
