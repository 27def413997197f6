package service

import (
	"context"
	"fmt"
	"sort"

	"golang-signal-engine/internal/engine"
	"golang-signal-engine/internal/executor/dto"
	"golang-signal-engine/internal/executor/repository"
	"golang-signal-engine/pkg/logger"
)

// APIService backs the signal service's HTTP surface. Evaluations run
// synchronously on the caller's request, unlike stream jobs.
type APIService interface {
	Evaluate(ctx context.Context, req *dto.EvaluateRequest) (*engine.AggregatedSignal, error)
	EvaluateMulti(ctx context.Context, req *dto.EvaluateMultiRequest) (*engine.MultiTimeframeResult, error)
	RunPipeline(ctx context.Context, req *dto.RunPipelineRequest) (*engine.PipelineResult, error)
	ListSignals(ctx context.Context, symbolID uint, timeframe string) ([]dto.SignalResponse, error)
	CancelSignal(ctx context.Context, id int64) error
	ListStrategies() []dto.StrategyStatus
	SetStrategyEnabled(name string, enabled bool) error
}

type apiService struct {
	engine     *engine.SignalEngine
	symbolRepo repository.SymbolRepository
	signalRepo repository.SignalRepository
	log        *logger.Logger
}

func NewAPIService(
	signalEngine *engine.SignalEngine,
	symbolRepo repository.SymbolRepository,
	signalRepo repository.SignalRepository,
	log *logger.Logger,
) APIService {
	return &apiService{
		engine:     signalEngine,
		symbolRepo: symbolRepo,
		signalRepo: signalRepo,
		log:        log,
	}
}

func (s *apiService) resolveSymbolID(ctx context.Context, ticker string, symbolID uint) (uint, error) {
	if symbolID != 0 {
		return symbolID, nil
	}
	if ticker == "" {
		return 0, fmt.Errorf("either symbol_id or ticker is required")
	}
	symbol, err := s.symbolRepo.GetByTicker(ctx, ticker)
	if err != nil {
		return 0, fmt.Errorf("resolve ticker %s: %w", ticker, err)
	}
	return symbol.ID, nil
}

func (s *apiService) Evaluate(ctx context.Context, req *dto.EvaluateRequest) (*engine.AggregatedSignal, error) {
	symbolID, err := s.resolveSymbolID(ctx, req.Ticker, req.SymbolID)
	if err != nil {
		return nil, err
	}
	return s.engine.Evaluate(ctx, symbolID, req.Timeframe, req.Strategies...)
}

func (s *apiService) EvaluateMulti(ctx context.Context, req *dto.EvaluateMultiRequest) (*engine.MultiTimeframeResult, error) {
	symbolID, err := s.resolveSymbolID(ctx, req.Ticker, req.SymbolID)
	if err != nil {
		return nil, err
	}
	return s.engine.EvaluateMultiTimeframe(ctx, symbolID, req.Strategies...)
}

func (s *apiService) RunPipeline(ctx context.Context, req *dto.RunPipelineRequest) (*engine.PipelineResult, error) {
	return s.engine.RunPipeline(ctx, engine.PipelineConfig{
		Market:      req.Market,
		Symbols:     req.Symbols,
		Kind:        req.Kind,
		Consensus:   req.Consensus,
		Aggregation: req.Aggregation,
	}, req.Mode)
}

func (s *apiService) ListSignals(ctx context.Context, symbolID uint, timeframe string) ([]dto.SignalResponse, error) {
	signals, err := s.signalRepo.GetActiveSignals(ctx, symbolID, timeframe)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SignalResponse, 0, len(signals))
	for i := range signals {
		out = append(out, dto.NewSignalResponse(&signals[i]))
	}
	return out, nil
}

func (s *apiService) CancelSignal(ctx context.Context, id int64) error {
	return s.signalRepo.CancelSignal(ctx, id)
}

func (s *apiService) ListStrategies() []dto.StrategyStatus {
	registry := s.engine.Registry()
	weights := registry.DefaultWeights()
	names := registry.ListNames()

	out := make([]dto.StrategyStatus, 0, len(names))
	for name, enabled := range names {
		out = append(out, dto.StrategyStatus{
			Name:          name,
			Enabled:       enabled,
			DefaultWeight: weights[name],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *apiService) SetStrategyEnabled(name string, enabled bool) error {
	return s.engine.Registry().SetEnabled(name, enabled)
}
