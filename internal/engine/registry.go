package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang-signal-engine/internal/entity"
)

// IndicatorSource provides the latest computed indicator row for a symbol
// and timeframe.
type IndicatorSource interface {
	GetLatestRow(ctx context.Context, symbolID uint, timeframe string) (*entity.IndicatorSnapshot, error)
}

// Strategy is one pluggable signal strategy. Implementations are registered
// explicitly at startup; evaluation errors are handled by the orchestrator,
// never inside the registry.
type Strategy interface {
	Name() string
	DefaultWeight() float64
	Evaluate(ctx context.Context, symbol *entity.Symbol, timeframe string) (*SignalResult, error)
	RequiredIndicators() []string
	SupportedTimeframes() []string
}

type registration struct {
	strategy Strategy
	enabled  bool
}

// Registry holds named strategies. It carries no evaluation logic beyond
// lifecycle and lookup.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]*registration
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]*registration)}
}

// Register adds a strategy, enabled by default. Registering a name twice
// fails with ErrDuplicateName; the caller decides whether to Unregister
// first and replace.
func (r *Registry) Register(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.strategies[s.Name()]; exists {
		return fmt.Errorf("strategy %q: %w", s.Name(), ErrDuplicateName)
	}
	r.strategies[s.Name()] = &registration{strategy: s, enabled: true}
	return nil
}

// Unregister removes a strategy by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.strategies, name)
}

// Get returns a strategy by name.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: %w", name, ErrStrategyNotFound)
	}
	return reg.strategy, nil
}

// ListActive returns the enabled strategies in deterministic name order.
func (r *Registry) ListActive() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name, reg := range r.strategies {
		if reg.enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	active := make([]Strategy, 0, len(names))
	for _, name := range names {
		active = append(active, r.strategies[name].strategy)
	}
	return active
}

// ListNames returns every registered name with its enabled flag.
func (r *Registry) ListNames() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.strategies))
	for name, reg := range r.strategies {
		out[name] = reg.enabled
	}
	return out
}

// SetEnabled toggles a strategy without unregistering it.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.strategies[name]
	if !ok {
		return fmt.Errorf("strategy %q: %w", name, ErrStrategyNotFound)
	}
	reg.enabled = enabled
	return nil
}

// DefaultWeights returns the default weight of every registered strategy.
func (r *Registry) DefaultWeights() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	weights := make(map[string]float64, len(r.strategies))
	for name, reg := range r.strategies {
		weights[name] = reg.strategy.DefaultWeight()
	}
	return weights
}
