package engine

import (
	"context"
	"errors"
	"testing"

	"golang-signal-engine/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	name   string
	weight float64
	result *SignalResult
	err    error
}

func (s *stubStrategy) Name() string                  { return s.name }
func (s *stubStrategy) DefaultWeight() float64        { return s.weight }
func (s *stubStrategy) RequiredIndicators() []string  { return []string{IndicatorMACDLine} }
func (s *stubStrategy) SupportedTimeframes() []string { return []string{"1h"} }

func (s *stubStrategy) Evaluate(_ context.Context, symbol *entity.Symbol, timeframe string) (*SignalResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := *s.result
	out.Strategy = s.name
	out.SymbolID = symbol.ID
	out.Timeframe = timeframe
	return &out, nil
}

func TestRegistryRegisterAndDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubStrategy{name: "alpha", weight: 1.0}))

	err := reg.Register(&stubStrategy{name: "alpha", weight: 2.0})
	assert.True(t, errors.Is(err, ErrDuplicateName))

	s, err := reg.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.DefaultWeight())

	_, err = reg.Get("missing")
	assert.True(t, errors.Is(err, ErrStrategyNotFound))
}

func TestRegistryListActiveOrderAndToggle(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(&stubStrategy{name: name, weight: 1.0}))
	}

	names := func() []string {
		var out []string
		for _, s := range reg.ListActive() {
			out = append(out, s.Name())
		}
		return out
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names())

	require.NoError(t, reg.SetEnabled("mid", false))
	assert.Equal(t, []string{"alpha", "zeta"}, names())

	listed := reg.ListNames()
	assert.False(t, listed["mid"])
	assert.True(t, listed["alpha"])

	require.NoError(t, reg.SetEnabled("mid", true))
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names())

	assert.True(t, errors.Is(reg.SetEnabled("missing", true), ErrStrategyNotFound))
}

func TestRegistryUnregisterAndWeights(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubStrategy{name: "alpha", weight: 1.5}))
	require.NoError(t, reg.Register(&stubStrategy{name: "beta", weight: 0.8}))

	weights := reg.DefaultWeights()
	assert.Equal(t, map[string]float64{"alpha": 1.5, "beta": 0.8}, weights)

	reg.Unregister("alpha")
	_, err := reg.Get("alpha")
	assert.True(t, errors.Is(err, ErrStrategyNotFound))
	assert.Len(t, reg.DefaultWeights(), 1)
}
