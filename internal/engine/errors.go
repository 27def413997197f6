package engine

import "errors"

var (
	// ErrConfigurationMissing means no threshold rules exist for a
	// (market, indicator) pair, not even a built-in default. This is a
	// configuration bug: signal generation for the affected symbol and
	// timeframe must halt instead of silently defaulting to neutral.
	ErrConfigurationMissing = errors.New("threshold configuration missing")

	// ErrInsufficientData means an indicator has fewer data points than its
	// minimum. The affected timeframe is skipped, never zero-filled.
	ErrInsufficientData = errors.New("insufficient indicator data")

	// ErrInsufficientStrategies means fewer eligible strategies produced
	// results than the configured minimum. It is a distinct outcome, not a
	// neutral signal.
	ErrInsufficientStrategies = errors.New("insufficient strategies for aggregation")

	// ErrDuplicateName is returned when registering a strategy under a name
	// that is already taken.
	ErrDuplicateName = errors.New("strategy name already registered")

	// ErrStrategyNotFound is returned for lookups of unknown strategy names.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrUnknownMethod is returned for an unrecognized aggregation method.
	ErrUnknownMethod = errors.New("unknown aggregation method")
)
