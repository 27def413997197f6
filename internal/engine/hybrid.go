package engine

import "math"

// HybridResult is the combined trend+momentum call.
type HybridResult struct {
	Level      CombinedLevel `json:"level"`
	Strength   float64       `json:"strength"`
	Confidence float64       `json:"confidence"`
}

// CombineHybrid merges a trend-confirmation signal with a momentum signal
// through a fixed decision matrix:
//
//   - same direction: STRONG_{BUY|SELL}, strength min(s1+s2, 1)
//   - one directional, one neutral: {BUY|SELL}, strength = directional × 0.7
//   - opposing: WEAK_{BUY|SELL} favoring the stronger input,
//     strength = |s1-s2| × 0.3
//   - both neutral: NEUTRAL, strength 0
//
// Each input's confidence is its own strength, so the combined confidence is
// the mean of the two strengths. Downstream alert thresholds are calibrated
// against that definition; do not substitute an independent confidence model.
func CombineHybrid(trend Direction, trendStrength float64, momentum Direction, momentumStrength float64) HybridResult {
	res := HybridResult{
		Confidence: (trendStrength + momentumStrength) / 2,
	}

	switch {
	case trend == momentum && trend == DirectionNeutral:
		res.Level = LevelNeutral
		res.Strength = 0

	case trend == momentum:
		res.Strength = math.Min(trendStrength+momentumStrength, 1.0)
		if trend == DirectionBuy {
			res.Level = LevelStrongBuy
		} else {
			res.Level = LevelStrongSell
		}

	case trend == DirectionNeutral || momentum == DirectionNeutral:
		direction := trend
		strength := trendStrength
		if trend == DirectionNeutral {
			direction = momentum
			strength = momentumStrength
		}
		res.Strength = strength * 0.7
		if direction == DirectionBuy {
			res.Level = LevelBuy
		} else {
			res.Level = LevelSell
		}

	default:
		// Opposing directions: lean toward the stronger input.
		res.Strength = math.Abs(trendStrength-momentumStrength) * 0.3
		winner := trend
		if momentumStrength > trendStrength {
			winner = momentum
		}
		if winner == DirectionBuy {
			res.Level = LevelWeakBuy
		} else {
			res.Level = LevelWeakSell
		}
	}

	return res
}
