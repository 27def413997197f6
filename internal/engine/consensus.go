package engine

import "math"

// ConsensusConfig controls the multi-timeframe MACD pipeline. Thresholds is
// the per-timeframe activation level for the fast and signal lines; a
// timeframe not listed, or configured with a zero or negative level, falls
// back to DefaultTimeframeThreshold.
type ConsensusConfig struct {
	FastPeriod          int                `mapstructure:"fast_period" json:"fast_period"`
	SlowPeriod          int                `mapstructure:"slow_period" json:"slow_period"`
	SignalPeriod        int                `mapstructure:"signal_period" json:"signal_period"`
	Timeframes          []string           `mapstructure:"timeframes" json:"timeframes"`
	Thresholds          map[string]float64 `mapstructure:"thresholds" json:"thresholds"`
	ActivationThreshold float64            `mapstructure:"activation_threshold" json:"activation_threshold"`
	StrengthScale       float64            `mapstructure:"strength_scale" json:"strength_scale"`
	Unanimous           bool               `mapstructure:"unanimous" json:"unanimous"`
}

// DefaultTimeframeThreshold applies to timeframes without a configured level.
const DefaultTimeframeThreshold = 0.2

// MinTimeframesWithData is the least number of timeframes that must have
// data before the consensus is meaningful.
const MinTimeframesWithData = 2

// DefaultConsensusConfig returns the production multi-timeframe parameters.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		FastPeriod:   12,
		SlowPeriod:   26,
		SignalPeriod: 9,
		Timeframes:   []string{"2m", "5m", "15m", "30m", "1h"},
		Thresholds: map[string]float64{
			"2m":  0.47,
			"5m":  0.47,
			"15m": 0.22,
			"30m": 0.47,
			"1h":  0.07,
		},
		ActivationThreshold: 0.5,
		StrengthScale:       2.0,
	}
}

// MACDReading is one timeframe's raw MACD values. HasData is false when the
// timeframe had too few candles; such timeframes are excluded from both the
// vote and the denominator.
type MACDReading struct {
	Timeframe  string
	MACDLine   float64
	SignalLine float64
	Histogram  float64
	HasData    bool
}

// EvaluateConsensus tallies per-timeframe BULL/BEAR votes into an overall
// call. A timeframe is BULL when the fast or signal line clears its
// threshold and both are positive, BEAR in the mirror case. Overall
// confidence is 0.7 × majority ratio + 0.3 × the average strength of the
// timeframes agreeing with the majority. The overall signal fires only when
// one side outvotes the other and confidence exceeds the activation
// threshold; in unanimous mode every voting timeframe must agree.
func EvaluateConsensus(readings []MACDReading, cfg ConsensusConfig) *ConsensusResult {
	result := &ConsensusResult{
		SignalType: StanceNeutral,
		Timeframes: make(map[string]TimeframeResult, len(readings)),
	}

	var bullStrength, bearStrength float64
	for _, r := range readings {
		if !r.HasData {
			continue
		}
		threshold := cfg.Thresholds[r.Timeframe]
		if threshold <= 0 {
			threshold = DefaultTimeframeThreshold
		}

		tf := TimeframeResult{
			Timeframe:  r.Timeframe,
			MACDLine:   r.MACDLine,
			SignalLine: r.SignalLine,
			Histogram:  r.Histogram,
			SignalType: classifyTimeframe(r.MACDLine, r.SignalLine, threshold),
		}

		scale := cfg.StrengthScale
		if scale <= 0 {
			scale = 2.0
		}
		tf.Strength = clamp01(math.Max(math.Abs(r.MACDLine), math.Abs(r.SignalLine)) / (threshold * scale))

		switch tf.SignalType {
		case StanceBull:
			result.BullCount++
			bullStrength += tf.Strength
		case StanceBear:
			result.BearCount++
			bearStrength += tf.Strength
		}

		result.Timeframes[r.Timeframe] = tf
		result.TotalTimeframes++
	}

	if result.TotalTimeframes < MinTimeframesWithData {
		result.DataInsufficient = true
		result.Confidence = 0
		return result
	}

	majority := result.BullCount
	agreeStrength := bullStrength
	agreeCount := result.BullCount
	if result.BearCount > result.BullCount {
		majority = result.BearCount
		agreeStrength = bearStrength
		agreeCount = result.BearCount
	}

	avgAgree := 0.0
	if agreeCount > 0 {
		avgAgree = agreeStrength / float64(agreeCount)
	}
	result.Confidence = 0.7*(float64(majority)/float64(result.TotalTimeframes)) + 0.3*avgAgree

	result.Unanimous = result.TotalTimeframes >= MinTimeframesWithData &&
		(result.BullCount == result.TotalTimeframes || result.BearCount == result.TotalTimeframes)

	activation := cfg.ActivationThreshold
	if activation <= 0 {
		activation = 0.5
	}

	switch {
	case result.BullCount > result.BearCount && result.Confidence > activation:
		result.SignalType = StanceBull
	case result.BearCount > result.BullCount && result.Confidence > activation:
		result.SignalType = StanceBear
	}

	if cfg.Unanimous && !result.Unanimous {
		result.SignalType = StanceNeutral
	}

	return result
}

func classifyTimeframe(fast, signal, threshold float64) Stance {
	switch {
	case (fast >= threshold || signal >= threshold) && fast > 0 && signal > 0:
		return StanceBull
	case (fast <= -threshold || signal <= -threshold) && fast < 0 && signal < 0:
		return StanceBear
	default:
		return StanceNeutral
	}
}
