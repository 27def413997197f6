package engine

// Pure configuration merge helpers. Precedence is override > base; zero
// values in the override leave the base value in place, so callers can send
// partial configurations.

// MergeConsensusConfig overlays override on base.
func MergeConsensusConfig(base, override ConsensusConfig) ConsensusConfig {
	merged := base
	if override.FastPeriod > 0 {
		merged.FastPeriod = override.FastPeriod
	}
	if override.SlowPeriod > 0 {
		merged.SlowPeriod = override.SlowPeriod
	}
	if override.SignalPeriod > 0 {
		merged.SignalPeriod = override.SignalPeriod
	}
	if len(override.Timeframes) > 0 {
		merged.Timeframes = override.Timeframes
	}
	if len(override.Thresholds) > 0 {
		thresholds := make(map[string]float64, len(base.Thresholds)+len(override.Thresholds))
		for tf, v := range base.Thresholds {
			thresholds[tf] = v
		}
		for tf, v := range override.Thresholds {
			thresholds[tf] = v
		}
		merged.Thresholds = thresholds
	}
	if override.ActivationThreshold > 0 {
		merged.ActivationThreshold = override.ActivationThreshold
	}
	if override.StrengthScale > 0 {
		merged.StrengthScale = override.StrengthScale
	}
	if override.Unanimous {
		merged.Unanimous = true
	}
	return merged
}

// MergeAggregationConfig overlays override on base.
func MergeAggregationConfig(base, override AggregationConfig) AggregationConfig {
	merged := base
	if override.Method != "" {
		merged.Method = override.Method
	}
	if override.MinStrategies > 0 {
		merged.MinStrategies = override.MinStrategies
	}
	if override.ConsensusThreshold > 0 {
		merged.ConsensusThreshold = override.ConsensusThreshold
	}
	if override.ConfidenceThreshold > 0 {
		merged.ConfidenceThreshold = override.ConfidenceThreshold
	}
	if override.ConflictPenalty > 0 {
		merged.ConflictPenalty = override.ConflictPenalty
	}
	if len(override.CustomWeights) > 0 {
		weights := make(map[string]float64, len(base.CustomWeights)+len(override.CustomWeights))
		for name, w := range base.CustomWeights {
			weights[name] = w
		}
		for name, w := range override.CustomWeights {
			weights[name] = w
		}
		merged.CustomWeights = weights
	}
	return merged
}

// MergeConfig overlays a partial engine configuration on base.
func MergeConfig(base, override Config) Config {
	merged := base
	if len(override.Timeframes) > 0 {
		merged.Timeframes = override.Timeframes
	}
	merged.Aggregation = MergeAggregationConfig(base.Aggregation, override.Aggregation)
	merged.Consensus = MergeConsensusConfig(base.Consensus, override.Consensus)
	if override.MACD.FastPeriod > 0 {
		merged.MACD.FastPeriod = override.MACD.FastPeriod
	}
	if override.MACD.SlowPeriod > 0 {
		merged.MACD.SlowPeriod = override.MACD.SlowPeriod
	}
	if override.MACD.SignalPeriod > 0 {
		merged.MACD.SignalPeriod = override.MACD.SignalPeriod
	}
	if override.MACD.StrengthNormalization > 0 {
		merged.MACD.StrengthNormalization = override.MACD.StrengthNormalization
	}
	if override.SMA.StrengthNormalization > 0 {
		merged.SMA.StrengthNormalization = override.SMA.StrengthNormalization
	}
	if override.SMA.MinDataPoints > 0 {
		merged.SMA.MinDataPoints = override.SMA.MinDataPoints
	}
	if override.SignalTTL > 0 {
		merged.SignalTTL = override.SignalTTL
	}
	return merged
}
