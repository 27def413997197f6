package engine

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Aggregate fuses the results of multiple strategies for one
// symbol/timeframe into a single decision using the configured method.
// defaultWeights carries each strategy's default weight; cfg.CustomWeights
// overrides per name. Fewer than cfg.MinStrategies results fail with
// ErrInsufficientStrategies so callers can distinguish "not enough inputs"
// from a genuine neutral read.
func Aggregate(results []SignalResult, defaultWeights map[string]float64, cfg AggregationConfig) (*AggregatedSignal, error) {
	if len(results) < cfg.MinStrategies {
		return nil, fmt.Errorf("%d of %d required: %w", len(results), cfg.MinStrategies, ErrInsufficientStrategies)
	}

	agg := &AggregatedSignal{
		Method:      cfg.Method,
		Votes:       make(map[string]Direction, len(results)),
		GeneratedAt: time.Now().UTC(),
	}
	if len(results) > 0 {
		agg.SymbolID = results[0].SymbolID
		agg.Timeframe = results[0].Timeframe
		agg.Timestamp = results[0].Timestamp
	}
	for _, r := range results {
		agg.Votes[r.Strategy] = r.Direction
		agg.Contributing = append(agg.Contributing, r.Strategy)
	}
	sort.Strings(agg.Contributing)

	switch cfg.Method {
	case MethodWeightedAverage:
		aggregateWeighted(agg, results, cfg, func(r SignalResult) float64 {
			return weightFor(r.Strategy, defaultWeights, cfg.CustomWeights)
		})
	case MethodConfidenceWeighted:
		aggregateWeighted(agg, results, cfg, func(r SignalResult) float64 {
			return r.Confidence
		})
	case MethodMajorityVote:
		aggregateMajority(agg, results)
	case MethodConsensus:
		aggregateConsensus(agg, results, cfg)
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Method, ErrUnknownMethod)
	}

	if cfg.ConfidenceThreshold > 0 && agg.Confidence < cfg.ConfidenceThreshold {
		agg.Direction = DirectionNeutral
	}

	return agg, nil
}

func weightFor(name string, defaults, custom map[string]float64) float64 {
	if w, ok := custom[name]; ok {
		return w
	}
	if w, ok := defaults[name]; ok {
		return w
	}
	return 1.0
}

func signed(d Direction, v float64) float64 {
	switch d {
	case DirectionBuy:
		return v
	case DirectionSell:
		return -v
	default:
		return 0
	}
}

func aggregateWeighted(agg *AggregatedSignal, results []SignalResult, cfg AggregationConfig, weight func(SignalResult) float64) {
	var weightSum, strengthSum, confidenceSum float64
	hasBuy, hasSell := false, false

	for _, r := range results {
		w := weight(r)
		weightSum += w
		strengthSum += signed(r.Direction, r.Strength) * w
		confidenceSum += r.Confidence * w
		switch r.Direction {
		case DirectionBuy:
			hasBuy = true
		case DirectionSell:
			hasSell = true
		}
	}

	if weightSum == 0 {
		agg.Direction = DirectionNeutral
		return
	}

	final := strengthSum / weightSum
	agg.Confidence = confidenceSum / weightSum
	agg.Strength = math.Abs(final)

	switch {
	case final > 0:
		agg.Direction = DirectionBuy
	case final < 0:
		agg.Direction = DirectionSell
	default:
		agg.Direction = DirectionNeutral
	}

	// Disagreeing directional calls reduce conviction in the fused strength.
	if hasBuy && hasSell && cfg.ConflictPenalty > 0 {
		agg.Strength *= 1 - cfg.ConflictPenalty
	}
}

type voteBucket struct {
	direction   Direction
	count       int
	strengthSum float64
	confSum     float64
	firstName   string
}

func buildBuckets(results []SignalResult) map[Direction]*voteBucket {
	buckets := make(map[Direction]*voteBucket)
	for _, r := range results {
		b, ok := buckets[r.Direction]
		if !ok {
			b = &voteBucket{direction: r.Direction, firstName: r.Strategy}
			buckets[r.Direction] = b
		}
		b.count++
		b.strengthSum += r.Strength
		b.confSum += r.Confidence
		if r.Strategy < b.firstName {
			b.firstName = r.Strategy
		}
	}
	return buckets
}

func aggregateMajority(agg *AggregatedSignal, results []SignalResult) {
	buckets := buildBuckets(results)

	ordered := make([]*voteBucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	// Ties fall back to summed strength, then to the alphabetically first
	// contributing strategy name, so the outcome is deterministic.
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		if ordered[i].strengthSum != ordered[j].strengthSum {
			return ordered[i].strengthSum > ordered[j].strengthSum
		}
		return ordered[i].firstName < ordered[j].firstName
	})

	winner := ordered[0]
	agg.Direction = winner.direction
	agg.Strength = winner.strengthSum / float64(winner.count)
	agg.Confidence = winner.confSum / float64(winner.count)
}

func aggregateConsensus(agg *AggregatedSignal, results []SignalResult, cfg AggregationConfig) {
	buckets := buildBuckets(results)

	var best *voteBucket
	for _, d := range []Direction{DirectionBuy, DirectionSell} {
		b, ok := buckets[d]
		if !ok {
			continue
		}
		if best == nil || b.count > best.count {
			best = b
		}
	}

	agg.Direction = DirectionNeutral
	if best == nil {
		return
	}

	fraction := float64(best.count) / float64(len(results))
	agg.Confidence = fraction
	if fraction > cfg.ConsensusThreshold {
		agg.Direction = best.direction
		agg.Strength = best.strengthSum / float64(best.count)
		agg.Confidence = best.confSum / float64(best.count)
	}
}
