package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang-signal-engine/internal/entity"
	"golang-signal-engine/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
)

// Well-known zone names.
const (
	ZoneBull       = "bull"
	ZoneBear       = "bear"
	ZoneNeutral    = "neutral"
	ZoneOverbought = "overbought"
	ZoneOversold   = "oversold"
)

// Indicator names recognized by the threshold resolver.
const (
	IndicatorMACDLine   = "macd_line"
	IndicatorMACDSignal = "macd_signal"
	IndicatorMACDHist   = "macd_hist"
	IndicatorRSI        = "rsi"
	IndicatorStochastic = "stochastic"
	IndicatorWilliamsR  = "williams_r"
)

// ThresholdSource loads persisted threshold rule sets.
type ThresholdSource interface {
	GetSymbolRules(ctx context.Context, symbolID uint, timeframe, indicator string) ([]entity.ThresholdRule, error)
	GetTemplateRules(ctx context.Context, market entity.MarketType, timeframe, indicator string) ([]entity.ThresholdRule, error)
}

// ThresholdResolver resolves the ordered zone rules for a
// (symbol, timeframe, indicator) triple. Resolution order: enabled
// symbol-specific rules, then the market-type template, then the built-in
// defaults. Rule sets are read-mostly and cached per resolver; Invalidate
// must be called after configuration updates.
type ThresholdResolver struct {
	source ThresholdSource
	cache  *gocache.Cache
	log    *logger.Logger
}

// NewThresholdResolver creates a resolver with a short-lived rule cache.
func NewThresholdResolver(source ThresholdSource, log *logger.Logger) *ThresholdResolver {
	return &ThresholdResolver{
		source: source,
		cache:  gocache.New(5*time.Minute, 10*time.Minute),
		log:    log,
	}
}

// Resolve returns the priority-ordered zone rules for the triple.
func (r *ThresholdResolver) Resolve(ctx context.Context, symbol *entity.Symbol, timeframe, indicator string) ([]entity.ThresholdRule, error) {
	key := fmt.Sprintf("%d.%s.%s", symbol.ID, timeframe, indicator)
	if cached, ok := r.cache.Get(key); ok {
		return cached.([]entity.ThresholdRule), nil
	}

	rules, err := r.resolve(ctx, symbol, timeframe, indicator)
	if err != nil {
		return nil, err
	}

	r.cache.SetDefault(key, rules)
	return rules, nil
}

func (r *ThresholdResolver) resolve(ctx context.Context, symbol *entity.Symbol, timeframe, indicator string) ([]entity.ThresholdRule, error) {
	if r.source != nil {
		symbolRules, err := r.source.GetSymbolRules(ctx, symbol.ID, timeframe, indicator)
		if err != nil {
			return nil, fmt.Errorf("load symbol threshold rules: %w", err)
		}
		if len(symbolRules) > 0 {
			return symbolRules, nil
		}

		templateRules, err := r.source.GetTemplateRules(ctx, symbol.MarketType, timeframe, indicator)
		if err != nil {
			return nil, fmt.Errorf("load template threshold rules: %w", err)
		}
		if len(templateRules) > 0 {
			return templateRules, nil
		}
	}

	defaults, ok := builtinThresholds(symbol.MarketType, indicator)
	if !ok {
		r.log.Error("No built-in threshold default",
			logger.StringField("market", string(symbol.MarketType)),
			logger.StringField("indicator", indicator))
		return nil, fmt.Errorf("market %s indicator %s: %w", symbol.MarketType, indicator, ErrConfigurationMissing)
	}
	return defaults, nil
}

// Invalidate drops all cached rule sets for a symbol.
func (r *ThresholdResolver) Invalidate(symbolID uint) {
	prefix := fmt.Sprintf("%d.", symbolID)
	for key := range r.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			r.cache.Delete(key)
		}
	}
}

// InvalidateAll drops the entire rule cache.
func (r *ThresholdResolver) InvalidateAll() {
	r.cache.Flush()
}

// Classify picks the zone for value: the first matching rule in priority
// order wins. The second return is false when no rule matches.
func Classify(rules []entity.ThresholdRule, value float64) (string, bool) {
	for _, rule := range rules {
		if rule.Matches(value) {
			return rule.Zone, true
		}
	}
	return ZoneNeutral, false
}
