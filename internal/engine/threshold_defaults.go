package engine

import "golang-signal-engine/internal/entity"

// Built-in threshold defaults, used when neither a symbol-specific rule set
// nor a market-type template is configured. VN values are wider than US ones
// because VND-denominated prices move the MACD on a larger absolute scale.

func symmetricZones(market entity.MarketType, indicator string, threshold float64) []entity.ThresholdRule {
	return []entity.ThresholdRule{
		{MarketType: market, Indicator: indicator, Zone: ZoneBull, Operator: entity.OpGreaterOrEqual, MinValue: threshold, Priority: 0, IsActive: true},
		{MarketType: market, Indicator: indicator, Zone: ZoneBear, Operator: entity.OpLessOrEqual, MaxValue: -threshold, Priority: 1, IsActive: true},
		{MarketType: market, Indicator: indicator, Zone: ZoneNeutral, Operator: entity.OpBetween, MinValue: -threshold, MaxValue: threshold, Priority: 2, IsActive: true},
	}
}

func bandZones(market entity.MarketType, indicator string, lower, upper float64) []entity.ThresholdRule {
	return []entity.ThresholdRule{
		{MarketType: market, Indicator: indicator, Zone: ZoneOversold, Operator: entity.OpLessOrEqual, MaxValue: lower, Priority: 0, IsActive: true},
		{MarketType: market, Indicator: indicator, Zone: ZoneOverbought, Operator: entity.OpGreaterOrEqual, MinValue: upper, Priority: 1, IsActive: true},
		{MarketType: market, Indicator: indicator, Zone: ZoneNeutral, Operator: entity.OpBetween, MinValue: lower, MaxValue: upper, Priority: 2, IsActive: true},
	}
}

func macdDefaults(market entity.MarketType) map[string][]entity.ThresholdRule {
	lineThreshold := 0.2
	histThreshold := 0.1
	if market == entity.MarketVN {
		lineThreshold = 0.5
		histThreshold = 0.25
	}
	return map[string][]entity.ThresholdRule{
		IndicatorMACDLine:   symmetricZones(market, IndicatorMACDLine, lineThreshold),
		IndicatorMACDSignal: symmetricZones(market, IndicatorMACDSignal, lineThreshold),
		IndicatorMACDHist:   symmetricZones(market, IndicatorMACDHist, histThreshold),
		IndicatorRSI:        bandZones(market, IndicatorRSI, 30, 70),
		IndicatorStochastic: bandZones(market, IndicatorStochastic, 20, 80),
		IndicatorWilliamsR:  bandZones(market, IndicatorWilliamsR, -80, -20),
	}
}

var builtinDefaults = map[entity.MarketType]map[string][]entity.ThresholdRule{
	entity.MarketUS:     macdDefaults(entity.MarketUS),
	entity.MarketVN:     macdDefaults(entity.MarketVN),
	entity.MarketGlobal: macdDefaults(entity.MarketGlobal),
}

func builtinThresholds(market entity.MarketType, indicator string) ([]entity.ThresholdRule, bool) {
	byIndicator, ok := builtinDefaults[market]
	if !ok {
		byIndicator, ok = builtinDefaults[entity.MarketGlobal]
		if !ok {
			return nil, false
		}
	}
	rules, ok := byIndicator[indicator]
	return rules, ok
}
