package engine

import (
	"fmt"
	"math"

	"golang-signal-engine/internal/entity"
)

// Plain technical-analysis math used to turn an ordered candle series into
// one IndicatorSnapshot row. Candles must be in ascending timestamp order.

// ComputeSnapshot computes all indicator values the strategies consume from
// the candle history of one symbol/timeframe. At least the MACD warm-up
// window is required; longer-window indicators are zero when the history is
// too short for them, with DataPoints recording what was available.
func ComputeSnapshot(candles []entity.Candle, macd MACDConfig) (*entity.IndicatorSnapshot, error) {
	if len(candles) < macd.MinDataPoints() {
		return nil, fmt.Errorf("have %d candles, need %d: %w", len(candles), macd.MinDataPoints(), ErrInsufficientData)
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	last := candles[len(candles)-1]
	row := &entity.IndicatorSnapshot{
		SymbolID:   last.SymbolID,
		Timeframe:  last.Timeframe,
		Timestamp:  last.Timestamp,
		DataPoints: len(candles),
		Close:      last.Close,
	}

	macdLine, signalLine := MACDSeries(closes, macd.FastPeriod, macd.SlowPeriod, macd.SignalPeriod)
	row.MACDLine = macdLine
	row.MACDSignal = signalLine
	row.MACDHist = macdLine - signalLine

	row.SMA10 = SMA(closes, 10)
	row.SMA20 = SMA(closes, 20)
	row.SMA50 = SMA(closes, 50)
	row.SMA200 = SMA(closes, 200)
	if row.SMA10 > 0 && row.SMA20 > 0 && row.SMA50 > 0 && row.SMA200 > 0 {
		row.SMAAvg = (row.SMA10 + row.SMA20 + row.SMA50 + row.SMA200) / 4
	}

	row.RSI = RSI(closes, 14)

	middle := SMA(closes, 20)
	dev := stddev(closes, 20, middle)
	row.BollMiddle = middle
	row.BollUpper = middle + 2*dev
	row.BollLower = middle - 2*dev

	row.StochK, row.StochD = Stochastic(highs, lows, closes, 14, 3)
	row.WilliamsR = WilliamsR(highs, lows, closes, 14)

	return row, nil
}

// SMA is the simple moving average of the last period values, 0 when the
// series is shorter than period.
func SMA(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMASeries computes the exponential moving average over the whole series.
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// MACDSeries returns the latest MACD line and signal line values.
func MACDSeries(closes []float64, fast, slow, signal int) (float64, float64) {
	if len(closes) < slow+signal {
		return 0, 0
	}
	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	signalEMA := EMASeries(macd, signal)
	return macd[len(macd)-1], signalEMA[len(signalEMA)-1]
}

// RSI is Wilder's relative strength index over the last period deltas.
func RSI(closes []float64, period int) float64 {
	if len(closes) <= period {
		return 0
	}
	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// Stochastic returns the %K and %D oscillator values.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) (float64, float64) {
	if len(closes) < kPeriod+dPeriod {
		return 0, 0
	}
	kValues := make([]float64, dPeriod)
	for i := 0; i < dPeriod; i++ {
		end := len(closes) - i
		kValues[i] = stochK(highs[:end], lows[:end], closes[:end], kPeriod)
	}
	dSum := 0.0
	for _, k := range kValues {
		dSum += k
	}
	return kValues[0], dSum / float64(dPeriod)
}

func stochK(highs, lows, closes []float64, period int) float64 {
	hh := math.Inf(-1)
	ll := math.Inf(1)
	for i := len(closes) - period; i < len(closes); i++ {
		hh = math.Max(hh, highs[i])
		ll = math.Min(ll, lows[i])
	}
	if hh == ll {
		return 50
	}
	return (closes[len(closes)-1] - ll) / (hh - ll) * 100
}

// WilliamsR is the Williams %R oscillator, in [-100, 0].
func WilliamsR(highs, lows, closes []float64, period int) float64 {
	if len(closes) < period {
		return 0
	}
	hh := math.Inf(-1)
	ll := math.Inf(1)
	for i := len(closes) - period; i < len(closes); i++ {
		hh = math.Max(hh, highs[i])
		ll = math.Min(ll, lows[i])
	}
	if hh == ll {
		return -50
	}
	return (closes[len(closes)-1] - hh) / (hh - ll) * 100
}

func stddev(values []float64, period int, mean float64) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(period))
}
