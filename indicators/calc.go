package indicators

import "math"

// Shared indicator math. All helpers return NaN when the input window is
// too short; callers treat NaN as "exclude this indicator", never as zero.

// SMA computes the simple moving average of the trailing period
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// EMASeries computes the exponential moving average over the full input,
// seeding with the SMA of the first period
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	ema := make([]float64, len(values))
	multiplier := 2.0 / float64(period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
		ema[i] = math.NaN()
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < len(values); i++ {
		ema[i] = (values[i]-ema[i-1])*multiplier + ema[i-1]
	}

	return ema
}

// EMA computes the latest exponential moving average value
func EMA(values []float64, period int) float64 {
	series := EMASeries(values, period)
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// StdDev computes the population standard deviation of the trailing period
func StdDev(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	mean := SMA(values, period)
	sumSq := 0.0
	for i := len(values) - period; i < len(values); i++ {
		d := values[i] - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(period))
}

// RSI computes the Relative Strength Index over the trailing period using
// simple gain/loss averages
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		return 100.0
	}

	rs := gains / losses
	return 100 - (100 / (1 + rs))
}

// TrueRanges computes the true range series. The first element uses
// high-low only since there is no prior close.
func TrueRanges(highs, lows, closes []float64) []float64 {
	n := len(highs)
	if n == 0 || len(lows) != n || len(closes) != n {
		return nil
	}
	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// ATR computes the average true range over the trailing period using
// Wilder smoothing
func ATR(highs, lows, closes []float64, period int) float64 {
	tr := TrueRanges(highs, lows, closes)
	if period <= 0 || len(tr) < period+1 {
		return math.NaN()
	}

	// Seed with the simple average of the first period, then smooth.
	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += tr[i]
	}
	atr /= float64(period)

	for i := period + 1; i < len(tr); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
	}
	return atr
}

// ROC computes the rate of change over the trailing period as a percentage
func ROC(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}
	prev := closes[len(closes)-1-period]
	if prev == 0 {
		return math.NaN()
	}
	return (closes[len(closes)-1] - prev) / prev * 100
}

// HighestHigh returns the maximum of the trailing period
func HighestHigh(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	max := values[len(values)-period]
	for _, v := range values[len(values)-period:] {
		if v > max {
			max = v
		}
	}
	return max
}

// LowestLow returns the minimum of the trailing period
func LowestLow(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	min := values[len(values)-period]
	for _, v := range values[len(values)-period:] {
		if v < min {
			min = v
		}
	}
	return min
}

// clamp01 clamps a confidence value to [0, 1], mapping NaN to 0
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
