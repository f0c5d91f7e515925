package indicators

import (
	"fmt"
	"math"

	"signal-machine/models"
)

func init() {
	register(&SMACross{Fast: 20, Slow: 50})
	register(&EMACross{Fast: 12, Slow: 26})
	register(&MACD{Fast: 12, Slow: 26, Signal: 9})
	register(&ADX{Period: 14})
}

// SMACross compares a fast and slow simple moving average. The scalar is
// the fast-over-slow spread as a percentage of the slow average.
type SMACross struct {
	Fast int
	Slow int
}

func (i *SMACross) Name() string                       { return "sma_cross" }
func (i *SMACross) Category() models.IndicatorCategory { return models.CategoryTrend }

func (i *SMACross) Calculate(s *models.PriceSeries) (Value, error) {
	closes := s.Closes()
	fast := SMA(closes, i.Fast)
	slow := SMA(closes, i.Slow)
	if math.IsNaN(fast) || math.IsNaN(slow) || slow == 0 {
		return Value{}, fmt.Errorf("sma_cross: need %d bars, have %d", i.Slow, len(closes))
	}
	spread := (fast - slow) / slow * 100
	return Value{
		Scalar: spread,
		Bundle: map[string]float64{"sma_fast": fast, "sma_slow": slow},
	}, nil
}

func (i *SMACross) Vote(v Value, s *models.PriceSeries) int {
	switch {
	case v.Scalar > smaCrossVoteSpread:
		return models.VoteBullish
	case v.Scalar < -smaCrossVoteSpread:
		return models.VoteBearish
	default:
		return models.VoteNeutral
	}
}

func (i *SMACross) Confidence(v Value, s *models.PriceSeries) float64 {
	return clamp01(math.Abs(v.Scalar) / smaCrossFullSpread)
}

const (
	// spread % below which the averages are considered entangled
	smaCrossVoteSpread = 0.25
	// spread % treated as full conviction
	smaCrossFullSpread = 5.0
)

// EMACross is the exponential counterpart of SMACross with shorter windows
type EMACross struct {
	Fast int
	Slow int
}

func (i *EMACross) Name() string                       { return "ema_cross" }
func (i *EMACross) Category() models.IndicatorCategory { return models.CategoryTrend }

func (i *EMACross) Calculate(s *models.PriceSeries) (Value, error) {
	closes := s.Closes()
	fast := EMA(closes, i.Fast)
	slow := EMA(closes, i.Slow)
	if math.IsNaN(fast) || math.IsNaN(slow) || slow == 0 {
		return Value{}, fmt.Errorf("ema_cross: need %d bars, have %d", i.Slow, len(closes))
	}
	spread := (fast - slow) / slow * 100
	return Value{
		Scalar: spread,
		Bundle: map[string]float64{"ema_fast": fast, "ema_slow": slow},
	}, nil
}

func (i *EMACross) Vote(v Value, s *models.PriceSeries) int {
	switch {
	case v.Scalar > emaCrossVoteSpread:
		return models.VoteBullish
	case v.Scalar < -emaCrossVoteSpread:
		return models.VoteBearish
	default:
		return models.VoteNeutral
	}
}

func (i *EMACross) Confidence(v Value, s *models.PriceSeries) float64 {
	return clamp01(math.Abs(v.Scalar) / emaCrossFullSpread)
}

const (
	emaCrossVoteSpread = 0.15
	emaCrossFullSpread = 4.0
)

// MACD measures trend momentum via the fast/slow EMA difference and its
// signal line. The scalar is the histogram normalized by the latest close,
// so thresholds behave the same for a $5 stock and a $500 one.
type MACD struct {
	Fast   int
	Slow   int
	Signal int
}

func (i *MACD) Name() string                       { return "macd" }
func (i *MACD) Category() models.IndicatorCategory { return models.CategoryTrend }

func (i *MACD) Calculate(s *models.PriceSeries) (Value, error) {
	closes := s.Closes()
	if len(closes) < i.Slow+i.Signal {
		return Value{}, fmt.Errorf("macd: need %d bars, have %d", i.Slow+i.Signal, len(closes))
	}

	fastSeries := EMASeries(closes, i.Fast)
	slowSeries := EMASeries(closes, i.Slow)

	macdLine := make([]float64, 0, len(closes)-i.Slow+1)
	for idx := i.Slow - 1; idx < len(closes); idx++ {
		macdLine = append(macdLine, fastSeries[idx]-slowSeries[idx])
	}

	signal := EMA(macdLine, i.Signal)
	macd := macdLine[len(macdLine)-1]
	if math.IsNaN(signal) {
		return Value{}, fmt.Errorf("macd: signal line needs %d macd points, have %d", i.Signal, len(macdLine))
	}

	histogram := macd - signal
	last := s.LastClose()
	normalized := 0.0
	if last > 0 {
		normalized = histogram / last * 100
	}

	return Value{
		Scalar: normalized,
		Bundle: map[string]float64{"macd": macd, "signal": signal, "histogram": histogram},
	}, nil
}

func (i *MACD) Vote(v Value, s *models.PriceSeries) int {
	switch {
	case v.Scalar > macdVoteThreshold:
		return models.VoteBullish
	case v.Scalar < -macdVoteThreshold:
		return models.VoteBearish
	default:
		return models.VoteNeutral
	}
}

func (i *MACD) Confidence(v Value, s *models.PriceSeries) float64 {
	return clamp01(math.Abs(v.Scalar) / macdFullThreshold)
}

const (
	macdVoteThreshold = 0.05 // histogram as % of price
	macdFullThreshold = 1.0
)

// ADX measures trend strength with +DI/-DI giving the direction. A weak
// ADX abstains regardless of DI ordering.
type ADX struct {
	Period int
}

func (i *ADX) Name() string                       { return "adx" }
func (i *ADX) Category() models.IndicatorCategory { return models.CategoryTrend }

func (i *ADX) Calculate(s *models.PriceSeries) (Value, error) {
	highs, lows, closes := s.Highs(), s.Lows(), s.Closes()
	n := len(closes)
	// ADX needs a DI warmup plus a DX smoothing window
	if n < 2*i.Period+1 {
		return Value{}, fmt.Errorf("adx: need %d bars, have %d", 2*i.Period+1, n)
	}

	tr := TrueRanges(highs, lows, closes)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for idx := 1; idx < n; idx++ {
		up := highs[idx] - highs[idx-1]
		down := lows[idx-1] - lows[idx]
		if up > down && up > 0 {
			plusDM[idx] = up
		}
		if down > up && down > 0 {
			minusDM[idx] = down
		}
	}

	// Wilder-smoothed running sums, seeded over the first period.
	smTR, smPlus, smMinus := 0.0, 0.0, 0.0
	for idx := 1; idx <= i.Period; idx++ {
		smTR += tr[idx]
		smPlus += plusDM[idx]
		smMinus += minusDM[idx]
	}

	dxs := make([]float64, 0, n-i.Period)
	var plusDI, minusDI float64
	for idx := i.Period + 1; idx <= n; idx++ {
		if smTR > 0 {
			plusDI = smPlus / smTR * 100
			minusDI = smMinus / smTR * 100
		} else {
			plusDI, minusDI = 0, 0
		}
		sum := plusDI + minusDI
		if sum > 0 {
			dxs = append(dxs, math.Abs(plusDI-minusDI)/sum*100)
		} else {
			dxs = append(dxs, 0)
		}
		if idx == n {
			break
		}
		smTR = smTR - smTR/float64(i.Period) + tr[idx]
		smPlus = smPlus - smPlus/float64(i.Period) + plusDM[idx]
		smMinus = smMinus - smMinus/float64(i.Period) + minusDM[idx]
	}

	if len(dxs) < i.Period {
		return Value{}, fmt.Errorf("adx: insufficient dx history")
	}
	adx := dxs[0]
	for _, dx := range dxs[1:] {
		adx = (adx*float64(i.Period-1) + dx) / float64(i.Period)
	}

	return Value{
		Scalar: adx,
		Bundle: map[string]float64{"adx": adx, "plus_di": plusDI, "minus_di": minusDI},
	}, nil
}

func (i *ADX) Vote(v Value, s *models.PriceSeries) int {
	if v.Scalar < adxTrendThreshold {
		return models.VoteNeutral
	}
	if v.Bundle["plus_di"] > v.Bundle["minus_di"] {
		return models.VoteBullish
	}
	if v.Bundle["minus_di"] > v.Bundle["plus_di"] {
		return models.VoteBearish
	}
	return models.VoteNeutral
}

func (i *ADX) Confidence(v Value, s *models.PriceSeries) float64 {
	return clamp01(v.Scalar / adxFullStrength)
}

const (
	adxTrendThreshold = 25.0
	adxFullStrength   = 50.0
)
