package indicators

import (
	"fmt"
	"math"

	"signal-machine/models"
)

func init() {
	register(&RelativeStrength{Period: 14})
	register(&Stochastic{Period: 14, Smooth: 3})
	register(&WilliamsR{Period: 14})
	register(&RateOfChange{Period: 10})
}

// RelativeStrength is the classic RSI oscillator. Overbought readings vote
// bearish, oversold readings vote bullish.
type RelativeStrength struct {
	Period int
}

func (i *RelativeStrength) Name() string                       { return "rsi" }
func (i *RelativeStrength) Category() models.IndicatorCategory { return models.CategoryMomentum }

func (i *RelativeStrength) Calculate(s *models.PriceSeries) (Value, error) {
	rsi := RSI(s.Closes(), i.Period)
	if math.IsNaN(rsi) {
		return Value{}, fmt.Errorf("rsi: need %d bars, have %d", i.Period+1, s.Len())
	}
	return Value{Scalar: rsi}, nil
}

func (i *RelativeStrength) Vote(v Value, s *models.PriceSeries) int {
	switch {
	case v.Scalar >= rsiOverbought:
		return models.VoteBearish
	case v.Scalar <= rsiOversold:
		return models.VoteBullish
	default:
		return models.VoteNeutral
	}
}

func (i *RelativeStrength) Confidence(v Value, s *models.PriceSeries) float64 {
	// distance from the neutral midpoint, full conviction at the rails
	return clamp01(math.Abs(v.Scalar-50) / 50)
}

const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// Stochastic is the %K/%D oscillator: where the close sits inside the
// trailing high-low range
type Stochastic struct {
	Period int
	Smooth int
}

func (i *Stochastic) Name() string                       { return "stochastic" }
func (i *Stochastic) Category() models.IndicatorCategory { return models.CategoryMomentum }

func (i *Stochastic) Calculate(s *models.PriceSeries) (Value, error) {
	highs, lows, closes := s.Highs(), s.Lows(), s.Closes()
	n := len(closes)
	if n < i.Period+i.Smooth-1 {
		return Value{}, fmt.Errorf("stochastic: need %d bars, have %d", i.Period+i.Smooth-1, n)
	}

	// raw %K for the last Smooth bars, then %D as their average
	ks := make([]float64, 0, i.Smooth)
	for off := i.Smooth - 1; off >= 0; off-- {
		window := n - off
		hh := HighestHigh(highs[:window], i.Period)
		ll := LowestLow(lows[:window], i.Period)
		if hh == ll {
			ks = append(ks, 50)
			continue
		}
		ks = append(ks, (closes[window-1]-ll)/(hh-ll)*100)
	}

	k := ks[len(ks)-1]
	d := 0.0
	for _, v := range ks {
		d += v
	}
	d /= float64(len(ks))

	return Value{
		Scalar: k,
		Bundle: map[string]float64{"percent_k": k, "percent_d": d},
	}, nil
}

func (i *Stochastic) Vote(v Value, s *models.PriceSeries) int {
	switch {
	case v.Scalar >= stochOverbought:
		return models.VoteBearish
	case v.Scalar <= stochOversold:
		return models.VoteBullish
	default:
		return models.VoteNeutral
	}
}

func (i *Stochastic) Confidence(v Value, s *models.PriceSeries) float64 {
	return clamp01(math.Abs(v.Scalar-50) / 50)
}

const (
	stochOverbought = 80.0
	stochOversold   = 20.0
)

// WilliamsR is %R, a 0..-100 oscillator mirroring the stochastic
type WilliamsR struct {
	Period int
}

func (i *WilliamsR) Name() string                       { return "williams_r" }
func (i *WilliamsR) Category() models.IndicatorCategory { return models.CategoryMomentum }

func (i *WilliamsR) Calculate(s *models.PriceSeries) (Value, error) {
	highs, lows := s.Highs(), s.Lows()
	hh := HighestHigh(highs, i.Period)
	ll := LowestLow(lows, i.Period)
	if math.IsNaN(hh) || math.IsNaN(ll) {
		return Value{}, fmt.Errorf("williams_r: need %d bars, have %d", i.Period, s.Len())
	}
	if hh == ll {
		return Value{Scalar: -50}, nil
	}
	r := (hh - s.LastClose()) / (hh - ll) * -100
	return Value{Scalar: r}, nil
}

func (i *WilliamsR) Vote(v Value, s *models.PriceSeries) int {
	switch {
	case v.Scalar <= williamsOversold:
		return models.VoteBullish
	case v.Scalar >= williamsOverbought:
		return models.VoteBearish
	default:
		return models.VoteNeutral
	}
}

func (i *WilliamsR) Confidence(v Value, s *models.PriceSeries) float64 {
	return clamp01(math.Abs(v.Scalar+50) / 50)
}

const (
	williamsOversold   = -80.0
	williamsOverbought = -20.0
)

// RateOfChange measures percentage price change over the trailing period
type RateOfChange struct {
	Period int
}

func (i *RateOfChange) Name() string                       { return "roc" }
func (i *RateOfChange) Category() models.IndicatorCategory { return models.CategoryMomentum }

func (i *RateOfChange) Calculate(s *models.PriceSeries) (Value, error) {
	roc := ROC(s.Closes(), i.Period)
	if math.IsNaN(roc) {
		return Value{}, fmt.Errorf("roc: need %d bars, have %d", i.Period+1, s.Len())
	}
	return Value{Scalar: roc}, nil
}

func (i *RateOfChange) Vote(v Value, s *models.PriceSeries) int {
	switch {
	case v.Scalar > rocVoteThreshold:
		return models.VoteBullish
	case v.Scalar < -rocVoteThreshold:
		return models.VoteBearish
	default:
		return models.VoteNeutral
	}
}

func (i *RateOfChange) Confidence(v Value, s *models.PriceSeries) float64 {
	return clamp01(math.Abs(v.Scalar) / rocFullThreshold)
}

const (
	rocVoteThreshold = 2.0  // percent
	rocFullThreshold = 10.0 // percent change treated as full conviction
)
