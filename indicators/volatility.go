package indicators

import (
	"fmt"
	"math"

	"signal-machine/models"
)

func init() {
	register(&Bollinger{Period: 20, Mult: 2})
	register(&ATRChannel{Period: 14, Mult: 2, BasePeriod: 20})
}

// Bollinger measures where the close sits inside the standard-deviation
// bands. The scalar is %B: 0 at the lower band, 1 at the upper band.
// Touching the lower band votes bullish (mean reversion), the upper band
// bearish.
type Bollinger struct {
	Period int
	Mult   float64
}

func (i *Bollinger) Name() string                       { return "bollinger" }
func (i *Bollinger) Category() models.IndicatorCategory { return models.CategoryVolatility }

func (i *Bollinger) Calculate(s *models.PriceSeries) (Value, error) {
	closes := s.Closes()
	middle := SMA(closes, i.Period)
	sd := StdDev(closes, i.Period)
	if math.IsNaN(middle) || math.IsNaN(sd) {
		return Value{}, fmt.Errorf("bollinger: need %d bars, have %d", i.Period, len(closes))
	}

	upper := middle + i.Mult*sd
	lower := middle - i.Mult*sd
	close := s.LastClose()

	percentB := 0.5
	if upper != lower {
		percentB = (close - lower) / (upper - lower)
	}

	return Value{
		Scalar: percentB,
		Bundle: map[string]float64{"upper": upper, "middle": middle, "lower": lower},
	}, nil
}

func (i *Bollinger) Vote(v Value, s *models.PriceSeries) int {
	switch {
	case v.Scalar <= bollingerLowerTouch:
		return models.VoteBullish
	case v.Scalar >= bollingerUpperTouch:
		return models.VoteBearish
	default:
		return models.VoteNeutral
	}
}

func (i *Bollinger) Confidence(v Value, s *models.PriceSeries) float64 {
	return clamp01(math.Abs(v.Scalar-0.5) * 2)
}

const (
	bollingerLowerTouch = 0.05
	bollingerUpperTouch = 0.95
)

// ATRChannel positions the close inside an ATR envelope around a moving
// average. The scalar is the signed distance from the midline in units of
// Mult*ATR: beyond +1 the price is overextended above the channel, beyond
// -1 below it.
type ATRChannel struct {
	Period     int // ATR period
	Mult       float64
	BasePeriod int // midline SMA period
}

func (i *ATRChannel) Name() string                       { return "atr_channel" }
func (i *ATRChannel) Category() models.IndicatorCategory { return models.CategoryVolatility }

func (i *ATRChannel) Calculate(s *models.PriceSeries) (Value, error) {
	closes := s.Closes()
	mid := SMA(closes, i.BasePeriod)
	atr := ATR(s.Highs(), s.Lows(), closes, i.Period)
	if math.IsNaN(mid) || math.IsNaN(atr) {
		return Value{}, fmt.Errorf("atr_channel: need %d bars, have %d",
			maxInt(i.BasePeriod, i.Period+1), len(closes))
	}
	if atr == 0 {
		// flat series, no channel to position against
		return Value{
			Scalar: 0,
			Bundle: map[string]float64{"atr": 0, "midline": mid},
		}, nil
	}

	position := (s.LastClose() - mid) / (i.Mult * atr)
	return Value{
		Scalar: position,
		Bundle: map[string]float64{"atr": atr, "midline": mid},
	}, nil
}

func (i *ATRChannel) Vote(v Value, s *models.PriceSeries) int {
	switch {
	case v.Scalar > 1:
		return models.VoteBearish
	case v.Scalar < -1:
		return models.VoteBullish
	default:
		return models.VoteNeutral
	}
}

func (i *ATRChannel) Confidence(v Value, s *models.PriceSeries) float64 {
	return clamp01(math.Abs(v.Scalar) / atrChannelFullStretch)
}

const atrChannelFullStretch = 1.5

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
