package indicators

import (
	"fmt"
	"math"

	"signal-machine/models"
)

func init() {
	register(&OBVTrend{Period: 20})
	register(&MoneyFlow{Period: 14})
}

// OBVTrend measures on-balance volume pressure over the trailing period.
// The scalar is net signed volume divided by total volume, in [-1, 1]:
// +1 means every bar closed up, -1 every bar closed down.
type OBVTrend struct {
	Period int
}

func (i *OBVTrend) Name() string                       { return "obv" }
func (i *OBVTrend) Category() models.IndicatorCategory { return models.CategoryVolume }

func (i *OBVTrend) Calculate(s *models.PriceSeries) (Value, error) {
	bars := s.Bars
	if len(bars) < i.Period+1 {
		return Value{}, fmt.Errorf("obv: need %d bars, have %d", i.Period+1, len(bars))
	}

	var signed, total float64
	for idx := len(bars) - i.Period; idx < len(bars); idx++ {
		vol := bars[idx].Volume
		total += vol
		switch {
		case bars[idx].Close > bars[idx-1].Close:
			signed += vol
		case bars[idx].Close < bars[idx-1].Close:
			signed -= vol
		}
	}

	if total == 0 {
		return Value{}, fmt.Errorf("obv: no volume in trailing %d bars", i.Period)
	}

	return Value{Scalar: signed / total}, nil
}

func (i *OBVTrend) Vote(v Value, s *models.PriceSeries) int {
	switch {
	case v.Scalar > obvVoteThreshold:
		return models.VoteBullish
	case v.Scalar < -obvVoteThreshold:
		return models.VoteBearish
	default:
		return models.VoteNeutral
	}
}

func (i *OBVTrend) Confidence(v Value, s *models.PriceSeries) float64 {
	return clamp01(math.Abs(v.Scalar))
}

const obvVoteThreshold = 0.2

// MoneyFlow is the Money Flow Index: a volume-weighted RSI on the typical
// price, 0-100
type MoneyFlow struct {
	Period int
}

func (i *MoneyFlow) Name() string                       { return "mfi" }
func (i *MoneyFlow) Category() models.IndicatorCategory { return models.CategoryVolume }

func (i *MoneyFlow) Calculate(s *models.PriceSeries) (Value, error) {
	bars := s.Bars
	if len(bars) < i.Period+1 {
		return Value{}, fmt.Errorf("mfi: need %d bars, have %d", i.Period+1, len(bars))
	}

	typical := func(b models.Bar) float64 { return (b.High + b.Low + b.Close) / 3 }

	var positive, negative float64
	for idx := len(bars) - i.Period; idx < len(bars); idx++ {
		tp := typical(bars[idx])
		prev := typical(bars[idx-1])
		flow := tp * bars[idx].Volume
		switch {
		case tp > prev:
			positive += flow
		case tp < prev:
			negative += flow
		}
	}

	if positive+negative == 0 {
		return Value{}, fmt.Errorf("mfi: no money flow in trailing %d bars", i.Period)
	}
	if negative == 0 {
		return Value{Scalar: 100}, nil
	}

	ratio := positive / negative
	mfi := 100 - (100 / (1 + ratio))
	return Value{Scalar: mfi}, nil
}

func (i *MoneyFlow) Vote(v Value, s *models.PriceSeries) int {
	switch {
	case v.Scalar >= mfiOverbought:
		return models.VoteBearish
	case v.Scalar <= mfiOversold:
		return models.VoteBullish
	default:
		return models.VoteNeutral
	}
}

func (i *MoneyFlow) Confidence(v Value, s *models.PriceSeries) float64 {
	return clamp01(math.Abs(v.Scalar-50) / 50)
}

const (
	mfiOverbought = 80.0
	mfiOversold   = 20.0
)
