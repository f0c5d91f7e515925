package analysis

import (
	"math"

	"github.com/shopspring/decimal"

	"signal-machine/indicators"
	"signal-machine/models"
	"signal-machine/strategy"
)

const (
	// atrStopPeriod is the lookback for the volatility stop
	atrStopPeriod = 14
	// atrStopMultiple scales ATR into the raw stop distance before the
	// profile bounds are applied
	atrStopMultiple = 2.0
)

// DeriveTradeParameters turns a directional signal into concrete trade
// levels. Entry is the latest close. The stop sits a volatility-scaled
// distance away, floored at the profile default and capped at the profile
// maximum. The target extends the stop distance by the profile target
// multiplier, and position size risks a fixed fraction of capital between
// entry and stop.
//
// A neutral verdict produces an inactive set with only the entry recorded.
func DeriveTradeParameters(s *models.PriceSeries, signal models.AggregatedSignal, profile strategy.Profile, capital, riskFraction float64) models.TradeParameters {
	entry := decimal.NewFromFloat(s.LastClose())
	if signal.Verdict == models.VerdictNeutral || !entry.IsPositive() {
		return models.InactiveTradeParameters(entry)
	}

	atr := indicators.ATR(s.Highs(), s.Lows(), s.Closes(), atrStopPeriod)
	if math.IsNaN(atr) {
		atr = 0
	}

	distance := stopDistance(entry, atr, profile.Risk)
	if !distance.IsPositive() {
		return models.InactiveTradeParameters(entry)
	}

	targetDistance := distance.Mul(decimal.NewFromFloat(profile.Risk.TargetMultiplier))
	var stop, target decimal.Decimal
	if signal.Verdict.Bullish() {
		stop = entry.Sub(distance)
		target = entry.Add(targetDistance)
	} else {
		stop = entry.Add(distance)
		target = entry.Sub(targetDistance)
	}

	quantity := positionSize(entry, distance, capital, riskFraction, profile.Risk.MaxPositionPct)
	riskReward, _ := target.Sub(entry).Abs().Div(distance).Float64()

	return models.TradeParameters{
		Entry:           entry,
		StopLoss:        stop,
		Target:          target,
		Quantity:        quantity,
		RiskRewardRatio: riskReward,
		Active:          quantity.IsPositive(),
	}
}

// stopDistance clamps the volatility distance into the profile's band:
// never tighter than the default stop percent, never wider than the max.
func stopDistance(entry decimal.Decimal, atr float64, risk strategy.RiskProfile) decimal.Decimal {
	distance := decimal.NewFromFloat(atrStopMultiple * atr)
	floor := entry.Mul(decimal.NewFromFloat(risk.StopLossPct))
	ceiling := entry.Mul(decimal.NewFromFloat(risk.MaxStopPct))

	if distance.LessThan(floor) {
		distance = floor
	}
	if distance.GreaterThan(ceiling) {
		distance = ceiling
	}
	return distance
}

// positionSize returns the whole-share quantity that risks
// capital * riskFraction over the stop distance, capped so position value
// stays within maxPositionPct of capital. Quantity is always floored,
// never rounded up.
func positionSize(entry, distance decimal.Decimal, capital, riskFraction, maxPositionPct float64) decimal.Decimal {
	if !distance.IsPositive() || !entry.IsPositive() || capital <= 0 || riskFraction <= 0 {
		return decimal.Zero
	}

	riskBudget := decimal.NewFromFloat(capital * riskFraction)
	quantity := riskBudget.Div(distance).Floor()

	maxValue := decimal.NewFromFloat(capital * maxPositionPct)
	maxShares := maxValue.Div(entry).Floor()
	if quantity.GreaterThan(maxShares) {
		quantity = maxShares
	}

	if quantity.IsNegative() {
		return decimal.Zero
	}
	return quantity
}
