package strategy

import (
	"errors"
	"fmt"
	"sort"

	"signal-machine/models"
)

// ErrUnknownStrategy indicates a strategy id with no profile. Callers fall
// back to the baseline profile instead of surfacing this to end users.
var ErrUnknownStrategy = errors.New("unknown strategy")

// RiskProfile carries the per-strategy risk constants used when deriving
// trade parameters
type RiskProfile struct {
	// StopLossPct is the default stop distance as a fraction of entry
	StopLossPct float64 `json:"stop_loss_pct"`
	// MaxStopPct caps how far volatility can push the stop
	MaxStopPct float64 `json:"max_stop_pct"`
	// TargetMultiplier scales the stop distance into the profit target
	TargetMultiplier float64 `json:"target_multiplier"`
	// MaxPositionPct caps position value as a fraction of capital
	MaxPositionPct float64 `json:"max_position_pct"`
}

// Profile is a named weighting configuration. Profiles are plain data:
// adding a strategy means adding a table entry, not writing code.
// An indicator or category absent from a weight map gets weight 1.
type Profile struct {
	ID               string                               `json:"id"`
	IndicatorWeights map[string]float64                   `json:"indicator_weights"`
	CategoryWeights  map[models.IndicatorCategory]float64 `json:"category_weights"`
	Risk             RiskProfile                          `json:"risk"`
}

// IndicatorWeight returns the weight multiplier for an indicator name
func (p Profile) IndicatorWeight(name string) float64 {
	if w, ok := p.IndicatorWeights[name]; ok {
		return w
	}
	return 1.0
}

// CategoryWeight returns the weight multiplier for a category
func (p Profile) CategoryWeight(cat models.IndicatorCategory) float64 {
	if w, ok := p.CategoryWeights[cat]; ok {
		return w
	}
	return 1.0
}

// BaselineID is the profile used when a strategy id is unrecognized
const BaselineID = "balanced"

// profiles is the shipped strategy table. Each entry differs only in
// weight values and risk constants.
var profiles = map[string]Profile{
	"balanced": {
		ID:               "balanced",
		IndicatorWeights: map[string]float64{},
		CategoryWeights:  map[models.IndicatorCategory]float64{},
		Risk: RiskProfile{
			StopLossPct:      0.03,
			MaxStopPct:       0.06,
			TargetMultiplier: 2.0,
			MaxPositionPct:   0.25,
		},
	},
	"trend_following": {
		ID: "trend_following",
		IndicatorWeights: map[string]float64{
			"sma_cross": 1.5,
			"ema_cross": 1.5,
			"macd":      1.4,
			"adx":       1.6,
			"roc":       1.2,
		},
		CategoryWeights: map[models.IndicatorCategory]float64{
			models.CategoryTrend:      1.5,
			models.CategoryMomentum:   0.9,
			models.CategoryVolatility: 0.7,
			models.CategoryVolume:     0.9,
		},
		Risk: RiskProfile{
			StopLossPct:      0.04,
			MaxStopPct:       0.08,
			TargetMultiplier: 2.5,
			MaxPositionPct:   0.25,
		},
	},
	"momentum": {
		ID: "momentum",
		IndicatorWeights: map[string]float64{
			"rsi":        1.5,
			"stochastic": 1.4,
			"williams_r": 1.3,
			"roc":        1.5,
			"mfi":        1.2,
		},
		CategoryWeights: map[models.IndicatorCategory]float64{
			models.CategoryTrend:      0.8,
			models.CategoryMomentum:   1.6,
			models.CategoryVolatility: 0.8,
			models.CategoryVolume:     1.1,
		},
		Risk: RiskProfile{
			StopLossPct:      0.025,
			MaxStopPct:       0.05,
			TargetMultiplier: 1.8,
			MaxPositionPct:   0.2,
		},
	},
	"conservative": {
		ID: "conservative",
		IndicatorWeights: map[string]float64{
			"bollinger":   1.3,
			"atr_channel": 1.3,
			"adx":         1.2,
			"mfi":         1.2,
		},
		CategoryWeights: map[models.IndicatorCategory]float64{
			models.CategoryTrend:      1.0,
			models.CategoryMomentum:   0.8,
			models.CategoryVolatility: 1.4,
			models.CategoryVolume:     1.2,
		},
		Risk: RiskProfile{
			StopLossPct:      0.02,
			MaxStopPct:       0.04,
			TargetMultiplier: 1.5,
			MaxPositionPct:   0.1,
		},
	},
	"aggressive": {
		ID: "aggressive",
		IndicatorWeights: map[string]float64{
			"ema_cross":  1.3,
			"macd":       1.3,
			"rsi":        1.3,
			"stochastic": 1.2,
		},
		CategoryWeights: map[models.IndicatorCategory]float64{
			models.CategoryTrend:      1.3,
			models.CategoryMomentum:   1.4,
			models.CategoryVolatility: 0.6,
			models.CategoryVolume:     0.9,
		},
		Risk: RiskProfile{
			StopLossPct:      0.05,
			MaxStopPct:       0.1,
			TargetMultiplier: 3.0,
			MaxPositionPct:   0.4,
		},
	},
}

// ProfileFor returns the profile for a strategy id
func ProfileFor(id string) (Profile, error) {
	p, ok := profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, id)
	}
	return p, nil
}

// Baseline returns the equal-weight fallback profile
func Baseline() Profile {
	return profiles[BaselineID]
}

// IDs returns the shipped strategy ids in sorted order
func IDs() []string {
	out := make([]string, 0, len(profiles))
	for id := range profiles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
