package models

// IndicatorCategory groups indicators by the aspect of price action they measure
type IndicatorCategory string

const (
	CategoryTrend      IndicatorCategory = "trend"
	CategoryMomentum   IndicatorCategory = "momentum"
	CategoryVolatility IndicatorCategory = "volatility"
	CategoryVolume     IndicatorCategory = "volume"
)

// Categories lists all indicator categories in display order
var Categories = []IndicatorCategory{
	CategoryTrend,
	CategoryMomentum,
	CategoryVolatility,
	CategoryVolume,
}

// Directional votes emitted by indicators
const (
	VoteBearish = -1
	VoteNeutral = 0
	VoteBullish = 1
)

// IndicatorResult is the immutable output of one indicator evaluation.
// Value carries the headline scalar; Values carries any labeled bundle
// (e.g. Bollinger upper/middle/lower) for display.
type IndicatorResult struct {
	Name       string             `json:"name"`
	Category   IndicatorCategory  `json:"category"`
	Value      float64            `json:"value"`
	Values     map[string]float64 `json:"values,omitempty"`
	Vote       int                `json:"vote"`
	Confidence float64            `json:"confidence"`
}
