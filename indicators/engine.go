package indicators

import (
	"fmt"
	"math"
	"sort"

	"signal-machine/models"
	"signal-machine/observability"
)

// Engine evaluates the indicator catalog against a price series. Indicators
// that error or produce NaN are excluded rather than failing the whole
// evaluation; partial results are valid.
type Engine struct {
	minBars    int
	indicators []Indicator
}

// NewEngine creates an engine over the full registered catalog
func NewEngine(minBars int) *Engine {
	if minBars <= 0 {
		minBars = models.DefaultMinBars
	}

	names := Names()
	sort.Strings(names)
	inds := make([]Indicator, 0, len(names))
	for _, name := range names {
		ind, _ := Registered(name)
		inds = append(inds, ind)
	}

	return &Engine{minBars: minBars, indicators: inds}
}

// MinBars returns the minimum series length the engine requires
func (e *Engine) MinBars() int {
	return e.minBars
}

// Evaluate runs calculate/vote/confidence for every indicator. A non-empty
// subset restricts evaluation to the named indicators. The only hard
// failure is a series shorter than the minimum bar count.
func (e *Engine) Evaluate(s *models.PriceSeries, subset []string) ([]models.IndicatorResult, error) {
	if err := s.Validate(e.minBars); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", s.Symbol, err)
	}

	var wanted map[string]bool
	if len(subset) > 0 {
		wanted = make(map[string]bool, len(subset))
		for _, name := range subset {
			wanted[name] = true
		}
	}

	results := make([]models.IndicatorResult, 0, len(e.indicators))
	for _, ind := range e.indicators {
		if wanted != nil && !wanted[ind.Name()] {
			continue
		}

		value, err := ind.Calculate(s)
		if err != nil || math.IsNaN(value.Scalar) || math.IsInf(value.Scalar, 0) {
			observability.GetMetrics().RecordIndicatorExclusion(ind.Name())
			observability.Debug("indicator excluded from aggregation",
				"indicator", ind.Name(),
				"symbol", s.Symbol,
				"error", err)
			continue
		}

		results = append(results, models.IndicatorResult{
			Name:       ind.Name(),
			Category:   ind.Category(),
			Value:      value.Scalar,
			Values:     value.Bundle,
			Vote:       ind.Vote(value, s),
			Confidence: clamp01(ind.Confidence(value, s)),
		})
	}

	return results, nil
}
