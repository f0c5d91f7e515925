package indicators

import (
	"fmt"

	"signal-machine/models"
)

// Value is the raw output of an indicator calculation: a headline scalar
// plus an optional labeled bundle (band edges, signal lines) for display.
type Value struct {
	Scalar float64
	Bundle map[string]float64
}

// Indicator is the three-step protocol every technical indicator follows.
// The engine always calls Calculate, Vote, Confidence in that order, so a
// new indicator only has to implement these and register itself.
type Indicator interface {
	Name() string
	Category() models.IndicatorCategory

	// Calculate computes the raw value from the price series
	Calculate(s *models.PriceSeries) (Value, error)

	// Vote converts the value into a directional vote: -1, 0, or +1
	Vote(v Value, s *models.PriceSeries) int

	// Confidence scores how decisive the value is, in [0, 1]
	Confidence(v Value, s *models.PriceSeries) float64
}

// registry holds the shipped indicator catalog keyed by name
var registry = map[string]Indicator{}

// register adds an indicator to the catalog. Called from init; duplicate
// names are a programming error.
func register(ind Indicator) {
	if _, exists := registry[ind.Name()]; exists {
		panic(fmt.Sprintf("indicator %q registered twice", ind.Name()))
	}
	registry[ind.Name()] = ind
}

// Registered returns the indicator with the given name
func Registered(name string) (Indicator, bool) {
	ind, ok := registry[name]
	return ind, ok
}

// Names returns all registered indicator names
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}
