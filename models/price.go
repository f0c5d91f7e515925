package models

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMinBars is the minimum series length required before indicator
// evaluation. Most shipped indicators need a 50-bar warmup (SMA50).
const DefaultMinBars = 50

// ErrInsufficientHistory indicates the price series is shorter than the
// configured minimum bar count.
var ErrInsufficientHistory = errors.New("insufficient price history")

// Bar represents one OHLCV period
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSeries is a time-ordered OHLCV history for one instrument
type PriceSeries struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of bars in the series
func (s *PriceSeries) Len() int {
	return len(s.Bars)
}

// Validate checks ordering, duplicate timestamps, and the minimum bar count
func (s *PriceSeries) Validate(minBars int) error {
	if len(s.Bars) < minBars {
		return fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientHistory, len(s.Bars), minBars)
	}
	for i := 1; i < len(s.Bars); i++ {
		prev, cur := s.Bars[i-1].Timestamp, s.Bars[i].Timestamp
		if cur.Equal(prev) {
			return fmt.Errorf("duplicate timestamp at bar %d: %s", i, cur.Format(time.RFC3339))
		}
		if cur.Before(prev) {
			return fmt.Errorf("bars out of order at index %d: %s before %s",
				i, cur.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes returns the close prices in time order
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high prices in time order
func (s *PriceSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low prices in time order
func (s *PriceSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Volumes returns the volumes in time order
func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// LastClose returns the most recent close price, or 0 for an empty series
func (s *PriceSeries) LastClose() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}
