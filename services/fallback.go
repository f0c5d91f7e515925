package services

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"signal-machine/models"
	"signal-machine/observability"
)

// FallbackSource synthesizes demo price history when no live provider is
// reachable. The walk is seeded from the symbol, so the same symbol always
// produces the same series and repeated analyses stay comparable. Data from
// this source is always tagged fallback.
type FallbackSource struct{}

// NewFallbackSource creates the demo data source
func NewFallbackSource() *FallbackSource {
	return &FallbackSource{}
}

// Fetch generates lookbackDays of daily bars ending today
func (s *FallbackSource) Fetch(ctx context.Context, symbol string, lookbackDays int) (*models.PriceSeries, models.DataSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if lookbackDays <= 0 {
		lookbackDays = 1
	}

	timer := observability.GetMetrics().NewTimer()

	rng := rand.New(rand.NewSource(int64(symbolSeed(symbol))))
	price := 20 + float64(symbolSeed(symbol)%480)
	drift := (rng.Float64() - 0.5) * 0.002

	day := time.Now().UTC().Truncate(24 * time.Hour)
	start := day.AddDate(0, 0, -(lookbackDays - 1))

	bars := make([]models.Bar, 0, lookbackDays)
	for i := 0; i < lookbackDays; i++ {
		ret := drift + rng.NormFloat64()*0.015
		open := price
		close := price * (1 + ret)

		high := math.Max(open, close) * (1 + rng.Float64()*0.01)
		low := math.Min(open, close) * (1 - rng.Float64()*0.01)
		volume := 100000 + rng.Float64()*900000

		bars = append(bars, models.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
		})
		price = close
	}

	timer.ObserveSource(string(models.DataSourceFallback), "success")
	return &models.PriceSeries{Symbol: symbol, Bars: bars}, models.DataSourceFallback, nil
}

func symbolSeed(symbol string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return h.Sum32()
}
