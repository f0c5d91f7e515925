package services

import (
	"context"
	"errors"
	"fmt"

	"signal-machine/models"
	"signal-machine/observability"
)

// ErrDataUnavailable indicates a source could not produce any price history
// for the symbol
var ErrDataUnavailable = errors.New("market data unavailable")

// MarketDataSource fetches daily OHLCV history for one instrument. The
// returned DataSource tag records which tier actually served the data.
type MarketDataSource interface {
	Fetch(ctx context.Context, symbol string, lookbackDays int) (*models.PriceSeries, models.DataSource, error)
}

// CompositeSource tries the live source first and falls back to the demo
// source when the live tier is unavailable. The fallback tag on the result
// is the only way downstream consumers learn the data is lower-trust, so it
// must be preserved.
type CompositeSource struct {
	live     MarketDataSource
	fallback MarketDataSource
}

// NewCompositeSource builds a composite over a live and a fallback tier.
// Either may be nil; a nil live tier routes everything to the fallback.
func NewCompositeSource(live, fallback MarketDataSource) *CompositeSource {
	return &CompositeSource{live: live, fallback: fallback}
}

// Fetch returns the first tier's data when available, otherwise the
// fallback's, tagged accordingly.
func (c *CompositeSource) Fetch(ctx context.Context, symbol string, lookbackDays int) (*models.PriceSeries, models.DataSource, error) {
	var liveErr error
	if c.live != nil {
		series, tag, err := c.live.Fetch(ctx, symbol, lookbackDays)
		if err == nil && series.Len() > 0 {
			return series, tag, nil
		}
		liveErr = err
		if ctx.Err() != nil {
			return nil, "", fmt.Errorf("fetch %s: %w", symbol, ctx.Err())
		}
		observability.Warn("live market data unavailable, using fallback",
			"symbol", symbol,
			"error", liveErr)
	}

	if c.fallback == nil {
		if liveErr != nil {
			return nil, "", fmt.Errorf("fetch %s: %w", symbol, liveErr)
		}
		return nil, "", fmt.Errorf("fetch %s: %w", symbol, ErrDataUnavailable)
	}

	series, tag, err := c.fallback.Fetch(ctx, symbol, lookbackDays)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: fallback: %w", symbol, err)
	}

	observability.GetMetrics().RecordFallback()
	return series, tag, nil
}
