package services

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/time/rate"

	"signal-machine/models"
	"signal-machine/observability"
)

// barsClient is the slice of the Alpaca market data client the source needs
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaSource fetches daily bars from the Alpaca market data API. Calls go
// through a rate limiter, a circuit breaker, and a retry loop, in that order.
type AlpacaSource struct {
	client  barsClient
	limiter *rate.Limiter
	retry   RetryConfig
}

// NewAlpacaSource creates a live market data source
func NewAlpacaSource(apiKey, apiSecret string, requestsPerSecond float64) *AlpacaSource {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	if requestsPerSecond <= 0 {
		requestsPerSecond = 3
	}

	return &AlpacaSource{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		retry:   DefaultRetryConfig,
	}
}

// Fetch returns up to lookbackDays of daily bars for the symbol, tagged as
// live data. A provider error or an empty bar set both count as unavailable.
func (s *AlpacaSource) Fetch(ctx context.Context, symbol string, lookbackDays int) (*models.PriceSeries, models.DataSource, error) {
	timer := observability.GetMetrics().NewTimer()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("alpaca rate limit wait: %w", err)
	}

	end := time.Now()
	start := end.AddDate(0, 0, -lookbackDays)

	var raw []marketdata.Bar
	err := WithRetry(ctx, s.retry, func() error {
		bars, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() ([]marketdata.Bar, error) {
			return s.client.GetBars(symbol, marketdata.GetBarsRequest{
				TimeFrame: marketdata.OneDay,
				Start:     start,
				End:       end,
			})
		})
		if err != nil {
			return err
		}
		raw = bars
		return nil
	})
	if err != nil {
		timer.ObserveSource(string(models.DataSourceLive), "error")
		return nil, "", fmt.Errorf("alpaca bars for %s: %w", symbol, err)
	}

	if len(raw) == 0 {
		timer.ObserveSource(string(models.DataSourceLive), "empty")
		return nil, "", fmt.Errorf("alpaca bars for %s: %w", symbol, ErrDataUnavailable)
	}

	series := &models.PriceSeries{
		Symbol: symbol,
		Bars:   make([]models.Bar, 0, len(raw)),
	}
	for _, bar := range raw {
		series.Bars = append(series.Bars, models.Bar{
			Timestamp: bar.Timestamp,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    float64(bar.Volume),
		})
	}

	timer.ObserveSource(string(models.DataSourceLive), "success")
	return series, models.DataSourceLive, nil
}
