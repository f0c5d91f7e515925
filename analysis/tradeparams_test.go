package analysis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signal-machine/models"
	"signal-machine/strategy"
)

// rangeSeries builds n bars closing at close with a fixed high-low range
func rangeSeries(n int, close, spread float64) *models.PriceSeries {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      close,
			High:      close + spread,
			Low:       close - spread,
			Close:     close,
			Volume:    10000,
		}
	}
	return &models.PriceSeries{Symbol: "TEST", Bars: bars}
}

func bullishSignal() models.AggregatedSignal {
	return models.AggregatedSignal{Score: 80, Verdict: models.VerdictStrongBuy}
}

func bearishSignal() models.AggregatedSignal {
	return models.AggregatedSignal{Score: 20, Verdict: models.VerdictStrongSell}
}

func TestPositionSize(t *testing.T) {
	tests := []struct {
		name           string
		entry          float64
		stop           float64
		capital        float64
		riskFraction   float64
		maxPositionPct float64
		want           int64
	}{
		{
			// 2% of 100000 = 2000 risk budget over a 50.25 stop distance
			// floors to 39 whole shares
			name:           "documented sizing example",
			entry:          2450.50,
			stop:           2400.25,
			capital:        100000,
			riskFraction:   0.02,
			maxPositionPct: 1.0,
			want:           39,
		},
		{
			name:           "exact division",
			entry:          100,
			stop:           90,
			capital:        100000,
			riskFraction:   0.02,
			maxPositionPct: 1.0,
			want:           200,
		},
		{
			name:           "capped by max position value",
			entry:          100,
			stop:           99,
			capital:        100000,
			riskFraction:   0.02,
			maxPositionPct: 0.25,
			want:           250, // risk allows 2000 shares, value cap allows 250
		},
		{
			name:           "zero capital",
			entry:          100,
			stop:           95,
			capital:        0,
			riskFraction:   0.02,
			maxPositionPct: 1.0,
			want:           0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := decimal.NewFromFloat(tt.entry)
			distance := entry.Sub(decimal.NewFromFloat(tt.stop)).Abs()
			got := positionSize(entry, distance, tt.capital, tt.riskFraction, tt.maxPositionPct)
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("positionSize() = %s, want %d", got, tt.want)
			}
		})
	}

	// Zero stop distance must never divide
	if got := positionSize(decimal.NewFromInt(100), decimal.Zero, 100000, 0.02, 1.0); !got.IsZero() {
		t.Errorf("positionSize with zero distance = %s, want 0", got)
	}
}

func TestDeriveTradeParametersLong(t *testing.T) {
	series := rangeSeries(80, 100, 1) // ATR = 2
	profile := strategy.Baseline()    // stop 3%, max 6%, target 2x, position cap 25%

	trade := DeriveTradeParameters(series, bullishSignal(), profile, 100000, 0.02)

	if !trade.Active {
		t.Fatal("long trade should be active")
	}
	if !trade.Entry.Equal(decimal.NewFromInt(100)) {
		t.Errorf("entry = %s, want 100", trade.Entry)
	}
	// Volatility distance 2*ATR = 4 sits inside the 3..6 band
	if !trade.StopLoss.Equal(decimal.NewFromInt(96)) {
		t.Errorf("stop = %s, want 96", trade.StopLoss)
	}
	if !trade.Target.Equal(decimal.NewFromInt(108)) {
		t.Errorf("target = %s, want 108", trade.Target)
	}
	// Risk budget 2000 / distance 4 = 500, value-capped to 250
	if !trade.Quantity.Equal(decimal.NewFromInt(250)) {
		t.Errorf("quantity = %s, want 250", trade.Quantity)
	}
	if trade.RiskRewardRatio != 2 {
		t.Errorf("risk reward = %v, want 2", trade.RiskRewardRatio)
	}
	if trade.StopLoss.GreaterThanOrEqual(trade.Entry) || trade.Entry.GreaterThanOrEqual(trade.Target) {
		t.Error("long ordering violated: want stop < entry < target")
	}
}

func TestDeriveTradeParametersShort(t *testing.T) {
	series := rangeSeries(80, 100, 1)
	profile := strategy.Baseline()

	trade := DeriveTradeParameters(series, bearishSignal(), profile, 100000, 0.02)

	if !trade.Active {
		t.Fatal("short trade should be active")
	}
	if !trade.StopLoss.Equal(decimal.NewFromInt(104)) {
		t.Errorf("stop = %s, want 104", trade.StopLoss)
	}
	if !trade.Target.Equal(decimal.NewFromInt(92)) {
		t.Errorf("target = %s, want 92", trade.Target)
	}
	if trade.Target.GreaterThanOrEqual(trade.Entry) || trade.Entry.GreaterThanOrEqual(trade.StopLoss) {
		t.Error("short ordering violated: want target < entry < stop")
	}
}

func TestDeriveTradeParametersNeutral(t *testing.T) {
	series := rangeSeries(80, 100, 1)
	neutral := models.AggregatedSignal{Score: 50, Verdict: models.VerdictNeutral}

	trade := DeriveTradeParameters(series, neutral, strategy.Baseline(), 100000, 0.02)

	if trade.Active {
		t.Error("neutral verdict produced an active trade")
	}
	if !trade.Quantity.IsZero() {
		t.Errorf("neutral quantity = %s, want 0", trade.Quantity)
	}
	if !trade.Entry.Equal(decimal.NewFromInt(100)) {
		t.Errorf("neutral entry = %s, want 100 for reference", trade.Entry)
	}
}

func TestDeriveTradeParametersStopBand(t *testing.T) {
	profile := strategy.Baseline()

	// Flat series: zero ATR floors the stop at the 3% default
	flat := rangeSeries(80, 100, 0)
	trade := DeriveTradeParameters(flat, bullishSignal(), profile, 100000, 0.02)
	if !trade.StopLoss.Equal(decimal.NewFromInt(97)) {
		t.Errorf("flat series stop = %s, want 97 (default stop pct)", trade.StopLoss)
	}

	// Violent series: huge ATR caps the stop at the 6% maximum
	wild := rangeSeries(80, 100, 20)
	trade = DeriveTradeParameters(wild, bullishSignal(), profile, 100000, 0.02)
	if !trade.StopLoss.Equal(decimal.NewFromInt(94)) {
		t.Errorf("volatile series stop = %s, want 94 (max stop pct)", trade.StopLoss)
	}
}

func TestDeriveTradeParametersRiskInvariant(t *testing.T) {
	capitals := []float64{5000, 50000, 250000}
	fractions := []float64{0.01, 0.02, 0.05}
	series := rangeSeries(80, 73.40, 1.7)

	for _, capital := range capitals {
		for _, fraction := range fractions {
			trade := DeriveTradeParameters(series, bullishSignal(), strategy.Baseline(), capital, fraction)
			budget := decimal.NewFromFloat(capital * fraction)
			if trade.RiskAmount().GreaterThan(budget) {
				t.Errorf("capital=%v fraction=%v: risk %s exceeds budget %s",
					capital, fraction, trade.RiskAmount(), budget)
			}
		}
	}
}

func TestDeriveTradeParametersZeroDistance(t *testing.T) {
	series := rangeSeries(80, 100, 0)
	profile := strategy.Profile{ID: "degenerate"} // all risk constants zero

	trade := DeriveTradeParameters(series, bullishSignal(), profile, 100000, 0.02)

	if trade.Active {
		t.Error("zero stop distance produced an active trade")
	}
	if !trade.Quantity.IsZero() {
		t.Errorf("zero distance quantity = %s, want 0", trade.Quantity)
	}
}
