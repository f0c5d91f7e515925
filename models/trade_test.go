package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTradeParametersRiskAmount(t *testing.T) {
	trade := TradeParameters{
		Entry:    decimal.NewFromFloat(2450.50),
		StopLoss: decimal.NewFromFloat(2400.25),
		Quantity: decimal.NewFromInt(39),
	}

	want := decimal.NewFromFloat(1959.75) // 50.25 * 39
	if !trade.RiskAmount().Equal(want) {
		t.Errorf("RiskAmount() = %s, want %s", trade.RiskAmount(), want)
	}

	// Short bias: stop above entry, same magnitude
	short := TradeParameters{
		Entry:    decimal.NewFromFloat(2400.25),
		StopLoss: decimal.NewFromFloat(2450.50),
		Quantity: decimal.NewFromInt(39),
	}
	if !short.RiskAmount().Equal(want) {
		t.Errorf("short RiskAmount() = %s, want %s", short.RiskAmount(), want)
	}
}

func TestInactiveTradeParameters(t *testing.T) {
	entry := decimal.NewFromFloat(123.45)
	trade := InactiveTradeParameters(entry)

	if trade.Active {
		t.Error("inactive parameters marked active")
	}
	if !trade.Quantity.IsZero() {
		t.Errorf("inactive quantity = %s, want 0", trade.Quantity)
	}
	if !trade.Entry.Equal(entry) {
		t.Errorf("inactive entry = %s, want %s", trade.Entry, entry)
	}
}
