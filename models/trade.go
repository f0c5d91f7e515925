package models

import "github.com/shopspring/decimal"

// TradeParameters are the derived entry/exit levels and sizing for a trade.
// A neutral verdict or zero stop distance yields an inactive set: levels may
// be populated for display but Quantity is zero and Active is false.
type TradeParameters struct {
	Entry           decimal.Decimal `json:"entry"`
	StopLoss        decimal.Decimal `json:"stop_loss"`
	Target          decimal.Decimal `json:"target"`
	Quantity        decimal.Decimal `json:"quantity"`
	RiskRewardRatio float64         `json:"risk_reward_ratio"`
	Active          bool            `json:"active"`
}

// RiskAmount returns |entry - stop| * quantity, the capital at risk if the
// stop is hit
func (t TradeParameters) RiskAmount() decimal.Decimal {
	return t.Entry.Sub(t.StopLoss).Abs().Mul(t.Quantity)
}

// Inactive returns a zero-quantity parameter set that still records the
// entry price for reference
func InactiveTradeParameters(entry decimal.Decimal) TradeParameters {
	return TradeParameters{
		Entry:    entry,
		Quantity: decimal.Zero,
		Active:   false,
	}
}
