package models

// Verdict is the discrete recommendation derived from the aggregate score
type Verdict string

const (
	VerdictStrongSell Verdict = "strong_sell"
	VerdictSell       Verdict = "sell"
	VerdictNeutral    Verdict = "neutral"
	VerdictBuy        Verdict = "buy"
	VerdictStrongBuy  Verdict = "strong_buy"
)

// Bullish reports whether the verdict recommends a long position
func (v Verdict) Bullish() bool {
	return v == VerdictBuy || v == VerdictStrongBuy
}

// Bearish reports whether the verdict recommends a short position
func (v Verdict) Bearish() bool {
	return v == VerdictSell || v == VerdictStrongSell
}

// AggregatedSignal is the combined outcome of all indicator votes.
// Score is on a 0-100 scale with 50 neutral. CategoryScores carry the same
// formula restricted per category and are diagnostic only.
type AggregatedSignal struct {
	Score          float64                       `json:"score"`
	Verdict        Verdict                       `json:"verdict"`
	CategoryScores map[IndicatorCategory]float64 `json:"category_scores"`
}
