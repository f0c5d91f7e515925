package analysis

import (
	"signal-machine/models"
	"signal-machine/strategy"
)

// Verdict thresholds on the 0-100 score scale. Tunable constants; the
// verdict is a pure function of the score under this table.
const (
	StrongBuyThreshold  = 75.0
	BuyThreshold        = 60.0
	SellThreshold       = 40.0
	StrongSellThreshold = 25.0
)

// Aggregate combines indicator votes into a single normalized signal.
//
// Each indicator contributes vote * confidence * weight, where weight is
// the product of its indicator and category multipliers from the profile.
// The weighted sum over the weight total lands in [-1, 1] and is mapped to
// a 0-100 score with 50 neutral. When every indicator was excluded the
// weight total is zero and the result is defined as exactly neutral.
func Aggregate(results []models.IndicatorResult, profile strategy.Profile) models.AggregatedSignal {
	score := weightedScore(results, profile, "")

	categoryScores := make(map[models.IndicatorCategory]float64, len(models.Categories))
	for _, cat := range models.Categories {
		categoryScores[cat] = weightedScore(results, profile, cat)
	}

	return models.AggregatedSignal{
		Score:          score,
		Verdict:        VerdictForScore(score),
		CategoryScores: categoryScores,
	}
}

// weightedScore applies the weighting formula over all results, or only
// those in one category when cat is non-empty. Category scores are
// diagnostic only and never feed back into the overall score.
func weightedScore(results []models.IndicatorResult, profile strategy.Profile, cat models.IndicatorCategory) float64 {
	var voteSum, weightSum float64
	for _, r := range results {
		if cat != "" && r.Category != cat {
			continue
		}
		weight := profile.IndicatorWeight(r.Name) * profile.CategoryWeight(r.Category)
		if weight <= 0 {
			continue
		}
		voteSum += float64(r.Vote) * r.Confidence * weight
		weightSum += weight
	}

	if weightSum == 0 {
		return 50
	}

	normalized := voteSum / weightSum
	score := (normalized + 1) * 50
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// VerdictForScore maps a score to its discrete verdict
func VerdictForScore(score float64) models.Verdict {
	switch {
	case score >= StrongBuyThreshold:
		return models.VerdictStrongBuy
	case score >= BuyThreshold:
		return models.VerdictBuy
	case score <= StrongSellThreshold:
		return models.VerdictStrongSell
	case score <= SellThreshold:
		return models.VerdictSell
	default:
		return models.VerdictNeutral
	}
}
