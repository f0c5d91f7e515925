package models

import (
	"time"

	"github.com/google/uuid"
)

// DataSource tags where the price history came from. Fallback data is
// lower-trust and the tag must survive all the way to the stored result.
type DataSource string

const (
	DataSourceLive     DataSource = "live"
	DataSourceFallback DataSource = "fallback"
)

// AnalysisResult is the packaged outcome of one pipeline run for one
// instrument. It is immutable once created; re-analysis produces a new
// record and history is preserved.
type AnalysisResult struct {
	ID         uuid.UUID         `json:"id"`
	JobID      uuid.UUID         `json:"job_id"`
	Symbol     string            `json:"symbol"`
	Signal     AggregatedSignal  `json:"signal"`
	Trade      TradeParameters   `json:"trade"`
	Indicators []IndicatorResult `json:"indicators"`
	DataSource DataSource        `json:"data_source"`
	StrategyID string            `json:"strategy_id"`
	Config     ConfigSnapshot    `json:"config"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ConfigSnapshot records the configuration the analysis ran under, so a
// stored result stays interpretable after defaults change.
type ConfigSnapshot struct {
	StrategyID       string             `json:"strategy_id"`
	IndicatorWeights map[string]float64 `json:"indicator_weights"`
	CategoryWeights  map[string]float64 `json:"category_weights"`
	RiskFraction     float64            `json:"risk_fraction"`
	Capital          float64            `json:"capital"`
	LookbackDays     int                `json:"lookback_days"`
	MinBars          int                `json:"min_bars"`
}

// FailureKind classifies per-instrument failures for status reporting
type FailureKind string

const (
	FailureDataUnavailable     FailureKind = "data_unavailable"
	FailureInsufficientHistory FailureKind = "insufficient_history"
	FailureTimeout             FailureKind = "timeout"
	FailureInternal            FailureKind = "internal"
)

// FailureRecord captures a per-instrument failure inside a job. Failures sit
// alongside successful results and do not abort the job.
type FailureRecord struct {
	Symbol     string      `json:"symbol"`
	Kind       FailureKind `json:"kind"`
	Reason     string      `json:"reason"`
	OccurredAt time.Time   `json:"occurred_at"`
}
