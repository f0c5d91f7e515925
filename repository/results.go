package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"signal-machine/models"
	"signal-machine/observability"
)

// resultDetail is the JSONB payload stored alongside the queryable columns.
// Indicator breakdowns and the config snapshot are read back whole, never
// filtered in SQL, so a single blob keeps the schema stable as indicators
// are added.
type resultDetail struct {
	Indicators     []models.IndicatorResult             `json:"indicators"`
	Config         models.ConfigSnapshot                `json:"config"`
	CategoryScores map[models.IndicatorCategory]float64 `json:"category_scores"`
}

// AppendResult stores one successful per-instrument analysis
func (r *Repository) AppendResult(ctx context.Context, result *models.AnalysisResult) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "analysis_results")

	detailJSON, err := json.Marshal(resultDetail{
		Indicators:     result.Indicators,
		Config:         result.Config,
		CategoryScores: result.Signal.CategoryScores,
	})
	if err != nil {
		metrics.RecordDBError("insert", "analysis_results")
		return fmt.Errorf("failed to marshal result detail: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO analysis_results (id, job_id, symbol, outcome, score, verdict,
			entry, stop_loss, target, quantity, risk_reward, trade_active,
			data_source, strategy_id, detail, created_at)
		VALUES ($1, $2, $3, 'success', $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, result.ID, result.JobID, result.Symbol, result.Signal.Score, result.Signal.Verdict,
		result.Trade.Entry, result.Trade.StopLoss, result.Trade.Target, result.Trade.Quantity,
		result.Trade.RiskRewardRatio, result.Trade.Active,
		result.DataSource, result.StrategyID, detailJSON, result.CreatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "analysis_results")
		return fmt.Errorf("failed to store result: %w", err)
	}

	return nil
}

// AppendFailure stores one per-instrument failure for a job
func (r *Repository) AppendFailure(ctx context.Context, jobID uuid.UUID, failure *models.FailureRecord) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "analysis_results")

	_, err := r.db.Exec(ctx, `
		INSERT INTO analysis_results (id, job_id, symbol, outcome, failure_kind, failure_reason, created_at)
		VALUES ($1, $2, $3, 'failure', $4, $5, $6)
	`, uuid.New(), jobID, failure.Symbol, failure.Kind, failure.Reason, failure.OccurredAt)

	if err != nil {
		metrics.RecordDBError("insert", "analysis_results")
		return fmt.Errorf("failed to store failure: %w", err)
	}

	return nil
}

// ListJobResults returns all stored outcomes for a job: successful analyses
// and per-instrument failures, in insertion order
func (r *Repository) ListJobResults(ctx context.Context, jobID uuid.UUID) ([]models.AnalysisResult, []models.FailureRecord, error) {
	if err := r.checkDB(); err != nil {
		return nil, nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "analysis_results")

	rows, err := r.db.Query(ctx, `
		SELECT id, job_id, symbol, outcome, score, verdict,
			   entry, stop_loss, target, quantity, risk_reward, trade_active,
			   data_source, strategy_id, failure_kind, failure_reason, detail, created_at
		FROM analysis_results
		WHERE job_id = $1
		ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		metrics.RecordDBError("select", "analysis_results")
		return nil, nil, fmt.Errorf("failed to query job results: %w", err)
	}
	defer rows.Close()

	var results []models.AnalysisResult
	var failures []models.FailureRecord
	for rows.Next() {
		result, failure, err := scanResult(rows)
		if err != nil {
			metrics.RecordDBError("select", "analysis_results")
			return nil, nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if failure != nil {
			failures = append(failures, *failure)
		} else {
			results = append(results, *result)
		}
	}

	return results, failures, nil
}

// LatestResult returns the most recent successful analysis for a symbol, or
// nil when none exists
func (r *Repository) LatestResult(ctx context.Context, symbol string) (*models.AnalysisResult, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		SELECT id, job_id, symbol, outcome, score, verdict,
			   entry, stop_loss, target, quantity, risk_reward, trade_active,
			   data_source, strategy_id, failure_kind, failure_reason, detail, created_at
		FROM analysis_results
		WHERE symbol = $1 AND outcome = 'success'
		ORDER BY created_at DESC
		LIMIT 1
	`, symbol)

	result, _, err := scanResult(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest result: %w", err)
	}

	return result, nil
}

// ResultHistory returns past successful analyses for a symbol, newest first.
// Results are immutable, so the history is the full audit trail.
func (r *Repository) ResultHistory(ctx context.Context, symbol string, limit int) ([]models.AnalysisResult, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "analysis_results")

	rows, err := r.db.Query(ctx, `
		SELECT id, job_id, symbol, outcome, score, verdict,
			   entry, stop_loss, target, quantity, risk_reward, trade_active,
			   data_source, strategy_id, failure_kind, failure_reason, detail, created_at
		FROM analysis_results
		WHERE symbol = $1 AND outcome = 'success'
		ORDER BY created_at DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		metrics.RecordDBError("select", "analysis_results")
		return nil, fmt.Errorf("failed to query result history: %w", err)
	}
	defer rows.Close()

	var results []models.AnalysisResult
	for rows.Next() {
		result, _, err := scanResult(rows)
		if err != nil {
			metrics.RecordDBError("select", "analysis_results")
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, *result)
	}

	return results, nil
}

// scanResult scans one analysis_results row. Failure rows come back as a
// FailureRecord with a nil result; success rows the other way around.
func scanResult(row pgx.Row) (*models.AnalysisResult, *models.FailureRecord, error) {
	var result models.AnalysisResult
	var outcome string
	var score, riskReward *float64
	var verdict, dataSource, strategyID, failureKind, failureReason *string
	var entry, stopLoss, target, quantity decimal.NullDecimal
	var tradeActive *bool
	var detailJSON []byte

	err := row.Scan(&result.ID, &result.JobID, &result.Symbol, &outcome, &score, &verdict,
		&entry, &stopLoss, &target, &quantity,
		&riskReward, &tradeActive,
		&dataSource, &strategyID, &failureKind, &failureReason, &detailJSON, &result.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	if outcome == "failure" {
		failure := &models.FailureRecord{
			Symbol:     result.Symbol,
			OccurredAt: result.CreatedAt,
		}
		if failureKind != nil {
			failure.Kind = models.FailureKind(*failureKind)
		}
		if failureReason != nil {
			failure.Reason = *failureReason
		}
		return nil, failure, nil
	}

	result.Trade.Entry = entry.Decimal
	result.Trade.StopLoss = stopLoss.Decimal
	result.Trade.Target = target.Decimal
	result.Trade.Quantity = quantity.Decimal
	if score != nil {
		result.Signal.Score = *score
	}
	if verdict != nil {
		result.Signal.Verdict = models.Verdict(*verdict)
	}
	if riskReward != nil {
		result.Trade.RiskRewardRatio = *riskReward
	}
	if tradeActive != nil {
		result.Trade.Active = *tradeActive
	}
	if dataSource != nil {
		result.DataSource = models.DataSource(*dataSource)
	}
	if strategyID != nil {
		result.StrategyID = *strategyID
	}

	if len(detailJSON) > 0 {
		var detail resultDetail
		if err := json.Unmarshal(detailJSON, &detail); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal result detail: %w", err)
		}
		result.Indicators = detail.Indicators
		result.Config = detail.Config
		result.Signal.CategoryScores = detail.CategoryScores
	}

	return &result, nil, nil
}
