package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"signal-machine/models"
	"signal-machine/observability"
)

// CreateJob inserts a queued job unless a non-terminal job already covers
// the same symbol set. The partial unique index on symbol_hash makes the
// duplicate check and the insert a single atomic statement: on conflict the
// existing job is returned with created=false.
func (r *Repository) CreateJob(ctx context.Context, job *models.AnalysisJob) (*models.AnalysisJob, bool, error) {
	if err := r.checkDB(); err != nil {
		return nil, false, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "analysis_jobs")

	symbolsJSON, err := json.Marshal(job.Symbols)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal symbols: %w", err)
	}

	// Two attempts cover the race where the conflicting job reaches a
	// terminal state between our insert and the lookup.
	for attempt := 0; attempt < 2; attempt++ {
		tag, err := r.db.Exec(ctx, `
			INSERT INTO analysis_jobs (id, status, symbols, symbol_hash, strategy_id, capital, total, completed, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
			ON CONFLICT (symbol_hash) WHERE status IN ('queued', 'processing') DO NOTHING
		`, job.ID, job.Status, symbolsJSON, job.SymbolHash, job.StrategyID, job.Capital, job.Total, job.CreatedAt)
		if err != nil {
			metrics.RecordDBError("insert", "analysis_jobs")
			return nil, false, fmt.Errorf("failed to create job: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return job, true, nil
		}

		existing, err := r.activeJobByHash(ctx, job.SymbolHash)
		if err != nil {
			metrics.RecordDBError("select", "analysis_jobs")
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	return nil, false, fmt.Errorf("failed to create job %s: concurrent submissions", job.ID)
}

// GetJob returns a job by id, or nil when it does not exist
func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		SELECT id, status, symbols, symbol_hash, strategy_id, capital, total, completed,
			   error, created_at, started_at, completed_at
		FROM analysis_jobs WHERE id = $1
	`, id)

	job, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job: %w", err)
	}

	return job, nil
}

// UpdateJobStatus transitions a job's status. Terminal states are sticky:
// the update silently does nothing once the job is completed, failed, or
// cancelled.
func (r *Repository) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus, errMsg string) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "analysis_jobs")

	_, err := r.db.Exec(ctx, `
		UPDATE analysis_jobs
		SET status = $2,
			error = NULLIF($3, ''),
			started_at = CASE WHEN $2 = 'processing' AND started_at IS NULL THEN NOW() ELSE started_at END,
			completed_at = CASE WHEN $2 IN ('completed', 'failed', 'cancelled') THEN NOW() ELSE completed_at END
		WHERE id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
	`, id, status, errMsg)

	if err != nil {
		metrics.RecordDBError("update", "analysis_jobs")
		return fmt.Errorf("failed to update job status: %w", err)
	}

	return nil
}

// UpdateJobProgress sets the completed counter. GREATEST makes the counter
// monotonic even if updates land out of order.
func (r *Repository) UpdateJobProgress(ctx context.Context, id uuid.UUID, completed int) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "analysis_jobs")

	_, err := r.db.Exec(ctx, `
		UPDATE analysis_jobs
		SET completed = GREATEST(completed, LEAST($2, total))
		WHERE id = $1
	`, id, completed)

	if err != nil {
		metrics.RecordDBError("update", "analysis_jobs")
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	return nil
}

// ListJobs returns recent jobs, newest first
func (r *Repository) ListJobs(ctx context.Context, limit int) ([]models.AnalysisJob, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, status, symbols, symbol_hash, strategy_id, capital, total, completed,
			   error, created_at, started_at, completed_at
		FROM analysis_jobs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.AnalysisJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	return jobs, nil
}

// activeJobByHash finds the non-terminal job covering a symbol hash
func (r *Repository) activeJobByHash(ctx context.Context, hash string) (*models.AnalysisJob, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, status, symbols, symbol_hash, strategy_id, capital, total, completed,
			   error, created_at, started_at, completed_at
		FROM analysis_jobs
		WHERE symbol_hash = $1 AND status IN ('queued', 'processing')
	`, hash)

	job, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active job: %w", err)
	}

	return job, nil
}

// scanJob scans a job row into an AnalysisJob struct
func scanJob(row pgx.Row) (*models.AnalysisJob, error) {
	var job models.AnalysisJob
	var symbolsJSON []byte
	var errMsg *string

	err := row.Scan(&job.ID, &job.Status, &symbolsJSON, &job.SymbolHash, &job.StrategyID,
		&job.Capital, &job.Total, &job.Completed,
		&errMsg, &job.CreatedAt, &job.StartedAt, &job.CompletedAt)
	if err != nil {
		return nil, err
	}

	if errMsg != nil {
		job.Error = *errMsg
	}
	if len(symbolsJSON) > 0 {
		if err := json.Unmarshal(symbolsJSON, &job.Symbols); err != nil {
			return nil, fmt.Errorf("failed to unmarshal symbols: %w", err)
		}
	}

	return &job, nil
}
