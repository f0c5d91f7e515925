package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"signal-machine/config"
	"signal-machine/models"
	"signal-machine/observability"
)

// ErrJobNotFound indicates a lookup for a job id that does not exist
var ErrJobNotFound = errors.New("job not found")

// ErrResultNotFound indicates no stored analysis exists for a symbol
var ErrResultNotFound = errors.New("no analysis result for symbol")

// ErrInvalidSubmission indicates a batch request the caller must correct
var ErrInvalidSubmission = errors.New("invalid submission")

// RepositoryInterface defines the repository operations needed by App
type RepositoryInterface interface {
	Close()
	Health(ctx context.Context) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error)
	ListJobs(ctx context.Context, limit int) ([]models.AnalysisJob, error)
	ListJobResults(ctx context.Context, jobID uuid.UUID) ([]models.AnalysisResult, []models.FailureRecord, error)
	LatestResult(ctx context.Context, symbol string) (*models.AnalysisResult, error)
	ResultHistory(ctx context.Context, symbol string, limit int) ([]models.AnalysisResult, error)
}

// OrchestratorInterface defines the job lifecycle operations needed by App
type OrchestratorInterface interface {
	Submit(ctx context.Context, symbols []string, strategyID string, capital float64) (*models.AnalysisJob, bool, error)
	Cancel(id uuid.UUID) error
	Shutdown(ctx context.Context) error
}

// JobStatusView is a job together with its stored per-instrument outcomes
type JobStatusView struct {
	Job      *models.AnalysisJob     `json:"job"`
	Results  []models.AnalysisResult `json:"results"`
	Failures []models.FailureRecord  `json:"failures"`
}

// App struct holds application dependencies using interfaces for testability
type App struct {
	cfg          *config.Config
	repo         RepositoryInterface
	orchestrator OrchestratorInterface
}

// New creates a new App application struct
func New(cfg *config.Config, repo RepositoryInterface, orchestrator OrchestratorInterface) *App {
	return &App{
		cfg:          cfg,
		repo:         repo,
		orchestrator: orchestrator,
	}
}

// Shutdown is called when the app is closing
func (a *App) Shutdown(ctx context.Context) {
	if a.orchestrator != nil {
		if err := a.orchestrator.Shutdown(ctx); err != nil {
			observability.Warn("orchestrator shutdown incomplete", "error", err)
		}
	}
	if a.repo != nil {
		a.repo.Close()
	}
}

// Repo returns the repository interface for API handlers
func (a *App) Repo() RepositoryInterface {
	return a.repo
}

// SubmitBatch submits a batch analysis job over the given symbols. Empty
// strategy and zero capital fall back to configured defaults. The returned
// bool is false when the submission matched an existing non-terminal job.
func (a *App) SubmitBatch(ctx context.Context, symbols []string, strategyID string, capital float64) (*models.AnalysisJob, bool, error) {
	if a.orchestrator == nil {
		return nil, false, fmt.Errorf("orchestrator not initialized")
	}

	if strategyID == "" {
		strategyID = a.cfg.Analysis.DefaultStrategy
	}
	if capital <= 0 {
		capital = a.cfg.Analysis.DefaultCapital
	}

	normalized := models.NormalizeSymbols(symbols)
	if len(normalized) == 0 {
		return nil, false, fmt.Errorf("%w: no valid symbols in request", ErrInvalidSubmission)
	}
	if len(normalized) > a.cfg.Analysis.MaxSymbolsPerJob {
		return nil, false, fmt.Errorf("%w: too many symbols: %d exceeds limit of %d",
			ErrInvalidSubmission, len(normalized), a.cfg.Analysis.MaxSymbolsPerJob)
	}

	return a.orchestrator.Submit(ctx, normalized, strategyID, capital)
}

// JobStatus returns a job with its results and failures so far
func (a *App) JobStatus(ctx context.Context, id string) (*JobStatusView, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	jobID, err := ParseUUID(id)
	if err != nil {
		return nil, err
	}

	job, err := a.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	results, failures, err := a.repo.ListJobResults(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &JobStatusView{Job: job, Results: results, Failures: failures}, nil
}

// CancelJob requests cancellation of a running job
func (a *App) CancelJob(id string) error {
	if a.orchestrator == nil {
		return fmt.Errorf("orchestrator not initialized")
	}

	jobID, err := ParseUUID(id)
	if err != nil {
		return err
	}

	return a.orchestrator.Cancel(jobID)
}

// ListJobs returns recent jobs
func (a *App) ListJobs(ctx context.Context, limit int) ([]models.AnalysisJob, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return a.repo.ListJobs(ctx, limit)
}

// LatestResult returns the most recent analysis for a symbol
func (a *App) LatestResult(ctx context.Context, symbol string) (*models.AnalysisResult, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	result, err := a.repo.LatestResult(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrResultNotFound
	}
	return result, nil
}

// ResultHistory returns past analyses for a symbol, newest first
func (a *App) ResultHistory(ctx context.Context, symbol string, limit int) ([]models.AnalysisResult, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return a.repo.ResultHistory(ctx, symbol, limit)
}

// ParseUUID parses a string UUID
func ParseUUID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid UUID: %w", err)
	}
	return parsed, nil
}
