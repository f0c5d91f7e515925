package app

import (
	"context"

	"github.com/google/uuid"

	"signal-machine/models"
)

// mockRepository implements RepositoryInterface with canned responses
type mockRepository struct {
	jobs    map[uuid.UUID]*models.AnalysisJob
	results map[string][]models.AnalysisResult

	healthErr error
	closed    bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		jobs:    make(map[uuid.UUID]*models.AnalysisJob),
		results: make(map[string][]models.AnalysisResult),
	}
}

func (m *mockRepository) Close() { m.closed = true }

func (m *mockRepository) Health(ctx context.Context) error { return m.healthErr }

func (m *mockRepository) GetJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return job, nil
}

func (m *mockRepository) ListJobs(ctx context.Context, limit int) ([]models.AnalysisJob, error) {
	out := make([]models.AnalysisJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockRepository) ListJobResults(ctx context.Context, jobID uuid.UUID) ([]models.AnalysisResult, []models.FailureRecord, error) {
	return nil, nil, nil
}

func (m *mockRepository) LatestResult(ctx context.Context, symbol string) (*models.AnalysisResult, error) {
	history := m.results[symbol]
	if len(history) == 0 {
		return nil, nil
	}
	return &history[0], nil
}

func (m *mockRepository) ResultHistory(ctx context.Context, symbol string, limit int) ([]models.AnalysisResult, error) {
	history := m.results[symbol]
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// mockOrchestrator implements OrchestratorInterface and records submissions
type mockOrchestrator struct {
	lastSymbols  []string
	lastStrategy string
	lastCapital  float64

	submitJob     *models.AnalysisJob
	submitCreated bool
	submitErr     error
	cancelErr     error
	cancelledID   uuid.UUID
}

func (m *mockOrchestrator) Submit(ctx context.Context, symbols []string, strategyID string, capital float64) (*models.AnalysisJob, bool, error) {
	m.lastSymbols = symbols
	m.lastStrategy = strategyID
	m.lastCapital = capital
	if m.submitErr != nil {
		return nil, false, m.submitErr
	}
	if m.submitJob == nil {
		m.submitJob = models.NewAnalysisJob(symbols, strategyID, capital)
		m.submitCreated = true
	}
	return m.submitJob, m.submitCreated, nil
}

func (m *mockOrchestrator) Cancel(id uuid.UUID) error {
	m.cancelledID = id
	return m.cancelErr
}

func (m *mockOrchestrator) Shutdown(ctx context.Context) error { return nil }
