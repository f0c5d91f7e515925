package analysis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"signal-machine/models"
)

// memStore is an in-memory JobStore with the same dedup, terminal-state,
// and context semantics as the Postgres repository: every method fails on a
// cancelled context the way pgx does.
type memStore struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*models.AnalysisJob
	results  map[uuid.UUID][]models.AnalysisResult
	failures map[uuid.UUID][]models.FailureRecord
	progress map[uuid.UUID][]int

	failAppendResult bool
	failProcessing   bool
}

func newMemStore() *memStore {
	return &memStore{
		jobs:     make(map[uuid.UUID]*models.AnalysisJob),
		results:  make(map[uuid.UUID][]models.AnalysisResult),
		failures: make(map[uuid.UUID][]models.FailureRecord),
		progress: make(map[uuid.UUID][]int),
	}
}

func (s *memStore) CreateJob(ctx context.Context, job *models.AnalysisJob) (*models.AnalysisJob, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.jobs {
		if existing.SymbolHash == job.SymbolHash && !existing.Status.Terminal() {
			copy := *existing
			return &copy, false, nil
		}
	}

	stored := *job
	s.jobs[job.ID] = &stored
	copy := stored
	return &copy, true, nil
}

func (s *memStore) GetJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	copy := *job
	return &copy, nil
}

func (s *memStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failProcessing && status == models.JobStatusProcessing {
		return fmt.Errorf("store unavailable")
	}

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if job.Status.Terminal() {
		return nil
	}

	job.Status = status
	job.Error = errMsg
	now := time.Now()
	if status == models.JobStatusProcessing && job.StartedAt == nil {
		job.StartedAt = &now
	}
	if status.Terminal() {
		job.CompletedAt = &now
	}
	return nil
}

func (s *memStore) UpdateJobProgress(ctx context.Context, id uuid.UUID, completed int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if completed > job.Completed {
		job.Completed = completed
	}
	s.progress[id] = append(s.progress[id], job.Completed)
	return nil
}

func (s *memStore) AppendResult(ctx context.Context, result *models.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAppendResult {
		return fmt.Errorf("store unavailable")
	}
	s.results[result.JobID] = append(s.results[result.JobID], *result)
	return nil
}

func (s *memStore) AppendFailure(ctx context.Context, jobID uuid.UUID, failure *models.FailureRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[jobID] = append(s.failures[jobID], *failure)
	return nil
}

func (s *memStore) jobResults(id uuid.UUID) ([]models.AnalysisResult, []models.FailureRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AnalysisResult(nil), s.results[id]...),
		append([]models.FailureRecord(nil), s.failures[id]...)
}

func (s *memStore) progressHistory(id uuid.UUID) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.progress[id]...)
}

// fakeAnalyzer returns canned outcomes per symbol. When gated, each call
// announces itself on calls and waits for proceed before returning.
type fakeAnalyzer struct {
	errs map[string]error

	calls   chan string
	proceed chan struct{}
}

func (f *fakeAnalyzer) AnalyzeSymbol(ctx context.Context, jobID uuid.UUID, symbol, strategyID string, capital float64) (*models.AnalysisResult, error) {
	if f.calls != nil {
		f.calls <- symbol
		<-f.proceed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}

	return &models.AnalysisResult{
		ID:         uuid.New(),
		JobID:      jobID,
		Symbol:     symbol,
		Signal:     models.AggregatedSignal{Score: 50, Verdict: models.VerdictNeutral},
		StrategyID: strategyID,
		CreatedAt:  time.Now(),
	}, nil
}

// fakeSource serves one canned series for every symbol
type fakeSource struct {
	series *models.PriceSeries
	tag    models.DataSource
	err    error
}

func (f *fakeSource) Fetch(ctx context.Context, symbol string, lookbackDays int) (*models.PriceSeries, models.DataSource, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	series := *f.series
	series.Symbol = symbol
	return &series, f.tag, nil
}

// waitForTerminal polls the store until the job reaches a terminal status
func waitForTerminal(t *testing.T, store *memStore, id uuid.UUID) *models.AnalysisJob {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), id)
		if err != nil {
			t.Fatalf("GetJob() error = %v", err)
		}
		if job != nil && job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", id)
	return nil
}
