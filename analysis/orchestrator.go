package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"signal-machine/models"
	"signal-machine/observability"
)

// ErrJobNotRunning indicates a cancel request for a job that is unknown or
// already terminal
var ErrJobNotRunning = errors.New("job is not running")

// ErrNoSymbols indicates a submission whose symbol list normalized to empty
var ErrNoSymbols = errors.New("no symbols to analyze")

// JobStore is the persistence the orchestrator needs. CreateJob must be
// atomic with respect to the duplicate check: when a non-terminal job with
// the same symbol hash exists, it returns that job with created=false.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.AnalysisJob) (*models.AnalysisJob, bool, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus, errMsg string) error
	UpdateJobProgress(ctx context.Context, id uuid.UUID, completed int) error
	AppendResult(ctx context.Context, result *models.AnalysisResult) error
	AppendFailure(ctx context.Context, jobID uuid.UUID, failure *models.FailureRecord) error
}

// Analyzer runs one instrument through the analysis pipeline
type Analyzer interface {
	AnalyzeSymbol(ctx context.Context, jobID uuid.UUID, symbol, strategyID string, capital float64) (*models.AnalysisResult, error)
}

// jobHandle is the in-process control block for a running job. The cancelled
// flag is checked between instruments; an instrument already in flight is
// allowed to finish.
type jobHandle struct {
	cancelled atomic.Bool
}

// Orchestrator owns the asynchronous job lifecycle: duplicate-checked
// submission, bounded concurrent execution, progress persistence, and
// cooperative cancellation. Instruments within a job run sequentially, so
// there is a single progress writer per job.
type Orchestrator struct {
	store    JobStore
	analyzer Analyzer

	sem chan struct{}
	wg  sync.WaitGroup

	mu     sync.Mutex
	active map[uuid.UUID]*jobHandle

	baseCtx context.Context
	stop    context.CancelFunc
}

// NewOrchestrator creates an orchestrator that runs at most maxConcurrent
// jobs at once. Submissions beyond the bound queue behind the semaphore.
func NewOrchestrator(store JobStore, analyzer Analyzer, maxConcurrent int) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:    store,
		analyzer: analyzer,
		sem:      make(chan struct{}, maxConcurrent),
		active:   make(map[uuid.UUID]*jobHandle),
		baseCtx:  ctx,
		stop:     cancel,
	}
}

// Submit creates a job for the symbol set and starts it asynchronously.
// When a non-terminal job already covers the same normalized symbol set, the
// existing job is returned with created=false and no new work starts.
func (o *Orchestrator) Submit(ctx context.Context, symbols []string, strategyID string, capital float64) (*models.AnalysisJob, bool, error) {
	job := models.NewAnalysisJob(symbols, strategyID, capital)
	if job.Total == 0 {
		return nil, false, ErrNoSymbols
	}
	if capital <= 0 {
		return nil, false, fmt.Errorf("capital must be positive, got %v", capital)
	}

	stored, created, err := o.store.CreateJob(ctx, job)
	if err != nil {
		return nil, false, fmt.Errorf("create job: %w", err)
	}
	if !created {
		observability.GetMetrics().RecordJobDeduplicated()
		observability.Info("duplicate submission, returning existing job",
			"job_id", stored.ID,
			"status", stored.Status)
		return stored, false, nil
	}

	observability.GetMetrics().RecordJobSubmitted(strategyID)

	handle := &jobHandle{}
	o.mu.Lock()
	o.active[stored.ID] = handle
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(stored, handle)

	return stored, true, nil
}

// Cancel requests cooperative cancellation of a running job. The
// acknowledgment only promises the job will stop at the next instrument
// boundary, not that it has stopped.
func (o *Orchestrator) Cancel(id uuid.UUID) error {
	o.mu.Lock()
	handle, ok := o.active[id]
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("cancel %s: %w", id, ErrJobNotRunning)
	}

	handle.cancelled.Store(true)
	observability.Info("job cancellation requested", "job_id", id)
	return nil
}

// Status returns the persisted state of a job
func (o *Orchestrator) Status(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	return o.store.GetJob(ctx, id)
}

// Shutdown flags every running job cancelled and waits for each to reach an
// instrument boundary and finalize, or for the context to expire. The base
// context stays live until the drain completes so in-flight instruments can
// still persist their outcome and the cancelled terminal write lands.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	for _, handle := range o.active {
		handle.cancelled.Store(true)
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.stop()
		return nil
	case <-ctx.Done():
		o.stop()
		return fmt.Errorf("orchestrator shutdown: %w", ctx.Err())
	}
}

// run drives one job to a terminal state. Per-instrument failures are
// recorded and the loop continues; only persistence failures fail the job.
func (o *Orchestrator) run(job *models.AnalysisJob, handle *jobHandle) {
	defer o.wg.Done()
	defer func() {
		o.mu.Lock()
		delete(o.active, job.ID)
		o.mu.Unlock()
	}()

	o.sem <- struct{}{}
	defer func() { <-o.sem }()

	ctx := o.baseCtx
	metrics := observability.GetMetrics()
	log := observability.WithJob(job.ID.String())

	if handle.cancelled.Load() {
		o.finish(ctx, job, models.JobStatusCancelled, "")
		return
	}

	if err := o.store.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing, ""); err != nil {
		log.Error("failed to mark job processing", "error", err)
		o.finish(ctx, job, models.JobStatusFailed, err.Error())
		return
	}

	metrics.JobsActive.Inc()
	defer metrics.JobsActive.Dec()
	timer := metrics.NewTimer()

	log.Info("job started", "symbols", job.Total, "strategy", job.StrategyID)

	completed := 0
	for _, symbol := range job.Symbols {
		if handle.cancelled.Load() {
			log.Info("job cancelled", "completed", completed, "total", job.Total)
			o.finish(ctx, job, models.JobStatusCancelled, "")
			metrics.RecordJobFinished(string(models.JobStatusCancelled), timer.Duration())
			return
		}

		result, err := o.analyzer.AnalyzeSymbol(ctx, job.ID, symbol, job.StrategyID, job.Capital)
		if err != nil {
			failure := ClassifyFailure(symbol, err)
			log.Warn("instrument failed",
				"symbol", symbol,
				"kind", failure.Kind,
				"error", err)
			if storeErr := o.store.AppendFailure(ctx, job.ID, failure); storeErr != nil {
				log.Error("failed to record instrument failure", "symbol", symbol, "error", storeErr)
				o.finish(ctx, job, models.JobStatusFailed, storeErr.Error())
				metrics.RecordJobFinished(string(models.JobStatusFailed), timer.Duration())
				return
			}
		} else {
			if storeErr := o.store.AppendResult(ctx, result); storeErr != nil {
				log.Error("failed to store result", "symbol", symbol, "error", storeErr)
				o.finish(ctx, job, models.JobStatusFailed, storeErr.Error())
				metrics.RecordJobFinished(string(models.JobStatusFailed), timer.Duration())
				return
			}
		}

		// Progress counts attempted instruments, success or failure
		completed++
		if err := o.store.UpdateJobProgress(ctx, job.ID, completed); err != nil {
			log.Error("failed to update progress", "error", err)
			o.finish(ctx, job, models.JobStatusFailed, err.Error())
			metrics.RecordJobFinished(string(models.JobStatusFailed), timer.Duration())
			return
		}
	}

	o.finish(ctx, job, models.JobStatusCompleted, "")
	metrics.RecordJobFinished(string(models.JobStatusCompleted), timer.Duration())
	log.Info("job completed", "completed", completed, "total", job.Total)
}

// finish moves the job to a terminal status. The store refuses transitions
// out of terminal states, so a late finish after an external cancel is a
// no-op.
func (o *Orchestrator) finish(ctx context.Context, job *models.AnalysisJob, status models.JobStatus, errMsg string) {
	// Terminal writes must land even when the base context is gone
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := o.store.UpdateJobStatus(ctx, job.ID, status, errMsg); err != nil {
		observability.Error("failed to finalize job",
			"job_id", job.ID,
			"status", status,
			"error", err)
	}
}
