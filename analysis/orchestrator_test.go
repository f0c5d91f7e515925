package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"signal-machine/models"
	"signal-machine/services"
)

func TestOrchestratorRunsJob(t *testing.T) {
	store := newMemStore()
	analyzer := &fakeAnalyzer{
		errs: map[string]error{"BAD": services.ErrDataUnavailable},
	}
	orch := NewOrchestrator(store, analyzer, 2)
	defer orch.Shutdown(context.Background())

	job, created, err := orch.Submit(context.Background(), []string{"AAPL", "MSFT", "BAD", "NVDA", "AMD"}, "balanced", 100000)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !created {
		t.Fatal("Submit() created = false, want true")
	}

	final := waitForTerminal(t, store, job.ID)

	if final.Status != models.JobStatusCompleted {
		t.Errorf("status = %s, want completed", final.Status)
	}
	if final.Completed != 5 {
		t.Errorf("completed = %d, want 5 (failures count as attempted)", final.Completed)
	}

	results, failures := store.jobResults(job.ID)
	if len(results) != 4 {
		t.Errorf("stored results = %d, want 4", len(results))
	}
	if len(failures) != 1 {
		t.Fatalf("stored failures = %d, want 1", len(failures))
	}
	if failures[0].Symbol != "BAD" {
		t.Errorf("failure symbol = %s, want BAD", failures[0].Symbol)
	}
	if failures[0].Kind != models.FailureDataUnavailable {
		t.Errorf("failure kind = %s, want data_unavailable", failures[0].Kind)
	}
}

func TestOrchestratorDeduplicates(t *testing.T) {
	store := newMemStore()
	analyzer := &fakeAnalyzer{
		calls:   make(chan string),
		proceed: make(chan struct{}),
	}
	orch := NewOrchestrator(store, analyzer, 2)

	first, created, err := orch.Submit(context.Background(), []string{"AAPL", "MSFT"}, "balanced", 100000)
	if err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if !created {
		t.Fatal("first Submit() created = false, want true")
	}

	// The first job is blocked inside its first instrument, so a second
	// submission of the same set must dedup. Order in the request must not
	// matter.
	<-analyzer.calls
	second, created, err := orch.Submit(context.Background(), []string{"msft", "aapl"}, "balanced", 100000)
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if created {
		t.Error("duplicate Submit() created = true, want false")
	}
	if second.ID != first.ID {
		t.Errorf("duplicate Submit() returned job %s, want %s", second.ID, first.ID)
	}

	// Release both instruments and let the first job finish
	analyzer.proceed <- struct{}{}
	<-analyzer.calls
	analyzer.proceed <- struct{}{}
	waitForTerminal(t, store, first.ID)

	// With the first job terminal the same set submits fresh
	third, created, err := orch.Submit(context.Background(), []string{"AAPL", "MSFT"}, "balanced", 100000)
	if err != nil {
		t.Fatalf("third Submit() error = %v", err)
	}
	if !created {
		t.Error("resubmission after completion created = false, want true")
	}
	if third.ID == first.ID {
		t.Error("resubmission after completion reused the old job id")
	}

	<-analyzer.calls
	analyzer.proceed <- struct{}{}
	<-analyzer.calls
	analyzer.proceed <- struct{}{}
	waitForTerminal(t, store, third.ID)
	orch.Shutdown(context.Background())
}

func TestOrchestratorCancelMidJob(t *testing.T) {
	store := newMemStore()
	analyzer := &fakeAnalyzer{
		calls:   make(chan string),
		proceed: make(chan struct{}),
	}
	orch := NewOrchestrator(store, analyzer, 1)
	defer orch.Shutdown(context.Background())

	job, _, err := orch.Submit(context.Background(), []string{"A", "B", "C", "D", "E"}, "balanced", 100000)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Let two instruments finish, cancel while the third is in flight. The
	// third is allowed to complete; the fourth must never start.
	for i := 1; i <= 3; i++ {
		<-analyzer.calls
		if i == 3 {
			if err := orch.Cancel(job.ID); err != nil {
				t.Fatalf("Cancel() error = %v", err)
			}
		}
		analyzer.proceed <- struct{}{}
	}

	final := waitForTerminal(t, store, job.ID)

	if final.Status != models.JobStatusCancelled {
		t.Errorf("status = %s, want cancelled", final.Status)
	}
	if final.Completed != 3 {
		t.Errorf("completed = %d, want 3 (frozen at cancellation)", final.Completed)
	}
	results, _ := store.jobResults(job.ID)
	if len(results) != 3 {
		t.Errorf("stored results = %d, want 3", len(results))
	}
}

func TestOrchestratorCancelUnknownJob(t *testing.T) {
	orch := NewOrchestrator(newMemStore(), &fakeAnalyzer{}, 1)
	defer orch.Shutdown(context.Background())

	err := orch.Cancel(uuid.New())
	if !errors.Is(err, ErrJobNotRunning) {
		t.Errorf("Cancel(unknown) error = %v, want ErrJobNotRunning", err)
	}
}

func TestOrchestratorStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failAppendResult = true
	orch := NewOrchestrator(store, &fakeAnalyzer{}, 1)
	defer orch.Shutdown(context.Background())

	job, _, err := orch.Submit(context.Background(), []string{"AAPL"}, "balanced", 100000)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	final := waitForTerminal(t, store, job.ID)

	if final.Status != models.JobStatusFailed {
		t.Errorf("status = %s, want failed", final.Status)
	}
	if final.Error == "" {
		t.Error("failed job should carry the persistence error")
	}
}

func TestOrchestratorProgressMonotonic(t *testing.T) {
	store := newMemStore()
	analyzer := &fakeAnalyzer{
		errs: map[string]error{"B": services.ErrDataUnavailable, "D": models.ErrInsufficientHistory},
	}
	orch := NewOrchestrator(store, analyzer, 2)
	defer orch.Shutdown(context.Background())

	job, _, err := orch.Submit(context.Background(), []string{"A", "B", "C", "D", "E"}, "balanced", 100000)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitForTerminal(t, store, job.ID)

	history := store.progressHistory(job.ID)
	if len(history) != 5 {
		t.Fatalf("progress updates = %d, want 5", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i] < history[i-1] {
			t.Errorf("progress regressed: %v", history)
			break
		}
	}
	if history[len(history)-1] != 5 {
		t.Errorf("final progress = %d, want 5", history[len(history)-1])
	}
}

func TestOrchestratorSubmitValidation(t *testing.T) {
	orch := NewOrchestrator(newMemStore(), &fakeAnalyzer{}, 1)
	defer orch.Shutdown(context.Background())

	_, _, err := orch.Submit(context.Background(), []string{"  ", ""}, "balanced", 100000)
	if !errors.Is(err, ErrNoSymbols) {
		t.Errorf("Submit(blank symbols) error = %v, want ErrNoSymbols", err)
	}

	_, _, err = orch.Submit(context.Background(), []string{"AAPL"}, "balanced", 0)
	if err == nil {
		t.Error("Submit(zero capital) error = nil, want error")
	}
}

func TestOrchestratorShutdownWaits(t *testing.T) {
	store := newMemStore()
	analyzer := &fakeAnalyzer{
		calls:   make(chan string),
		proceed: make(chan struct{}),
	}
	orch := NewOrchestrator(store, analyzer, 1)

	job, _, err := orch.Submit(context.Background(), []string{"A", "B"}, "balanced", 100000)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-analyzer.calls

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- orch.Shutdown(ctx)
	}()

	// Shutdown flags the job cancelled; releasing the in-flight instrument
	// lets it stop at the boundary.
	analyzer.proceed <- struct{}{}

	if err := <-done; err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	final, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if final.Status != models.JobStatusCancelled {
		t.Errorf("status after shutdown = %s, want cancelled", final.Status)
	}

	// The instrument that was in flight when shutdown started must have
	// finished and been persisted before the terminal write.
	if final.Completed != 1 {
		t.Errorf("completed after shutdown = %d, want 1", final.Completed)
	}
	results, failures := store.jobResults(job.ID)
	if len(results) != 1 {
		t.Errorf("stored results = %d, want 1 (in-flight instrument persisted)", len(results))
	}
	if len(failures) != 0 {
		t.Errorf("stored failures = %d, want 0", len(failures))
	}
}

func TestOrchestratorProcessingTransitionFailure(t *testing.T) {
	store := newMemStore()
	store.failProcessing = true
	orch := NewOrchestrator(store, &fakeAnalyzer{}, 1)
	defer orch.Shutdown(context.Background())

	job, _, err := orch.Submit(context.Background(), []string{"AAPL", "MSFT"}, "balanced", 100000)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	final := waitForTerminal(t, store, job.ID)

	if final.Status != models.JobStatusFailed {
		t.Errorf("status = %s, want failed when the processing write fails", final.Status)
	}
	if final.Error == "" {
		t.Error("failed job should carry the store error")
	}
	results, _ := store.jobResults(job.ID)
	if len(results) != 0 {
		t.Errorf("stored results = %d, want 0 (no instrument should run)", len(results))
	}
	if final.Completed != 0 {
		t.Errorf("completed = %d, want 0", final.Completed)
	}
}
