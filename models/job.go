package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of an analysis job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal states never
// transition back to non-terminal ones.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// AnalysisJob tracks one batch analysis request through its state machine
type AnalysisJob struct {
	ID          uuid.UUID  `json:"id"`
	Status      JobStatus  `json:"status"`
	Symbols     []string   `json:"symbols"`
	SymbolHash  string     `json:"-"`
	StrategyID  string     `json:"strategy_id"`
	Capital     float64    `json:"capital"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewAnalysisJob creates a queued job over a normalized symbol list
func NewAnalysisJob(symbols []string, strategyID string, capital float64) *AnalysisJob {
	normalized := NormalizeSymbols(symbols)
	return &AnalysisJob{
		ID:         uuid.New(),
		Status:     JobStatusQueued,
		Symbols:    normalized,
		SymbolHash: SymbolSetHash(normalized),
		StrategyID: strategyID,
		Capital:    capital,
		Total:      len(normalized),
		CreatedAt:  time.Now(),
	}
}

// Start transitions the job to processing
func (j *AnalysisJob) Start() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
}

// Complete transitions the job to completed
func (j *AnalysisJob) Complete() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
}

// Fail transitions the job to failed with a diagnostic message
func (j *AnalysisJob) Fail(err error) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = err.Error()
	j.CompletedAt = &now
}

// MarkCancelled transitions the job to cancelled, freezing progress
func (j *AnalysisJob) MarkCancelled() {
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
}

// NormalizeSymbols uppercases, trims, de-duplicates, and sorts a symbol
// list. Two submissions of the same instrument set normalize identically.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// SymbolSetHash hashes a normalized symbol list. The repository enforces
// uniqueness of this hash across non-terminal jobs, which is what makes
// duplicate submission detection atomic.
func SymbolSetHash(normalized []string) string {
	h := sha256.Sum256([]byte(strings.Join(normalized, ",")))
	return hex.EncodeToString(h[:])
}
