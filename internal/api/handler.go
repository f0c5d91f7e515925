package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"signal-machine/analysis"
	"signal-machine/config"
	"signal-machine/internal/app"
	"signal-machine/services"
)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// AnalyzeRequest is the batch analysis submission payload
type AnalyzeRequest struct {
	Symbols  []string `json:"symbols"`
	Strategy string   `json:"strategy,omitempty"`
	Capital  float64  `json:"capital,omitempty"`
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
		},
	}

	if h.app.Repo() != nil {
		ctx := r.Context()
		if err := h.app.Repo().Health(ctx); err == nil {
			status["services"].(map[string]string)["database"] = "connected"
		} else {
			status["services"].(map[string]string)["database"] = "disconnected"
			status["status"] = "degraded"
		}
	} else {
		status["services"].(map[string]string)["database"] = "not_configured"
	}

	cbStatus := services.GetGlobalRegistry().Status()
	status["circuit_breakers"] = cbStatus

	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status, http.StatusOK)
}

// HandleAnalyze submits a batch analysis job. The response is 202 with the
// job id; a duplicate submission returns the existing job's id with 200.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Symbols) == 0 {
		h.jsonError(w, "symbols are required", http.StatusBadRequest)
		return
	}
	for _, symbol := range req.Symbols {
		if err := ValidateSymbol(strings.ToUpper(strings.TrimSpace(symbol))); err != nil {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Capital < 0 {
		h.jsonError(w, "capital must not be negative", http.StatusBadRequest)
		return
	}

	job, created, err := h.app.SubmitBatch(r.Context(), req.Symbols, req.Strategy, req.Capital)
	if err != nil {
		if errors.Is(err, app.ErrInvalidSubmission) {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusAccepted
	if !created {
		status = http.StatusOK
	}
	h.jsonResponse(w, map[string]interface{}{
		"job_id":  job.ID,
		"status":  job.Status,
		"total":   job.Total,
		"created": created,
	}, status)
}

// HandleGetJob returns a job's state with its results so far
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.app.JobStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, app.ErrJobNotFound) {
			h.jsonError(w, "job not found", http.StatusNotFound)
			return
		}
		if strings.Contains(err.Error(), "invalid UUID") {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, view, http.StatusOK)
}

// HandleCancelJob requests cancellation of a running job
func (h *Handler) HandleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.app.CancelJob(id); err != nil {
		if errors.Is(err, analysis.ErrJobNotRunning) {
			h.jsonError(w, "job is not running", http.StatusConflict)
			return
		}
		if strings.Contains(err.Error(), "invalid UUID") {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]string{"status": "cancelling", "id": id}, http.StatusAccepted)
}

// HandleListJobs returns recent jobs
func (h *Handler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := ParseLimitParam(r, 50)

	jobs, err := h.app.ListJobs(r.Context(), limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, jobs, http.StatusOK)
}

// HandleGetLatestResult returns the most recent analysis for a symbol
func (h *Handler) HandleGetLatestResult(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if err := ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.app.LatestResult(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, app.ErrResultNotFound) {
			h.jsonError(w, "no analysis found for "+symbol, http.StatusNotFound)
			return
		}
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, result, http.StatusOK)
}

// HandleGetResultHistory returns past analyses for a symbol, newest first
func (h *Handler) HandleGetResultHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if err := ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit := ParseLimitParam(r, 50)

	results, err := h.app.ResultHistory(r.Context(), symbol, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, results, http.StatusOK)
}

// Helper functions

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// ValidateSymbol validates an instrument symbol
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long (max 10 characters)")
	}

	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

// ParseLimitParam parses the limit query parameter
func ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
