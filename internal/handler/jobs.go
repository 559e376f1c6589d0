package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"choreboard/internal/engine"
	"choreboard/internal/model"
	"choreboard/internal/store"
)

// JobsHandler exposes the engine's batch jobs for manual or external
// triggering. All three are idempotent, so re-posting is safe.
type JobsHandler struct {
	engine  *engine.Engine
	evalLog *store.EvalLogStore
	audits  *store.AuditStore
	logger  *slog.Logger
}

func NewJobsHandler(e *engine.Engine, el *store.EvalLogStore, as *store.AuditStore, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{engine: e, evalLog: el, audits: as, logger: logger}
}

type dateRequest struct {
	Date string `json:"date"` // YYYY-MM-DD, defaults to today
}

func (h *JobsHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	var req dateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	res, err := h.engine.RunDailyEvaluation(r.Context(), date)
	if err != nil {
		h.logger.Error("daily evaluation", "error", err)
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *JobsHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.RunDistribution(r.Context())
	if err != nil {
		h.logger.Error("distribution", "error", err)
		writeError(w, http.StatusInternalServerError, "distribution failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *JobsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	weekEnd := time.Now().UTC()
	var req dateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		weekEnd = parsed
	}

	res, err := h.engine.RunWeeklyAggregation(r.Context(), weekEnd)
	if err != nil {
		h.logger.Error("weekly aggregation", "error", err)
		writeError(w, http.StatusInternalServerError, "aggregation failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EvaluationLog serves the per-template outcomes of a run date.
func (h *JobsHandler) EvaluationLog(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	logs, err := h.evalLog.ListByDate(date)
	if err != nil {
		h.logger.Error("list evaluation log", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list evaluation log")
		return
	}
	if logs == nil {
		logs = []model.EvaluationLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// AuditLog serves the most recent action records.
func (h *JobsHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	records, err := h.audits.ListRecent(200)
	if err != nil {
		h.logger.Error("list audit log", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	if records == nil {
		records = []model.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
