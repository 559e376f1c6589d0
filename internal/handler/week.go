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

type WeekHandler struct {
	weeks  *store.WeekStore
	engine *engine.Engine
	logger *slog.Logger
}

func NewWeekHandler(ws *store.WeekStore, e *engine.Engine, logger *slog.Logger) *WeekHandler {
	return &WeekHandler{weeks: ws, engine: e, logger: logger}
}

// List serves the snapshots for ?week_ending=YYYY-MM-DD.
func (h *WeekHandler) List(w http.ResponseWriter, r *http.Request) {
	weekEnding := r.URL.Query().Get("week_ending")
	if weekEnding == "" {
		writeError(w, http.StatusBadRequest, "week_ending is required")
		return
	}
	if _, err := time.Parse("2006-01-02", weekEnding); err != nil {
		writeError(w, http.StatusBadRequest, "week_ending must be YYYY-MM-DD")
		return
	}

	snaps, err := h.weeks.ListByWeek(weekEnding)
	if err != nil {
		h.logger.Error("list snapshots", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	if snaps == nil {
		snaps = []model.WeeklySnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

type conversionRequest struct {
	ActorID int64 `json:"actor_id"`
}

func (h *WeekHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req conversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	snap, err := h.engine.ConvertSnapshot(id, req.ActorID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *WeekHandler) UndoConversion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req conversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	snap, err := h.engine.UndoConversion(id, req.ActorID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
