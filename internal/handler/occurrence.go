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

type OccurrenceHandler struct {
	occurrences *store.OccurrenceStore
	engine      *engine.Engine
	logger      *slog.Logger
}

func NewOccurrenceHandler(os *store.OccurrenceStore, e *engine.Engine, logger *slog.Logger) *OccurrenceHandler {
	return &OccurrenceHandler{occurrences: os, engine: e, logger: logger}
}

// ListByDate serves all occurrences for ?date=YYYY-MM-DD (default today).
func (h *OccurrenceHandler) ListByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	occs, err := h.occurrences.ListForDate(date)
	if err != nil {
		h.logger.Error("list occurrences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list occurrences")
		return
	}
	if occs == nil {
		occs = []model.Occurrence{}
	}
	writeJSON(w, http.StatusOK, occs)
}

func (h *OccurrenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	occ, err := h.occurrences.GetByID(id)
	if err != nil {
		h.logger.Error("get occurrence", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get occurrence")
		return
	}
	if occ == nil {
		writeError(w, http.StatusNotFound, "occurrence not found")
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

type actorRequest struct {
	MemberID int64 `json:"member_id"`
}

func (h *OccurrenceHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	occ, err := h.engine.Claim(id, req.MemberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

func (h *OccurrenceHandler) Unclaim(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	occ, err := h.engine.Unclaim(id, req.MemberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

type assignRequest struct {
	ActorID  int64 `json:"actor_id"`
	MemberID int64 `json:"member_id"`
}

func (h *OccurrenceHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	occ, err := h.engine.Assign(id, req.ActorID, req.MemberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

type completeRequest struct {
	MemberID  int64   `json:"member_id"`
	HelperIDs []int64 `json:"helper_ids"`
}

func (h *OccurrenceHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	occ, err := h.engine.Complete(id, req.MemberID, req.HelperIDs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

func (h *OccurrenceHandler) Undo(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	occ, err := h.engine.Undo(id, req.MemberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

type skipRequest struct {
	ActorID int64  `json:"actor_id"`
	Reason  string `json:"reason"`
}

func (h *OccurrenceHandler) Skip(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req skipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	occ, err := h.engine.Skip(id, req.ActorID, req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}
