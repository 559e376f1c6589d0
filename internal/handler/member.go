package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"choreboard/internal/model"
	"choreboard/internal/store"
)

type MemberHandler struct {
	members *store.MemberStore
	ledger  *store.LedgerStore
	logger  *slog.Logger
}

func NewMemberHandler(ms *store.MemberStore, ls *store.LedgerStore, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{members: ms, ledger: ls, logger: logger}
}

type memberRequest struct {
	Name             string `json:"name"`
	Admin            bool   `json:"admin"`
	Active           bool   `json:"active"`
	Assignable       bool   `json:"assignable"`
	AutoAssignExempt bool   `json:"auto_assign_exempt"`
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List()
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	member, err := h.members.Create(req.Name, req.Admin)
	if err != nil {
		h.logger.Error("create member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create member")
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.members.GetByID(id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	member, err := h.members.Update(id, req.Name, req.Admin, req.Active, req.Assignable, req.AutoAssignExempt)
	if err != nil {
		h.logger.Error("update member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update member")
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// Balances serves every member's running ledger total.
func (h *MemberHandler) Balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.ledger.Balances()
	if err != nil {
		h.logger.Error("ledger balances", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute balances")
		return
	}
	if balances == nil {
		balances = []model.PointBalance{}
	}
	writeJSON(w, http.StatusOK, balances)
}

// Ledger serves one member's full points history.
func (h *MemberHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	entries, err := h.ledger.ListByMember(id)
	if err != nil {
		h.logger.Error("list ledger", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list ledger")
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
