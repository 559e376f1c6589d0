package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"choreboard/internal/engine"
	"choreboard/internal/model"
	"choreboard/internal/schedule"
	"choreboard/internal/store"
)

type TemplateHandler struct {
	templates *store.TemplateStore
	deps      *store.DependencyStore
	engine    *engine.Engine
	logger    *slog.Logger
}

func NewTemplateHandler(ts *store.TemplateStore, ds *store.DependencyStore, e *engine.Engine, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{templates: ts, deps: ds, engine: e, logger: logger}
}

type templateRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Points      float64    `json:"points"`
	Difficulty  int        `json:"difficulty"`
	Kind        string     `json:"kind"`
	Rule        string     `json:"rule"`
	AnchorDate  string     `json:"anchor_date"` // YYYY-MM-DD
	Mode        string     `json:"mode"`
	AssignedTo  *int64     `json:"assigned_to"`
	Undesirable bool       `json:"undesirable"`
	DueAt       *time.Time `json:"due_at"`
}

func (r *templateRequest) toParams() (store.CreateParams, string) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return store.CreateParams{}, "name is required"
	}
	if r.Points < 0 {
		return store.CreateParams{}, "points must not be negative"
	}

	kind := model.ScheduleKind(r.Kind)
	if _, err := schedule.Parse(kind, r.Rule); err != nil {
		return store.CreateParams{}, err.Error()
	}

	mode := model.AssignMode(r.Mode)
	switch mode {
	case model.ModePool, model.ModeRotation:
	case model.ModeFixed:
		if r.AssignedTo == nil {
			return store.CreateParams{}, "fixed mode requires assigned_to"
		}
	default:
		return store.CreateParams{}, "unknown assignment mode"
	}

	anchor := time.Now().UTC()
	if r.AnchorDate != "" {
		parsed, err := time.Parse("2006-01-02", r.AnchorDate)
		if err != nil {
			return store.CreateParams{}, "anchor_date must be YYYY-MM-DD"
		}
		anchor = parsed
	}

	return store.CreateParams{
		Name:        r.Name,
		Description: r.Description,
		Points:      r.Points,
		Difficulty:  r.Difficulty,
		Kind:        kind,
		Rule:        r.Rule,
		AnchorDate:  anchor,
		Mode:        mode,
		AssignedTo:  r.AssignedTo,
		Undesirable: r.Undesirable,
		DueAt:       r.DueAt,
	}, ""
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List()
	if err != nil {
		h.logger.Error("list templates", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}
	if templates == nil {
		templates = []model.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, msg := req.toParams()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	tpl, err := h.templates.Create(params)
	if err != nil {
		h.logger.Error("create template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create template")
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.templates.GetByID(id)
	if err != nil {
		h.logger.Error("get template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, msg := req.toParams()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	tpl, err := h.templates.Update(id, params)
	if err != nil {
		h.logger.Error("update template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update template")
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// Activate flips a template active; one-time templates get their single
// occurrence here.
func (h *TemplateHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	occ, err := h.engine.ActivateTemplate(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := map[string]any{"activated": true}
	if occ != nil {
		resp["occurrence"] = occ
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TemplateHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.templates.GetByID(id)
	if err != nil {
		h.logger.Error("get template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	if err := h.templates.SetActive(id, false); err != nil {
		h.logger.Error("deactivate template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to deactivate template")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activated": false})
}

type dependencyRequest struct {
	ParentID    int64 `json:"parent_id"`
	ChildID     int64 `json:"child_id"`
	OffsetHours int   `json:"offset_hours"`
}

// CreateDependency adds a parent -> child edge; the engine rejects cycles.
func (h *TemplateHandler) CreateDependency(w http.ResponseWriter, r *http.Request) {
	var req dependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	dep, err := h.engine.AddDependency(req.ParentID, req.ChildID, req.OffsetHours)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func (h *TemplateHandler) ListDependencies(w http.ResponseWriter, r *http.Request) {
	deps, err := h.deps.List()
	if err != nil {
		h.logger.Error("list dependencies", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list dependencies")
		return
	}
	if deps == nil {
		deps = []model.Dependency{}
	}
	writeJSON(w, http.StatusOK, deps)
}

func (h *TemplateHandler) DeleteDependency(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.deps.Delete(id); err != nil {
		h.logger.Error("delete dependency", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete dependency")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
