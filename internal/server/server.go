package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"choreboard/internal/engine"
	"choreboard/internal/handler"
	"choreboard/internal/store"
	ws "choreboard/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	engine      *engine.Engine
	memberH     *handler.MemberHandler
	templateH   *handler.TemplateHandler
	occurrenceH *handler.OccurrenceHandler
	jobsH       *handler.JobsHandler
	weekH       *handler.WeekHandler
	logger      *slog.Logger
}

// New wires the HTTP surface around an already-constructed engine. The hub
// is created here; callers put it behind the engine's dispatcher so event
// delivery reaches connected clients.
func New(db *sql.DB, e *engine.Engine, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	memberStore := store.NewMemberStore(db)
	templateStore := store.NewTemplateStore(db)
	occurrenceStore := store.NewOccurrenceStore(db)
	dependencyStore := store.NewDependencyStore(db)
	ledgerStore := store.NewLedgerStore(db)
	weekStore := store.NewWeekStore(db)
	evalLogStore := store.NewEvalLogStore(db)
	auditStore := store.NewAuditStore(db)

	return &Server{
		db:          db,
		hub:         hub,
		engine:      e,
		memberH:     handler.NewMemberHandler(memberStore, ledgerStore, logger.With("component", "member")),
		templateH:   handler.NewTemplateHandler(templateStore, dependencyStore, e, logger.With("component", "template")),
		occurrenceH: handler.NewOccurrenceHandler(occurrenceStore, e, logger.With("component", "occurrence")),
		jobsH:       handler.NewJobsHandler(e, evalLogStore, auditStore, logger.With("component", "jobs")),
		weekH:       handler.NewWeekHandler(weekStore, e, logger.With("component", "week")),
		logger:      logger,
	}
}

// Hub returns the websocket hub for use as the notification sink.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Members and balances
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("PUT /api/members/{id}", s.memberH.Update)
	mux.HandleFunc("GET /api/members/{id}/ledger", s.memberH.Ledger)
	mux.HandleFunc("GET /api/balances", s.memberH.Balances)

	// Templates and dependencies
	mux.HandleFunc("GET /api/templates", s.templateH.List)
	mux.HandleFunc("POST /api/templates", s.templateH.Create)
	mux.HandleFunc("PUT /api/templates/{id}", s.templateH.Update)
	mux.HandleFunc("POST /api/templates/{id}/activate", s.templateH.Activate)
	mux.HandleFunc("POST /api/templates/{id}/deactivate", s.templateH.Deactivate)
	mux.HandleFunc("GET /api/dependencies", s.templateH.ListDependencies)
	mux.HandleFunc("POST /api/dependencies", s.templateH.CreateDependency)
	mux.HandleFunc("DELETE /api/dependencies/{id}", s.templateH.DeleteDependency)

	// Occurrences and their transitions
	mux.HandleFunc("GET /api/occurrences", s.occurrenceH.ListByDate)
	mux.HandleFunc("GET /api/occurrences/{id}", s.occurrenceH.Get)
	mux.HandleFunc("POST /api/occurrences/{id}/claim", s.occurrenceH.Claim)
	mux.HandleFunc("POST /api/occurrences/{id}/unclaim", s.occurrenceH.Unclaim)
	mux.HandleFunc("POST /api/occurrences/{id}/assign", s.occurrenceH.Assign)
	mux.HandleFunc("POST /api/occurrences/{id}/complete", s.occurrenceH.Complete)
	mux.HandleFunc("POST /api/occurrences/{id}/undo", s.occurrenceH.Undo)
	mux.HandleFunc("POST /api/occurrences/{id}/skip", s.occurrenceH.Skip)

	// Batch jobs and their records
	mux.HandleFunc("POST /api/jobs/evaluate", s.jobsH.Evaluate)
	mux.HandleFunc("POST /api/jobs/distribute", s.jobsH.Distribute)
	mux.HandleFunc("POST /api/jobs/weekly", s.jobsH.Weekly)
	mux.HandleFunc("GET /api/evaluation-log", s.jobsH.EvaluationLog)
	mux.HandleFunc("GET /api/audit-log", s.jobsH.AuditLog)

	// Weekly snapshots
	mux.HandleFunc("GET /api/weeks", s.weekH.List)
	mux.HandleFunc("POST /api/weeks/{id}/convert", s.weekH.Convert)
	mux.HandleFunc("POST /api/weeks/{id}/convert/undo", s.weekH.UndoConversion)

	return requestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
