package model

import "time"

// EvalOutcome is the per-template result of one daily evaluation pass.
type EvalOutcome string

const (
	EvalCreated   EvalOutcome = "created"
	EvalSkipped   EvalOutcome = "skipped"   // rule did not match the date
	EvalDuplicate EvalOutcome = "duplicate" // suppressed, not an error
	EvalError     EvalOutcome = "error"
)

// EvaluationLog is one line of the daily evaluation's structured log.
type EvaluationLog struct {
	ID         int64       `json:"id"`
	RunDate    string      `json:"run_date"` // YYYY-MM-DD
	TemplateID *int64      `json:"template_id"`
	Outcome    EvalOutcome `json:"outcome"`
	Detail     string      `json:"detail,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// AuditRecord is written once per user-action call (claim, complete, undo,
// skip, assign, convert) for the external action-log collaborator.
type AuditRecord struct {
	ID           int64     `json:"id"`
	Ref          string    `json:"ref"` // stable external identifier
	Action       string    `json:"action"`
	OccurrenceID *int64    `json:"occurrence_id"`
	ActorID      *int64    `json:"actor_id"`
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
