package model

import "time"

// OccurrenceStatus is the lifecycle state of a single dated chore instance.
type OccurrenceStatus string

const (
	StatusPool      OccurrenceStatus = "pool"
	StatusAssigned  OccurrenceStatus = "assigned"
	StatusCompleted OccurrenceStatus = "completed"
	StatusSkipped   OccurrenceStatus = "skipped"
)

// AssignReason records how an occurrence got (or failed to get) an assignee.
type AssignReason string

const (
	ReasonNone    AssignReason = ""
	ReasonClaimed AssignReason = "claimed"
	ReasonAuto    AssignReason = "auto"
	ReasonManual  AssignReason = "manual"
	ReasonBlocked AssignReason = "blocked" // no eligible member at distribution time
)

// FarFuture is the sentinel due timestamp for one-time tasks without a due
// date, so they never read as overdue.
var FarFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Occurrence is one dated instance of a template. At most one exists per
// (template, date) for scheduled chores; dependency-spawned children are
// keyed by the parent completion instead.
type Occurrence struct {
	ID            int64            `json:"id"`
	TemplateID    int64            `json:"template_id"`
	Date          string           `json:"date"` // YYYY-MM-DD
	Status        OccurrenceStatus `json:"status"`
	AssignedTo    *int64           `json:"assigned_to"`
	AssignReason  AssignReason     `json:"assign_reason"`
	DueAt         time.Time        `json:"due_at"`
	DistributedAt *time.Time       `json:"distributed_at"`
	Points        float64          `json:"points"`
	CompletedAt   *time.Time       `json:"completed_at"`
	Late          bool             `json:"late"`
	SpawnedFrom   *int64           `json:"spawned_from"` // parent completion id
	SkipReason    string           `json:"skip_reason,omitempty"`
	Archived      bool             `json:"archived"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Overdue reports whether the occurrence is past due and still open.
func (o Occurrence) Overdue(now time.Time) bool {
	return now.After(o.DueAt) && o.Status != StatusCompleted && o.Status != StatusSkipped
}

// Completion records one completed occurrence. PrevStatus/PrevAssignedTo
// preserve the pre-completion state so an undo can restore it exactly.
type Completion struct {
	ID             int64        `json:"id"`
	OccurrenceID   int64        `json:"occurrence_id"`
	CompletedBy    int64        `json:"completed_by"`
	CompletedAt    time.Time    `json:"completed_at"`
	Late           bool         `json:"late"`
	PrevStatus     OccurrenceStatus `json:"prev_status"`
	PrevAssignedTo *int64       `json:"prev_assigned_to"`
	PrevReason     AssignReason `json:"prev_reason"`
	Undone         bool         `json:"undone"`
	UndoneAt       *time.Time   `json:"undone_at"`
}

// CompletionShare is one participant's slice of a completion's points.
type CompletionShare struct {
	ID           int64   `json:"id"`
	CompletionID int64   `json:"completion_id"`
	MemberID     int64   `json:"member_id"`
	Points       float64 `json:"points"`
}
